package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InventoryCategory string

const (
	CategoryUniform    InventoryCategory = "UNIFORM"
	CategoryBook       InventoryCategory = "BOOK"
	CategoryStationery InventoryCategory = "STATIONERY"
	CategoryToy        InventoryCategory = "TOY"
	CategoryEquipment  InventoryCategory = "EQUIPMENT"
	CategoryAsset      InventoryCategory = "ASSET"
)

// LowStockThreshold: items with fewer units than this count as low stock.
const LowStockThreshold = 5

type InventoryItem struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"size:100;not null;index" json:"name"`
	Category    InventoryCategory `gorm:"size:20;not null" json:"category"`
	Quantity    uint              `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal   `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	LastRestock *time.Time        `gorm:"type:date" json:"last_restock"`

	StaffCustodianID    *uint    `gorm:"index" json:"staff_custodian_id"`
	StaffCustodian      *Staff   `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	AssignedToStudentID *uint    `gorm:"index" json:"assigned_to_student_id"`
	AssignedToStudent   *Student `gorm:"constraint:OnDelete:SET NULL" json:"-"`
}

// TotalValue is quantity × unit price.
func (i InventoryItem) TotalValue() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// RemainingQuantity equals the stored quantity; consumption is recorded by
// editing the quantity itself.
func (i InventoryItem) RemainingQuantity() uint {
	return i.Quantity
}

func (i InventoryItem) IsLowStock() bool {
	return i.Quantity < LowStockThreshold
}
