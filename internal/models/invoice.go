package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "PAID"
	InvoiceUnpaid  InvoiceStatus = "UNPAID"
	InvoicePartial InvoiceStatus = "PARTIAL"
)

var hundred = decimal.NewFromInt(100)

type Invoice struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	StudentID     uint             `gorm:"not null;index" json:"student_id"`
	Student       *Student         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	IssueDate     time.Time        `gorm:"type:date;not null;index" json:"issue_date"`
	DueDate       time.Time        `gorm:"type:date;not null" json:"due_date"`
	Amount        decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"amount"`
	Description   string           `gorm:"type:text" json:"description"`
	Status        InvoiceStatus    `gorm:"size:10;not null;index" json:"status"`
	IsIncome      bool             `gorm:"not null" json:"is_income"`
	IsExpense     bool             `gorm:"not null" json:"is_expense"`
	TaxPercentage *decimal.Decimal `gorm:"type:numeric(5,2)" json:"tax_percentage"`
	IsPurchase    bool             `gorm:"not null" json:"is_purchase"`
}

// DaysRemainingOn is the signed number of days until the due date; negative
// means overdue.
func (i Invoice) DaysRemainingOn(today time.Time) int {
	return int(DateOf(i.DueDate).Sub(DateOf(today)).Hours() / 24)
}

// TaxedAmount adds the tax percentage to the amount when one is set.
func (i Invoice) TaxedAmount() decimal.Decimal {
	if i.TaxPercentage == nil || i.TaxPercentage.IsZero() {
		return i.Amount
	}
	return i.Amount.Add(i.Amount.Mul(*i.TaxPercentage).Div(hundred)).Round(2)
}
