package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodCard     PaymentMethod = "CARD"
	MethodTransfer PaymentMethod = "TRANSFER"
)

type Payment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	InvoiceID     uint            `gorm:"not null;index" json:"invoice_id"`
	Invoice       *Invoice        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Amount        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	PaymentDate   time.Time       `gorm:"type:date;not null;index" json:"payment_date"`
	Method        PaymentMethod   `gorm:"size:20;not null" json:"method"`
	TransactionID string          `gorm:"size:50" json:"transaction_id"`
}
