package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayrollContract holds the current pay terms of one staff member.
type PayrollContract struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	StaffID       uint            `gorm:"not null;uniqueIndex" json:"staff_id"`
	Staff         *Staff          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	BaseSalary    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"base_salary"`
	Allowance     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"allowance"`
	TaxPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"tax_percentage"`
	MaxAdvance    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"max_advance"`
	ContractStart time.Time       `gorm:"type:date;not null;index" json:"contract_start"`
	ContractEnd   *time.Time      `gorm:"type:date;index" json:"contract_end"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Gross is base salary plus allowance.
func (c PayrollContract) Gross() decimal.Decimal {
	return c.BaseSalary.Add(c.Allowance)
}

// CoversMonth reports whether any day of month falls inside the contract term.
func (c PayrollContract) CoversMonth(month time.Time) bool {
	first, last := MonthStart(month), MonthEnd(month)
	if DateOf(c.ContractStart).After(last) {
		return false
	}
	if c.ContractEnd != nil && DateOf(*c.ContractEnd).Before(first) {
		return false
	}
	return true
}

// SalaryRecord is one month of pay for one staff member. BaseSalary,
// Allowance and TaxApplied are copied from the contract when the record is
// generated and are not affected by later contract edits.
type SalaryRecord struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	StaffID      uint             `gorm:"not null;uniqueIndex:idx_salary_staff_month" json:"staff_id"`
	Staff        *Staff           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ContractID   *uint            `gorm:"index" json:"contract_id"`
	Contract     *PayrollContract `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Month        time.Time        `gorm:"type:date;not null;index;uniqueIndex:idx_salary_staff_month" json:"month"`
	BaseSalary   decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"base_salary"`
	Allowance    decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"allowance"`
	AdvanceTaken decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"advance_taken"`
	Deductions   decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"deductions"`
	TaxApplied   decimal.Decimal  `gorm:"type:numeric(5,2);not null" json:"tax_applied"`
	NetSalary    decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"net_salary"`
	IsPaid       bool             `gorm:"not null;index" json:"is_paid"`
	PaymentDate  *time.Time       `gorm:"type:date" json:"payment_date"`

	PaymentReferenceID *uint    `gorm:"index" json:"payment_reference_id"`
	PaymentReference   *Payment `gorm:"constraint:OnDelete:SET NULL" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// NetSalary = (base + allowance) × (1 − tax/100) − deductions − advance,
// rounded to cents.
func NetSalary(base, allowance, taxPct, deductions, advance decimal.Decimal) decimal.Decimal {
	gross := base.Add(allowance)
	tax := gross.Mul(taxPct).Div(hundred)
	return gross.Sub(tax).Sub(deductions).Sub(advance).Round(2)
}

// Recalculate refreshes NetSalary from the record's own snapshot fields.
func (r *SalaryRecord) Recalculate() {
	r.NetSalary = NetSalary(r.BaseSalary, r.Allowance, r.TaxApplied, r.Deductions, r.AdvanceTaken)
}

// TaxAmount is the tax withheld from the gross pay.
func (r SalaryRecord) TaxAmount() decimal.Decimal {
	return r.BaseSalary.Add(r.Allowance).Mul(r.TaxApplied).Div(hundred).Round(2)
}
