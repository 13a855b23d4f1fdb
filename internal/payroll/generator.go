// Package payroll manages staff contracts and monthly salary records.
package payroll

import (
	"context"
	"fmt"
	"time"

	"nursery-backend/internal/audit"
	"nursery-backend/internal/database"
	"nursery-backend/internal/models"

	"github.com/gofiber/fiber/v2/log"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Failure is one contract the generator could not process.
type Failure struct {
	ContractID uint   `json:"contract_id"`
	StaffID    uint   `json:"staff_id"`
	StaffName  string `json:"staff_name"`
	Error      string `json:"error"`
}

// Result counts what one generation run did. Skipped records already existed
// for the month; Ignored contracts belong to inactive staff or do not cover
// the month.
type Result struct {
	Month    time.Time `json:"-"`
	Created  int       `json:"created"`
	Skipped  int       `json:"skipped"`
	Ignored  int       `json:"ignored"`
	Failures []Failure `json:"failures"`
}

// Generator creates the salary records of the current month from the
// payroll contracts. Running it again in the same month creates nothing.
type Generator struct {
	DB  *gorm.DB
	Now func() time.Time

	// Actor is written to the audit log of every created record.
	ActorID   uint
	ActorName string
}

func (g Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Run processes every contract in its own transaction, so one failing
// contract never blocks the others. The error is non-nil only when the
// contracts could not be listed or ctx was cancelled.
func (g Generator) Run(ctx context.Context) (Result, error) {
	res := Result{
		Month:    models.MonthStart(g.now()),
		Failures: []Failure{},
	}
	db := g.DB.WithContext(ctx)

	var contracts []models.PayrollContract
	if err := db.Preload("Staff").Order("id").Find(&contracts).Error; err != nil {
		return res, errors.Wrap(err, "list payroll contracts")
	}

	for _, contract := range contracts {
		if err := ctx.Err(); err != nil {
			return res, errors.Wrap(err, "salary generation interrupted")
		}

		if contract.Staff == nil || !contract.Staff.IsActive || !contract.CoversMonth(res.Month) {
			res.Ignored++
			continue
		}

		created, err := g.generateOne(db, contract, res.Month)
		switch {
		case err != nil:
			res.Failures = append(res.Failures, Failure{
				ContractID: contract.ID,
				StaffID:    contract.StaffID,
				StaffName:  contract.Staff.FullName(),
				Error:      err.Error(),
			})
		case created:
			res.Created++
		default:
			res.Skipped++
		}
	}

	log.Infow("salary generation finished",
		"month", models.FormatDate(res.Month),
		"created", res.Created,
		"skipped", res.Skipped,
		"ignored", res.Ignored,
		"failed", len(res.Failures),
	)
	return res, nil
}

// NewRecord snapshots the contract terms into an unpaid record for month.
func NewRecord(contract models.PayrollContract, month time.Time) models.SalaryRecord {
	contractID := contract.ID
	rec := models.SalaryRecord{
		StaffID:      contract.StaffID,
		ContractID:   &contractID,
		Month:        models.MonthStart(month),
		BaseSalary:   contract.BaseSalary,
		Allowance:    contract.Allowance,
		TaxApplied:   contract.TaxPercentage,
		AdvanceTaken: decimal.Zero,
		Deductions:   decimal.Zero,
	}
	rec.Recalculate()
	return rec
}

func (g Generator) generateOne(db *gorm.DB, contract models.PayrollContract, month time.Time) (bool, error) {
	var created bool
	err := db.Transaction(func(tx *gorm.DB) error {
		rec := NewRecord(contract, month)
		ok, err := insertRecord(tx, &rec)
		if err != nil || !ok {
			return err
		}
		created = true
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      g.ActorID,
			UserName:    g.ActorName,
			EntityType:  audit.EntitySalaryRecord,
			EntityID:    rec.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Salary for %s generated for %s", contract.Staff.FullName(), rec.Month.Format("January 2006")),
			After:       rec,
		})
	})
	if err != nil {
		return false, errors.Wrapf(err, "contract %d", contract.ID)
	}
	return created, nil
}

// insertRecord inserts rec unless a record for the same staff and month
// exists. It reports false when the row was already there, including when a
// concurrent run won the race on the unique index.
func insertRecord(tx *gorm.DB, rec *models.SalaryRecord) (bool, error) {
	var n int64
	if err := tx.Model(&models.SalaryRecord{}).
		Where("staff_id = ? AND month = ?", rec.StaffID, rec.Month).
		Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	q := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if q.Error != nil {
		if database.IsUniqueViolation(q.Error) {
			return false, nil
		}
		return false, q.Error
	}
	return q.RowsAffected > 0, nil
}
