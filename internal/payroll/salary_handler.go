package payroll

import (
	"fmt"

	"nursery-backend/internal/audit"
	"nursery-backend/internal/auth"
	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"
	"nursery-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateSalaryRequest struct {
	StaffID    uint   `json:"staff_id" validate:"required"`
	ContractID *uint  `json:"contract_id"`
	Month      string `json:"month" validate:"required,datetime=2006-01-02"` // any day of the month
	// terms default to the contract's when contract_id is given
	BaseSalary   *decimal.Decimal `json:"base_salary" validate:"omitempty,gte=0"`
	Allowance    *decimal.Decimal `json:"allowance" validate:"omitempty,gte=0"`
	TaxApplied   *decimal.Decimal `json:"tax_applied" validate:"omitempty,gte=0,lte=100"`
	AdvanceTaken *decimal.Decimal `json:"advance_taken" validate:"omitempty,gte=0"`
	Deductions   *decimal.Decimal `json:"deductions" validate:"omitempty,gte=0"`
}

// UpdateSalaryRequest covers what finance staff adjust after generation.
// The snapshot terms are not editable.
type UpdateSalaryRequest struct {
	AdvanceTaken *decimal.Decimal `json:"advance_taken" validate:"omitempty,gte=0"`
	Deductions   *decimal.Decimal `json:"deductions" validate:"omitempty,gte=0"`
	IsPaid       *bool            `json:"is_paid"`
	PaymentDate  *string          `json:"payment_date" validate:"omitempty,optional_date"`
	// 0 unlinks the payment
	PaymentReferenceID *uint `json:"payment_reference_id"`
}

type PaySalaryRequest struct {
	PaymentDate        string `json:"payment_date" validate:"omitempty,datetime=2006-01-02"` // default today
	PaymentReferenceID *uint  `json:"payment_reference_id"`
}

type SalaryResponse struct {
	ID                 uint    `json:"id"`
	StaffID            uint    `json:"staff_id"`
	StaffName          string  `json:"staff_name"`
	ContractID         *uint   `json:"contract_id"`
	Month              string  `json:"month"`
	BaseSalary         string  `json:"base_salary"`
	Allowance          string  `json:"allowance"`
	AdvanceTaken       string  `json:"advance_taken"`
	Deductions         string  `json:"deductions"`
	TaxApplied         string  `json:"tax_applied"`
	TaxAmount          string  `json:"tax_amount"`
	NetSalary          string  `json:"net_salary"`
	IsPaid             bool    `json:"is_paid"`
	PaymentDate        *string `json:"payment_date"`
	PaymentReferenceID *uint   `json:"payment_reference_id"`
	CreatedAt          string  `json:"created_at"`
}

func ToSalaryResponse(r models.SalaryRecord) SalaryResponse {
	resp := SalaryResponse{
		ID:                 r.ID,
		StaffID:            r.StaffID,
		ContractID:         r.ContractID,
		Month:              models.FormatDate(r.Month),
		BaseSalary:         r.BaseSalary.StringFixed(2),
		Allowance:          r.Allowance.StringFixed(2),
		AdvanceTaken:       r.AdvanceTaken.StringFixed(2),
		Deductions:         r.Deductions.StringFixed(2),
		TaxApplied:         r.TaxApplied.StringFixed(2),
		TaxAmount:          r.TaxAmount().StringFixed(2),
		NetSalary:          r.NetSalary.StringFixed(2),
		IsPaid:             r.IsPaid,
		PaymentDate:        models.FormatDatePtr(r.PaymentDate),
		PaymentReferenceID: r.PaymentReferenceID,
		CreatedAt:          r.CreatedAt.Format("2006-01-02 15:04"),
	}
	if r.Staff != nil {
		resp.StaffName = r.Staff.FullName()
	}
	return resp
}

func loadSalary(db *gorm.DB, id uint) (models.SalaryRecord, error) {
	var r models.SalaryRecord
	err := httpx.FindOr404(db.Preload("Staff"), &r, id, "salary record not found")
	return r, err
}

// checkAdvance rejects an advance above the linked contract's ceiling.
// Records without a contract have no ceiling.
func checkAdvance(db *gorm.DB, r models.SalaryRecord) error {
	if r.ContractID == nil || r.AdvanceTaken.IsZero() {
		return nil
	}
	var contract models.PayrollContract
	if err := db.First(&contract, *r.ContractID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil
		}
		return err
	}
	if r.AdvanceTaken.GreaterThan(contract.MaxAdvance) {
		return validation.Field("advance_taken",
			"advance exceeds the contract maximum of "+contract.MaxAdvance.StringFixed(2))
	}
	return nil
}

func checkPayment(db *gorm.DB, id *uint) error {
	if id == nil {
		return nil
	}
	var n int64
	if err := db.Model(&models.Payment{}).Where("id = ?", *id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return validation.Field("payment_reference_id", "payment does not exist")
	}
	return nil
}

// GET /api/payroll/salaries?staff_id=1&month=2026-10-01&is_paid=false
func ListSalariesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Preload("Staff")

		if sid, ok, err := httpx.ParseOptionalUint(c, "staff_id"); err != nil {
			return err
		} else if ok {
			dbq = dbq.Where("staff_id = ?", sid)
		}
		if m, err := httpx.QueryDate(c, "month"); err != nil {
			return err
		} else if m != nil {
			dbq = dbq.Where("month = ?", models.MonthStart(*m))
		}
		if paid, err := httpx.QueryBool(c, "is_paid"); err != nil {
			return err
		} else if paid != nil {
			dbq = dbq.Where("is_paid = ?", *paid)
		}

		var rows []models.SalaryRecord
		if err := dbq.Order("month DESC, staff_id").Find(&rows).Error; err != nil {
			return err
		}

		resp := make([]SalaryResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, ToSalaryResponse(r))
		}
		return c.JSON(resp)
	}
}

// GET /api/payroll/salaries/unpaid
func UnpaidSalariesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := FindUnpaid(database.DB.WithContext(c.UserContext()))
		if err != nil {
			return err
		}

		total := decimal.Zero
		resp := make([]SalaryResponse, 0, len(rows))
		for _, r := range rows {
			total = total.Add(r.NetSalary)
			resp = append(resp, ToSalaryResponse(r))
		}
		return c.JSON(fiber.Map{
			"count":   len(resp),
			"total":   total.StringFixed(2),
			"records": resp,
		})
	}
}

// FindUnpaid lists unpaid salary records, oldest month first.
func FindUnpaid(db *gorm.DB) ([]models.SalaryRecord, error) {
	var rows []models.SalaryRecord
	err := db.Preload("Staff").Where("is_paid = ?", false).Order("month, staff_id").Find(&rows).Error
	return rows, err
}

// GET /api/payroll/salaries/:id
func GetSalaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		r, err := loadSalary(database.DB.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(ToSalaryResponse(r))
	}
}

// POST /api/payroll/salaries
// Manual entry for a month the generator did not cover.
func CreateSalaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSalaryRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}
		month, err := httpx.ParseDateOr("month", body.Month, httpx.Today())
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var n int64
		if err := db.Model(&models.Staff{}).Where("id = ?", body.StaffID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return validation.Field("staff_id", "staff member does not exist")
		}

		var r models.SalaryRecord
		if body.ContractID != nil {
			var contract models.PayrollContract
			if err := db.First(&contract, *body.ContractID).Error; err != nil {
				if database.IsNotFound(err) {
					return validation.Field("contract_id", "contract does not exist")
				}
				return err
			}
			if contract.StaffID != body.StaffID {
				return validation.Field("contract_id", "contract belongs to another staff member")
			}
			r = NewRecord(contract, month)
		} else {
			if body.BaseSalary == nil {
				return validation.Field("base_salary", "this field is required")
			}
			r = models.SalaryRecord{
				StaffID:    body.StaffID,
				Month:      models.MonthStart(month),
				BaseSalary: body.BaseSalary.Round(2),
				Allowance:  decimal.Zero,
				TaxApplied: decimal.Zero,
			}
		}
		r.BaseSalary = decimalOr(body.BaseSalary, r.BaseSalary)
		r.Allowance = decimalOr(body.Allowance, r.Allowance)
		r.TaxApplied = decimalOr(body.TaxApplied, r.TaxApplied)
		r.AdvanceTaken = decimalOr(body.AdvanceTaken, decimal.Zero)
		r.Deductions = decimalOr(body.Deductions, decimal.Zero)
		r.Recalculate()

		if err := checkAdvance(db, r); err != nil {
			return err
		}

		if err := db.Create(&r).Error; err != nil {
			return httpx.SaveError(err, "a salary record for this staff member and month already exists")
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntitySalaryRecord,
			EntityID:    r.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Salary record for staff #%d, %s created", r.StaffID, r.Month.Format("January 2006")),
			After:       r,
		})

		r, err = loadSalary(db, r.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToSalaryResponse(r))
	}
}

// PUT|PATCH /api/payroll/salaries/:id
func UpdateSalaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var body UpdateSalaryRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var r models.SalaryRecord
		if err := httpx.FindOr404(db, &r, id, "salary record not found"); err != nil {
			return err
		}
		before := r

		r.AdvanceTaken = decimalOr(body.AdvanceTaken, r.AdvanceTaken)
		r.Deductions = decimalOr(body.Deductions, r.Deductions)
		if body.IsPaid != nil {
			r.IsPaid = *body.IsPaid
			if !r.IsPaid {
				r.PaymentDate = nil
			}
		}
		if body.PaymentDate != nil {
			if r.PaymentDate, err = httpx.ParseDatePtr("payment_date", body.PaymentDate); err != nil {
				return err
			}
		}
		if body.PaymentReferenceID != nil {
			if *body.PaymentReferenceID == 0 {
				r.PaymentReferenceID = nil
			} else {
				r.PaymentReferenceID = body.PaymentReferenceID
			}
		}
		r.Recalculate()

		if err := checkAdvance(db, r); err != nil {
			return err
		}
		if err := checkPayment(db, r.PaymentReferenceID); err != nil {
			return err
		}

		if err := db.Omit("Staff", "Contract", "PaymentReference").Save(&r).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntitySalaryRecord,
			EntityID:    r.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Salary record #%d updated", r.ID),
			Before:      before,
			After:       r,
		})

		r, err = loadSalary(db, r.ID)
		if err != nil {
			return err
		}
		return c.JSON(ToSalaryResponse(r))
	}
}

// POST /api/payroll/salaries/:id/pay
func PaySalaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var body PaySalaryRequest
		if len(c.Body()) > 0 {
			if err := validation.Bind(c, &body); err != nil {
				return err
			}
		}

		db := database.DB.WithContext(c.UserContext())

		var r models.SalaryRecord
		if err := httpx.FindOr404(db, &r, id, "salary record not found"); err != nil {
			return err
		}
		if r.IsPaid {
			return fiber.NewError(fiber.StatusConflict, "salary is already paid")
		}
		before := r

		paidOn, err := httpx.ParseDateOr("payment_date", body.PaymentDate, httpx.Today())
		if err != nil {
			return err
		}
		if err := checkPayment(db, body.PaymentReferenceID); err != nil {
			return err
		}

		r.IsPaid = true
		r.PaymentDate = &paidOn
		if body.PaymentReferenceID != nil {
			r.PaymentReferenceID = body.PaymentReferenceID
		}
		if err := db.Omit("Staff", "Contract", "PaymentReference").Save(&r).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntitySalaryRecord,
			EntityID:    r.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Salary record #%d marked paid", r.ID),
			Before:      before,
			After:       r,
		})

		r, err = loadSalary(db, r.ID)
		if err != nil {
			return err
		}
		return c.JSON(ToSalaryResponse(r))
	}
}

// DELETE /api/payroll/salaries/:id
func DeleteSalaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var r models.SalaryRecord
		if err := httpx.FindOr404(db, &r, id, "salary record not found"); err != nil {
			return err
		}
		if err := db.Delete(&r).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntitySalaryRecord,
			EntityID:    r.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Salary record #%d deleted", r.ID),
			Before:      r,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/payroll/salaries/generate
//
// Responds with {month, created, skipped, ignored, failures}. skipped counts
// records that already existed; ignored counts contracts of inactive staff or
// contracts that do not cover the month.
func GenerateSalariesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		gen := Generator{
			DB:  database.DB,
			Now: httpx.Now,
		}
		if p := auth.PrincipalFrom(c); p != nil {
			gen.ActorID = p.UserID
			gen.ActorName = p.Name
		}

		res, err := gen.Run(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"month":    models.FormatDate(res.Month),
			"created":  res.Created,
			"skipped":  res.Skipped,
			"ignored":  res.Ignored,
			"failures": res.Failures,
		})
	}
}
