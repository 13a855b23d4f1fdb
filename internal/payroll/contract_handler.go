package payroll

import (
	"fmt"

	"nursery-backend/internal/audit"
	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"
	"nursery-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateContractRequest struct {
	StaffID       uint             `json:"staff_id" validate:"required"`
	BaseSalary    *decimal.Decimal `json:"base_salary" validate:"required,gte=0"`
	Allowance     *decimal.Decimal `json:"allowance" validate:"omitempty,gte=0"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage" validate:"omitempty,gte=0,lte=100"`
	MaxAdvance    *decimal.Decimal `json:"max_advance" validate:"omitempty,gte=0"`
	ContractStart string           `json:"contract_start" validate:"required,datetime=2006-01-02"`
	ContractEnd   *string          `json:"contract_end" validate:"omitempty,optional_date"`
}

type UpdateContractRequest struct {
	BaseSalary    *decimal.Decimal `json:"base_salary" validate:"omitempty,gte=0"`
	Allowance     *decimal.Decimal `json:"allowance" validate:"omitempty,gte=0"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage" validate:"omitempty,gte=0,lte=100"`
	MaxAdvance    *decimal.Decimal `json:"max_advance" validate:"omitempty,gte=0"`
	ContractStart *string          `json:"contract_start" validate:"omitempty,datetime=2006-01-02"`
	// "" removes the end date
	ContractEnd *string `json:"contract_end" validate:"omitempty,optional_date"`
}

type ContractResponse struct {
	ID            uint    `json:"id"`
	StaffID       uint    `json:"staff_id"`
	StaffName     string  `json:"staff_name"`
	BaseSalary    string  `json:"base_salary"`
	Allowance     string  `json:"allowance"`
	TaxPercentage string  `json:"tax_percentage"`
	MaxAdvance    string  `json:"max_advance"`
	Gross         string  `json:"gross"`
	ContractStart string  `json:"contract_start"`
	ContractEnd   *string `json:"contract_end"`
}

func ToContractResponse(c models.PayrollContract) ContractResponse {
	resp := ContractResponse{
		ID:            c.ID,
		StaffID:       c.StaffID,
		BaseSalary:    c.BaseSalary.StringFixed(2),
		Allowance:     c.Allowance.StringFixed(2),
		TaxPercentage: c.TaxPercentage.StringFixed(2),
		MaxAdvance:    c.MaxAdvance.StringFixed(2),
		Gross:         c.Gross().StringFixed(2),
		ContractStart: models.FormatDate(c.ContractStart),
		ContractEnd:   models.FormatDatePtr(c.ContractEnd),
	}
	if c.Staff != nil {
		resp.StaffName = c.Staff.FullName()
	}
	return resp
}

func decimalOr(v *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if v == nil {
		return def
	}
	return v.Round(2)
}

func loadContract(db *gorm.DB, id uint) (models.PayrollContract, error) {
	var c models.PayrollContract
	err := httpx.FindOr404(db.Preload("Staff"), &c, id, "contract not found")
	return c, err
}

func checkContractDates(c models.PayrollContract) error {
	if c.ContractEnd != nil && c.ContractEnd.Before(c.ContractStart) {
		return validation.Field("contract_end", "contract end cannot be before contract start")
	}
	return nil
}

// GET /api/payroll/contracts?staff_id=1
func ListContractsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Preload("Staff")

		if sid, ok, err := httpx.ParseOptionalUint(c, "staff_id"); err != nil {
			return err
		} else if ok {
			dbq = dbq.Where("staff_id = ?", sid)
		}

		var rows []models.PayrollContract
		if err := dbq.Order("contract_start DESC, id DESC").Find(&rows).Error; err != nil {
			return err
		}

		resp := make([]ContractResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, ToContractResponse(r))
		}
		return c.JSON(resp)
	}
}

// GET /api/payroll/contracts/:id
func GetContractHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		row, err := loadContract(database.DB.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(ToContractResponse(row))
	}
}

// POST /api/payroll/contracts
func CreateContractHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateContractRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		start, err := httpx.ParseDateOr("contract_start", body.ContractStart, httpx.Today())
		if err != nil {
			return err
		}
		end, err := httpx.ParseDatePtr("contract_end", body.ContractEnd)
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

		row := models.PayrollContract{
			StaffID:       body.StaffID,
			BaseSalary:    body.BaseSalary.Round(2),
			Allowance:     decimalOr(body.Allowance, decimal.Zero),
			TaxPercentage: decimalOr(body.TaxPercentage, decimal.Zero),
			MaxAdvance:    decimalOr(body.MaxAdvance, decimal.Zero),
			ContractStart: start,
			ContractEnd:   end,
		}
		if err := checkContractDates(row); err != nil {
			return err
		}

		if err := db.Create(&row).Error; err != nil {
			return httpx.SaveError(err, "this staff member already has a payroll contract")
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityContract,
			EntityID:    row.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Payroll contract created for staff #%d", row.StaffID),
			After:       row,
		})

		row, err = loadContract(db, row.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToContractResponse(row))
	}
}

// PUT|PATCH /api/payroll/contracts/:id
// Salary records already generated keep the terms they were created with.
func UpdateContractHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var body UpdateContractRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var row models.PayrollContract
		if err := httpx.FindOr404(db, &row, id, "contract not found"); err != nil {
			return err
		}
		before := row

		row.BaseSalary = decimalOr(body.BaseSalary, row.BaseSalary)
		row.Allowance = decimalOr(body.Allowance, row.Allowance)
		row.TaxPercentage = decimalOr(body.TaxPercentage, row.TaxPercentage)
		row.MaxAdvance = decimalOr(body.MaxAdvance, row.MaxAdvance)
		if body.ContractStart != nil {
			if row.ContractStart, err = httpx.ParseDateOr("contract_start", *body.ContractStart, row.ContractStart); err != nil {
				return err
			}
		}
		if body.ContractEnd != nil {
			if row.ContractEnd, err = httpx.ParseDatePtr("contract_end", body.ContractEnd); err != nil {
				return err
			}
		}
		if err := checkContractDates(row); err != nil {
			return err
		}

		if err := db.Omit("Staff").Save(&row).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityContract,
			EntityID:    row.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Payroll contract #%d updated", row.ID),
			Before:      before,
			After:       row,
		})

		row, err = loadContract(db, row.ID)
		if err != nil {
			return err
		}
		return c.JSON(ToContractResponse(row))
	}
}

// DELETE /api/payroll/contracts/:id
// Salary records of the contract stay, with contract_id cleared.
func DeleteContractHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var row models.PayrollContract
		if err := httpx.FindOr404(db, &row, id, "contract not found"); err != nil {
			return err
		}
		if err := db.Delete(&row).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityContract,
			EntityID:    row.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Payroll contract #%d deleted", row.ID),
			Before:      row,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

type ExpiringContractResponse struct {
	ContractResponse
	DaysLeft int `json:"days_left"`
}

// GET /api/payroll/contracts/expiring
func ExpiringContractsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		today := httpx.Today()
		exp, err := FindExpiring(database.DB.WithContext(c.UserContext()), today)
		if err != nil {
			return err
		}

		render := func(rows []models.PayrollContract) []ExpiringContractResponse {
			out := make([]ExpiringContractResponse, 0, len(rows))
			for _, r := range rows {
				out = append(out, ExpiringContractResponse{
					ContractResponse: ToContractResponse(r),
					DaysLeft:         int(models.DateOf(*r.ContractEnd).Sub(today).Hours() / 24),
				})
			}
			return out
		}

		return c.JSON(fiber.Map{
			"today":     models.FormatDate(today),
			"within_30": render(exp.Within30),
			"within_60": render(exp.Within60),
		})
	}
}
