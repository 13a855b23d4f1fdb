package finance

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

type CreateInvoiceRequest struct {
	StudentID     uint                 `json:"student_id" validate:"required"`
	IssueDate     string               `json:"issue_date" validate:"omitempty,datetime=2006-01-02"` // default today
	DueDate       string               `json:"due_date" validate:"required,datetime=2006-01-02"`
	Amount        *decimal.Decimal     `json:"amount" validate:"required,gte=0"`
	Description   string               `json:"description"`
	Status        models.InvoiceStatus `json:"status" validate:"omitempty,oneof=PAID UNPAID PARTIAL"` // default UNPAID
	IsIncome      *bool                `json:"is_income"`                                             // default true
	IsExpense     bool                 `json:"is_expense"`
	TaxPercentage *decimal.Decimal     `json:"tax_percentage" validate:"omitempty,gte=0,lte=100"`
	IsPurchase    bool                 `json:"is_purchase"`
}

type UpdateInvoiceRequest struct {
	IssueDate     *string               `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate       *string               `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Amount        *decimal.Decimal      `json:"amount" validate:"omitempty,gte=0"`
	Description   *string               `json:"description"`
	Status        *models.InvoiceStatus `json:"status" validate:"omitempty,oneof=PAID UNPAID PARTIAL"`
	IsIncome      *bool                 `json:"is_income"`
	IsExpense     *bool                 `json:"is_expense"`
	TaxPercentage *decimal.Decimal      `json:"tax_percentage" validate:"omitempty,gte=0,lte=100"`
	ClearTax      bool                  `json:"clear_tax"`
	IsPurchase    *bool                 `json:"is_purchase"`
}

type InvoiceResponse struct {
	ID            uint                 `json:"id"`
	StudentID     uint                 `json:"student_id"`
	StudentName   string               `json:"student_name"`
	IssueDate     string               `json:"issue_date"`
	DueDate       string               `json:"due_date"`
	DaysRemaining int                  `json:"days_remaining"`
	Amount        string               `json:"amount"`
	TaxPercentage *string              `json:"tax_percentage"`
	TaxedAmount   string               `json:"taxed_amount"`
	Description   string               `json:"description"`
	Status        models.InvoiceStatus `json:"status"`
	IsIncome      bool                 `json:"is_income"`
	IsExpense     bool                 `json:"is_expense"`
	IsPurchase    bool                 `json:"is_purchase"`
}

func ToInvoiceResponse(inv models.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID,
		StudentID:     inv.StudentID,
		IssueDate:     models.FormatDate(inv.IssueDate),
		DueDate:       models.FormatDate(inv.DueDate),
		DaysRemaining: inv.DaysRemainingOn(httpx.Today()),
		Amount:        inv.Amount.StringFixed(2),
		TaxedAmount:   inv.TaxedAmount().StringFixed(2),
		Description:   inv.Description,
		Status:        inv.Status,
		IsIncome:      inv.IsIncome,
		IsExpense:     inv.IsExpense,
		IsPurchase:    inv.IsPurchase,
	}
	if inv.TaxPercentage != nil {
		s := inv.TaxPercentage.StringFixed(2)
		resp.TaxPercentage = &s
	}
	if inv.Student != nil {
		resp.StudentName = inv.Student.FullName()
	}
	return resp
}

func loadInvoice(db *gorm.DB, id uint) (models.Invoice, error) {
	var inv models.Invoice
	err := httpx.FindOr404(db.Preload("Student"), &inv, id, "invoice not found")
	return inv, err
}

// GET /api/invoices?student_id=1&status=UNPAID&overdue=true
func ListInvoicesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).
			Model(&models.Invoice{}).
			Preload("Student")

		if sid, ok, err := httpx.ParseOptionalUint(c, "student_id"); err != nil {
			return err
		} else if ok {
			dbq = dbq.Where("student_id = ?", sid)
		}
		if st := c.Query("status"); st != "" {
			dbq = dbq.Where("status = ?", st)
		}
		overdue, err := httpx.QueryBool(c, "overdue")
		if err != nil {
			return err
		}
		if overdue != nil && *overdue {
			dbq = dbq.Where("due_date < ? AND status <> ?", httpx.Today(), models.InvoicePaid)
		}

		var rows []models.Invoice
		if err := dbq.Order("issue_date DESC, id DESC").Find(&rows).Error; err != nil {
			return err
		}

		resp := make([]InvoiceResponse, 0, len(rows))
		for _, inv := range rows {
			resp = append(resp, ToInvoiceResponse(inv))
		}
		return c.JSON(resp)
	}
}

// GET /api/invoices/:id
func GetInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		inv, err := loadInvoice(database.DB.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(ToInvoiceResponse(inv))
	}
}

// POST /api/invoices
func CreateInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateInvoiceRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		issued, err := httpx.ParseDateOr("issue_date", body.IssueDate, httpx.Today())
		if err != nil {
			return err
		}
		due, err := httpx.ParseDateOr("due_date", body.DueDate, issued)
		if err != nil {
			return err
		}
		if due.Before(issued) {
			return validation.Field("due_date", "due date cannot be before the issue date")
		}

		db := database.DB.WithContext(c.UserContext())

		var n int64
		if err := db.Model(&models.Student{}).Where("id = ?", body.StudentID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return validation.Field("student_id", "student does not exist")
		}

		status := body.Status
		if status == "" {
			status = models.InvoiceUnpaid
		}

		inv := models.Invoice{
			StudentID:     body.StudentID,
			IssueDate:     issued,
			DueDate:       due,
			Amount:        body.Amount.Round(2),
			Description:   body.Description,
			Status:        status,
			IsIncome:      body.IsIncome == nil || *body.IsIncome,
			IsExpense:     body.IsExpense,
			TaxPercentage: body.TaxPercentage,
			IsPurchase:    body.IsPurchase,
		}
		if err := db.Create(&inv).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityInvoice,
			EntityID:    inv.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Invoice issued: %s for student #%d", inv.Amount.StringFixed(2), inv.StudentID),
			After:       inv,
		})

		inv, err = loadInvoice(db, inv.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToInvoiceResponse(inv))
	}
}

// PUT|PATCH /api/invoices/:id
func UpdateInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var body UpdateInvoiceRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var inv models.Invoice
		if err := httpx.FindOr404(db, &inv, id, "invoice not found"); err != nil {
			return err
		}
		before := inv

		if body.IssueDate != nil {
			if inv.IssueDate, err = httpx.ParseDateOr("issue_date", *body.IssueDate, inv.IssueDate); err != nil {
				return err
			}
		}
		if body.DueDate != nil {
			if inv.DueDate, err = httpx.ParseDateOr("due_date", *body.DueDate, inv.DueDate); err != nil {
				return err
			}
		}
		if inv.DueDate.Before(inv.IssueDate) {
			return validation.Field("due_date", "due date cannot be before the issue date")
		}
		if body.Amount != nil {
			inv.Amount = body.Amount.Round(2)
		}
		if body.Description != nil {
			inv.Description = *body.Description
		}
		if body.Status != nil {
			inv.Status = *body.Status
		}
		if body.IsIncome != nil {
			inv.IsIncome = *body.IsIncome
		}
		if body.IsExpense != nil {
			inv.IsExpense = *body.IsExpense
		}
		if body.IsPurchase != nil {
			inv.IsPurchase = *body.IsPurchase
		}
		if body.TaxPercentage != nil {
			inv.TaxPercentage = body.TaxPercentage
		} else if body.ClearTax {
			inv.TaxPercentage = nil
		}

		if err := db.Omit("Student").Save(&inv).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityInvoice,
			EntityID:    inv.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Invoice #%d updated", inv.ID),
			Before:      before,
			After:       inv,
		})

		inv, err = loadInvoice(db, inv.ID)
		if err != nil {
			return err
		}
		return c.JSON(ToInvoiceResponse(inv))
	}
}

// DELETE /api/invoices/:id
// Payments of the invoice are removed with it.
func DeleteInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var inv models.Invoice
		if err := httpx.FindOr404(db, &inv, id, "invoice not found"); err != nil {
			return err
		}
		if err := db.Delete(&inv).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityInvoice,
			EntityID:    inv.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Invoice #%d removed", inv.ID),
			Before:      inv,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
