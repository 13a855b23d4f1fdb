package finance

import (
	"fmt"

	"nursery-backend/internal/audit"
	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"
	"nursery-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreatePaymentRequest struct {
	InvoiceID     uint                 `json:"invoice_id" validate:"required"`
	Amount        *decimal.Decimal     `json:"amount" validate:"required,gt=0"`
	PaymentDate   string               `json:"payment_date" validate:"omitempty,datetime=2006-01-02"` // default today
	Method        models.PaymentMethod `json:"method" validate:"required,oneof=CASH CARD TRANSFER"`
	TransactionID string               `json:"transaction_id" validate:"max=50"`
}

type UpdatePaymentRequest struct {
	Amount        *decimal.Decimal      `json:"amount" validate:"omitempty,gt=0"`
	PaymentDate   *string               `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	Method        *models.PaymentMethod `json:"method" validate:"omitempty,oneof=CASH CARD TRANSFER"`
	TransactionID *string               `json:"transaction_id" validate:"omitempty,max=50"`
}

type PaymentResponse struct {
	ID             uint                 `json:"id"`
	InvoiceID      uint                 `json:"invoice_id"`
	InvoiceStudent string               `json:"invoice_student"`
	Amount         string               `json:"amount"`
	PaymentDate    string               `json:"payment_date"`
	Method         models.PaymentMethod `json:"method"`
	TransactionID  string               `json:"transaction_id"`
}

func ToPaymentResponse(p models.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:            p.ID,
		InvoiceID:     p.InvoiceID,
		Amount:        p.Amount.StringFixed(2),
		PaymentDate:   models.FormatDate(p.PaymentDate),
		Method:        p.Method,
		TransactionID: p.TransactionID,
	}
	if p.Invoice != nil && p.Invoice.Student != nil {
		resp.InvoiceStudent = p.Invoice.Student.FullName()
	}
	return resp
}

func loadPayment(db *gorm.DB, id uint) (models.Payment, error) {
	var p models.Payment
	err := httpx.FindOr404(db.Preload("Invoice.Student"), &p, id, "payment not found")
	return p, err
}

// SyncInvoiceStatus derives the invoice status from the sum of its payments:
// nothing paid is UNPAID, at least the taxed amount is PAID, anything in
// between is PARTIAL.
func SyncInvoiceStatus(tx *gorm.DB, invoiceID uint) error {
	var inv models.Invoice
	if err := tx.First(&inv, invoiceID).Error; err != nil {
		return errors.Wrapf(err, "load invoice %d", invoiceID)
	}

	var payments []models.Payment
	if err := tx.Where("invoice_id = ?", invoiceID).Find(&payments).Error; err != nil {
		return errors.Wrap(err, "load payments")
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	status := models.InvoiceUnpaid
	switch {
	case paid.GreaterThanOrEqual(inv.TaxedAmount()) && paid.IsPositive():
		status = models.InvoicePaid
	case paid.IsPositive():
		status = models.InvoicePartial
	}
	if status == inv.Status {
		return nil
	}
	return errors.Wrap(tx.Model(&inv).Update("status", status).Error, "update invoice status")
}

// GET /api/payments?invoice_id=1&method=CASH&from=&to=
func ListPaymentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).
			Model(&models.Payment{}).
			Preload("Invoice.Student")

		if iid, ok, err := httpx.ParseOptionalUint(c, "invoice_id"); err != nil {
			return err
		} else if ok {
			dbq = dbq.Where("invoice_id = ?", iid)
		}
		if m := c.Query("method"); m != "" {
			dbq = dbq.Where("method = ?", m)
		}
		if d, err := httpx.QueryDate(c, "from"); err != nil {
			return err
		} else if d != nil {
			dbq = dbq.Where("payment_date >= ?", *d)
		}
		if d, err := httpx.QueryDate(c, "to"); err != nil {
			return err
		} else if d != nil {
			dbq = dbq.Where("payment_date <= ?", *d)
		}

		var rows []models.Payment
		if err := dbq.Order("payment_date DESC, id DESC").Find(&rows).Error; err != nil {
			return err
		}

		resp := make([]PaymentResponse, 0, len(rows))
		for _, p := range rows {
			resp = append(resp, ToPaymentResponse(p))
		}
		return c.JSON(resp)
	}
}

// GET /api/payments/:id
func GetPaymentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		p, err := loadPayment(database.DB.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(ToPaymentResponse(p))
	}
}

// POST /api/payments
func CreatePaymentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreatePaymentRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		paidOn, err := httpx.ParseDateOr("payment_date", body.PaymentDate, httpx.Today())
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var n int64
		if err := db.Model(&models.Invoice{}).Where("id = ?", body.InvoiceID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return validation.Field("invoice_id", "invoice does not exist")
		}

		p := models.Payment{
			InvoiceID:     body.InvoiceID,
			Amount:        body.Amount.Round(2),
			PaymentDate:   paidOn,
			Method:        body.Method,
			TransactionID: body.TransactionID,
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			return SyncInvoiceStatus(tx, p.InvoiceID)
		})
		if err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityPayment,
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Payment of %s received for invoice #%d", p.Amount.StringFixed(2), p.InvoiceID),
			After:       p,
		})

		p, err = loadPayment(db, p.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToPaymentResponse(p))
	}
}

// PUT|PATCH /api/payments/:id
func UpdatePaymentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var body UpdatePaymentRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var p models.Payment
		if err := httpx.FindOr404(db, &p, id, "payment not found"); err != nil {
			return err
		}
		before := p

		if body.Amount != nil {
			p.Amount = body.Amount.Round(2)
		}
		if body.PaymentDate != nil {
			if p.PaymentDate, err = httpx.ParseDateOr("payment_date", *body.PaymentDate, p.PaymentDate); err != nil {
				return err
			}
		}
		if body.Method != nil {
			p.Method = *body.Method
		}
		if body.TransactionID != nil {
			p.TransactionID = *body.TransactionID
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit("Invoice").Save(&p).Error; err != nil {
				return err
			}
			return SyncInvoiceStatus(tx, p.InvoiceID)
		})
		if err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityPayment,
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Payment #%d updated", p.ID),
			Before:      before,
			After:       p,
		})

		p, err = loadPayment(db, p.ID)
		if err != nil {
			return err
		}
		return c.JSON(ToPaymentResponse(p))
	}
}

// DELETE /api/payments/:id
func DeletePaymentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var p models.Payment
		if err := httpx.FindOr404(db, &p, id, "payment not found"); err != nil {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&p).Error; err != nil {
				return err
			}
			return SyncInvoiceStatus(tx, p.InvoiceID)
		})
		if err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityPayment,
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Payment #%d removed", p.ID),
			Before:      p,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
