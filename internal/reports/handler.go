package reports

import (
	"fmt"

	"nursery-backend/internal/config"
	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const (
	mimePDF  = "application/pdf"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// GET /api/reports/<name>/pdf
func PDFHandler(company config.Company, name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := httpx.Now()
		t, err := Build(database.DB.WithContext(c.UserContext()), name, now)
		if err != nil {
			return err
		}
		data, err := RenderPDF(company, t, now)
		if err != nil {
			return err
		}
		log.Debugw("report exported", "report", name, "format", "pdf", "rows", len(t.Rows))
		return httpx.SendAttachment(c, FileName(t.Title, "pdf"), mimePDF, data)
	}
}

// GET /api/reports/<name>/xlsx
func XLSXHandler(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := httpx.Now()
		t, err := Build(database.DB.WithContext(c.UserContext()), name, now)
		if err != nil {
			return err
		}
		data, err := RenderXLSX(t, now)
		if err != nil {
			return err
		}
		log.Debugw("report exported", "report", name, "format", "xlsx", "rows", len(t.Rows))
		return httpx.SendAttachment(c, FileName(t.Title, "xlsx"), mimeXLSX, data)
	}
}

// GET /api/reports/invoices/:id/pdf
func InvoicePDFHandler(company config.Company) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		now := httpx.Now()
		t, err := InvoiceTable(database.DB.WithContext(c.UserContext()), id, models.DateOf(now))
		if err != nil {
			if database.IsNotFound(err) {
				return fiber.NewError(fiber.StatusNotFound, "invoice not found")
			}
			return err
		}
		data, err := RenderPDF(company, t, now)
		if err != nil {
			return err
		}
		return httpx.SendAttachment(c, fmt.Sprintf("invoice_%d.pdf", id), mimePDF, data)
	}
}

// Register mounts the PDF and XLSX export of every report under r.
func Register(r fiber.Router, company config.Company) {
	r.Get("/invoices/:id/pdf", InvoicePDFHandler(company))
	for _, name := range Names() {
		r.Get("/"+name+"/pdf", PDFHandler(company, name))
		r.Get("/"+name+"/xlsx", XLSXHandler(name))
	}
}
