package reports

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"nursery-backend/internal/apitest"
	"nursery-backend/internal/config"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"
	"nursery-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var company = config.Company{
	Name:    "PP Nursery Management",
	Address: "123 Nursery Street, Dubai, UAE",
	Email:   "info@ppnursery.com",
	Phone:   "+971-4-123-4567",
}

func seed(t *testing.T, db *gorm.DB) models.Invoice {
	t.Helper()
	amal := testutil.CreateStaff(t, db, "Amal", "amal@nursery.test", models.RoleTeacher)
	kid := testutil.CreateStudent(t, db, "Zoë", testutil.Date(2022, time.May, 1))
	inv := testutil.CreateInvoice(t, db, kid.ID, "1200", models.InvoicePartial)
	require.NoError(t, db.Create(&models.Payment{
		InvoiceID: inv.ID, Amount: testutil.Dec("200"), PaymentDate: testutil.Date(2026, time.October, 3), Method: models.MethodCash,
	}).Error)
	testutil.CreateContract(t, db, amal.ID, "5000", "500", "10", testutil.Date(2026, time.January, 1), nil)
	require.NoError(t, db.Create(&models.Attendance{
		StudentID: &kid.ID, Date: testutil.Date(2026, time.October, 5), Status: models.StatusPresent,
	}).Error)
	require.NoError(t, db.Create(&models.InventoryItem{
		Name: "Crayons", Category: models.CategoryStationery, Quantity: 3, UnitPrice: testutil.Dec("2.50"),
	}).Error)
	return inv
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "staff_report.pdf", FileName("Staff Report", "pdf"))
	assert.Equal(t, "invoice_7.xlsx", FileName("Invoice #7", "xlsx"))
	assert.Equal(t, "report.pdf", FileName("***", "pdf"))
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Invoice 7", sheetName("Invoice [7]"))
	assert.Len(t, []rune(sheetName(strings.Repeat("x", 40))), 31)
	assert.Equal(t, "Report", sheetName("/?"))
}

func TestBuild_EveryReport(t *testing.T) {
	db := testutil.PrepareDB(t)
	seed(t, db)
	today := testutil.Date(2026, time.October, 18)

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			tbl, err := Build(db, name, today)
			require.NoError(t, err)
			assert.NotEmpty(t, tbl.Title)
			assert.NotEmpty(t, tbl.Headers)
			for _, row := range tbl.Rows {
				assert.Len(t, row, len(tbl.Headers))
			}
		})
	}

	_, err := Build(db, "nope", today)
	assert.Error(t, err)
}

func TestBuild_Contents(t *testing.T) {
	db := testutil.PrepareDB(t)
	seed(t, db)
	today := testutil.Date(2026, time.October, 18)

	inv, err := Build(db, "invoices", today)
	require.NoError(t, err)
	require.Len(t, inv.Rows, 1)
	assert.Equal(t, "Zoë Kid", inv.Rows[0][1])
	assert.Equal(t, 13, inv.Rows[0][4])
	assert.Contains(t, inv.Summary, SummaryLine{Label: "Outstanding", Value: "1200.00"})

	staffOnly, err := Build(db, "attendance/staff", today)
	require.NoError(t, err)
	assert.Empty(t, staffOnly.Rows)

	students, err := Build(db, "attendance/students", today)
	require.NoError(t, err)
	assert.Len(t, students.Rows, 1)

	stock, err := Build(db, "inventory", today)
	require.NoError(t, err)
	assert.Contains(t, stock.Summary, SummaryLine{Label: "Low stock", Value: "1"})
	assert.Contains(t, stock.Summary, SummaryLine{Label: "Total value", Value: "7.50"})
}

func TestRenderPDF(t *testing.T) {
	tbl := Table{Title: "Empty Report", Headers: []string{"ID", "Name"}}
	data, err := RenderPDF(company, tbl, time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	long := Table{Title: "Long Report", Headers: []string{"ID", "Text"}}
	for i := 0; i < 120; i++ {
		long.AddRow(i, strings.Repeat("very long cell text ", 20))
	}
	data, err = RenderPDF(company, long, time.Now())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestRenderXLSX(t *testing.T) {
	tbl := Table{Title: "Invoices Report", Headers: []string{"ID", "Student", "Amount"}}
	tbl.AddRow(1, "Zoë Kid", testutil.Dec("1260"))
	tbl.AddSummary("Total", "1260.00")

	data, err := RenderXLSX(tbl, time.Now())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	assert.Equal(t, "Invoices Report", sheet)
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, []string{"ID", "Student", "Amount"}, rows[0])
	assert.Equal(t, "Zoë Kid", rows[1][1])

	raw, err := f.GetCellValue(sheet, "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1260", raw)

	total, err := f.GetCellValue(sheet, "A4")
	require.NoError(t, err)
	assert.Equal(t, "Total", total)
}

func newApp() *fiber.App {
	app := apitest.NewApp(apitest.AsRole(models.RoleManager))
	Register(app.Group("/api/reports"), company)
	return app
}

func TestHandlers(t *testing.T) {
	db := testutil.PrepareDB(t)
	inv := seed(t, db)
	prev := httpx.Now
	httpx.Now = func() time.Time { return time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { httpx.Now = prev })
	app := newApp()

	for _, name := range Names() {
		resp := apitest.Do(t, app, "GET", "/api/reports/"+name+"/pdf", nil)
		require.Equal(t, fiber.StatusOK, resp.Status, name)
		assert.Equal(t, mimePDF, resp.Header[fiber.HeaderContentType], name)
		assert.True(t, strings.HasPrefix(resp.Header[fiber.HeaderContentDisposition], "attachment;"), name)
		assert.True(t, bytes.HasPrefix(resp.Raw, []byte("%PDF")), name)

		resp = apitest.Do(t, app, "GET", "/api/reports/"+name+"/xlsx", nil)
		require.Equal(t, fiber.StatusOK, resp.Status, name)
		assert.Contains(t, resp.Header[fiber.HeaderContentDisposition], ".xlsx", name)
		_, err := excelize.OpenReader(bytes.NewReader(resp.Raw))
		assert.NoError(t, err, name)
	}

	resp := apitest.Do(t, app, "GET", "/api/reports/students/pdf", nil)
	assert.Equal(t, `attachment; filename="students_report.pdf"`, resp.Header[fiber.HeaderContentDisposition])

	resp = apitest.Do(t, app, "GET", fmt.Sprintf("/api/reports/invoices/%d/pdf", inv.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, fmt.Sprintf(`attachment; filename="invoice_%d.pdf"`, inv.ID), resp.Header[fiber.HeaderContentDisposition])
	assert.True(t, bytes.HasPrefix(resp.Raw, []byte("%PDF")))

	resp = apitest.Do(t, app, "GET", "/api/reports/invoices/999/pdf", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.Status)
}
