package dashboard

import (
	"testing"
	"time"

	"nursery-backend/internal/apitest"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"
	"nursery-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAttendancePercentage(t *testing.T) {
	tests := []struct {
		present, total int64
		want           float64
	}{
		{0, 0, 0},
		{4, 0, 0},
		{0, 5, 0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{3, 3, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AttendancePercentage(tt.present, tt.total), "%d/%d", tt.present, tt.total)
	}
}

func mark(t *testing.T, db *gorm.DB, a models.Attendance) {
	t.Helper()
	require.NoError(t, db.Create(&a).Error)
}

func TestBuildSummary(t *testing.T) {
	db := testutil.PrepareDB(t)
	today := testutil.Date(2026, time.October, 18)

	reem := testutil.CreateStudent(t, db, "Reem", testutil.Date(2022, time.May, 1))
	omar := testutil.CreateStudent(t, db, "Omar", testutil.Date(2022, time.June, 1))
	testutil.CreateStudent(t, db, "Lina", testutil.Date(2023, time.January, 9))
	amal := testutil.CreateStaff(t, db, "Amal", "amal@nursery.test", models.RoleTeacher)

	mark(t, db, models.Attendance{StudentID: &reem.ID, Date: today, Status: models.StatusPresent})
	mark(t, db, models.Attendance{StudentID: &omar.ID, Date: today, Status: models.StatusLate})
	mark(t, db, models.Attendance{StudentID: &omar.ID, Date: today.AddDate(0, 0, -1), Status: models.StatusPresent})
	mark(t, db, models.Attendance{StaffID: &amal.ID, Date: today, Status: models.StatusPresent})

	testutil.CreateInvoice(t, db, reem.ID, "1200", models.InvoiceUnpaid)
	testutil.CreateInvoice(t, db, omar.ID, "300.50", models.InvoicePaid)

	require.NoError(t, db.Create(&models.InventoryItem{Name: "Crayons", Category: models.CategoryStationery, Quantity: 3, UnitPrice: testutil.Dec("2")}).Error)
	require.NoError(t, db.Create(&models.InventoryItem{Name: "Hats", Category: models.CategoryUniform, Quantity: 10, UnitPrice: testutil.Dec("15")}).Error)

	s, err := BuildSummary(db, today.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", s.Date)
	assert.EqualValues(t, 3, s.Students)
	assert.EqualValues(t, 1, s.Staff)
	assert.EqualValues(t, 0, s.Classrooms)
	assert.EqualValues(t, 1, s.PresentToday)
	assert.Equal(t, 33.3, s.AttendancePct)
	assert.Equal(t, "1500.50", s.TotalInvoices)
	assert.EqualValues(t, 1, s.UnpaidInvoices)
	assert.EqualValues(t, 13, s.InventoryTotal)
	assert.EqualValues(t, 1, s.InventoryLow)
	assert.Len(t, s.RecentStudents, 3)
	require.Len(t, s.RecentUnpaid, 1)
	assert.Equal(t, "Reem Kid", s.RecentUnpaid[0].StudentName)
}

func TestSummaryHandler_EmptyDatabase(t *testing.T) {
	testutil.PrepareDB(t)
	app := apitest.NewApp(apitest.AsRole(models.RoleSupport))
	app.Get("/api/dashboard/summary", SummaryHandler())

	resp := apitest.Do(t, app, "GET", "/api/dashboard/summary", nil)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	body := resp.Map(t)
	assert.EqualValues(t, 0, body["students"])
	assert.EqualValues(t, 0, body["attendance_pct"])
	assert.Equal(t, "0.00", body["total_invoices"])
	assert.EqualValues(t, 0, body["inventory_total"])
	assert.Empty(t, body["recent_students"])
}

func TestPaymentsChart(t *testing.T) {
	db := testutil.PrepareDB(t)
	prev := httpx.Now
	httpx.Now = func() time.Time { return testutil.Date(2026, time.October, 18).Add(10 * time.Hour) }
	t.Cleanup(func() { httpx.Now = prev })

	kid := testutil.CreateStudent(t, db, "Reem", testutil.Date(2022, time.May, 1))
	inv := testutil.CreateInvoice(t, db, kid.ID, "5000", models.InvoicePartial)
	pay := func(day int, amount string, m models.PaymentMethod) {
		p := models.Payment{InvoiceID: inv.ID, Amount: testutil.Dec(amount), PaymentDate: testutil.Date(2026, time.October, day), Method: m}
		require.NoError(t, db.Create(&p).Error)
	}
	pay(18, "100", models.MethodCash)
	pay(18, "50", models.MethodCard)
	pay(13, "20", models.MethodTransfer)
	pay(1, "999", models.MethodCash)

	app := apitest.NewApp(apitest.Superuser)
	app.Get("/api/dashboard/payments-chart", PaymentsChartHandler())

	var daily PaymentsChart
	resp := apitest.Do(t, app, "GET", "/api/dashboard/payments-chart", nil)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	resp.JSON(t, &daily)
	assert.Equal(t, "daily", daily.Period)
	assert.Equal(t, "2026-10-12", daily.From)
	assert.Equal(t, "2026-10-18", daily.To)
	require.Len(t, daily.Points, 2)
	assert.Equal(t, "2026-10-13", daily.Points[0].Label)
	assert.Equal(t, "20.00", daily.Points[0].Transfer)
	assert.Equal(t, "150.00", daily.Points[1].Total)
	assert.Equal(t, "170.00", daily.GrandTotals.Total)

	var monthly PaymentsChart
	apitest.Do(t, app, "GET", "/api/dashboard/payments-chart?period=monthly&count=1", nil).JSON(t, &monthly)
	require.Len(t, monthly.Points, 1)
	assert.Equal(t, "2026-10-01", monthly.Points[0].Label)
	assert.Equal(t, "1099.00", monthly.GrandTotals.Cash)
	assert.Equal(t, "1169.00", monthly.GrandTotals.Total)

	var weekly PaymentsChart
	apitest.Do(t, app, "GET", "/api/dashboard/payments-chart?period=weekly&count=1", nil).JSON(t, &weekly)
	assert.Equal(t, "2026-10-12", weekly.From)
	assert.Equal(t, "2026-10-18", weekly.To)
	assert.Equal(t, "170.00", weekly.GrandTotals.Total)

	resp = apitest.Do(t, app, "GET", "/api/dashboard/payments-chart?count=0", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
}
