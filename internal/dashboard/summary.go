package dashboard

import (
	"time"

	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const recentLimit = 5

type RecentStudent struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name"`
	Enrolled string `json:"enrollment_date"`
}

type RecentInvoice struct {
	ID          uint   `json:"id"`
	StudentName string `json:"student_name"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
}

type Summary struct {
	Date           string          `json:"date"`
	Students       int64           `json:"students"`
	Staff          int64           `json:"staff"`
	Classrooms     int64           `json:"classrooms"`
	PresentToday   int64           `json:"present_today"`
	AttendancePct  float64         `json:"attendance_pct"`
	TotalInvoices  string          `json:"total_invoices"`
	UnpaidInvoices int64           `json:"unpaid_invoices"`
	InventoryTotal int64           `json:"inventory_total"`
	InventoryLow   int64           `json:"inventory_low"`
	RecentStudents []RecentStudent `json:"recent_students"`
	RecentUnpaid   []RecentInvoice `json:"recent_unpaid"`
}

// AttendancePercentage is present over total as a percentage with one
// decimal. No students means 0.
func AttendancePercentage(present, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return decimal.NewFromInt(present).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(total), 1).
		InexactFloat64()
}

// BuildSummary collects the dashboard counters for today.
func BuildSummary(db *gorm.DB, today time.Time) (Summary, error) {
	today = models.DateOf(today)
	s := Summary{
		Date:           models.FormatDate(today),
		RecentStudents: []RecentStudent{},
		RecentUnpaid:   []RecentInvoice{},
	}

	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.Student{}, &s.Students},
		{&models.Staff{}, &s.Staff},
		{&models.Classroom{}, &s.Classrooms},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return s, err
		}
	}

	if err := db.Model(&models.Attendance{}).
		Where("date = ? AND status = ? AND student_id IS NOT NULL", today, models.StatusPresent).
		Count(&s.PresentToday).Error; err != nil {
		return s, err
	}
	s.AttendancePct = AttendancePercentage(s.PresentToday, s.Students)

	var amounts []decimal.Decimal
	if err := db.Model(&models.Invoice{}).Pluck("amount", &amounts).Error; err != nil {
		return s, err
	}
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	s.TotalInvoices = total.StringFixed(2)

	if err := db.Model(&models.Invoice{}).
		Where("status = ?", models.InvoiceUnpaid).
		Count(&s.UnpaidInvoices).Error; err != nil {
		return s, err
	}

	if err := db.Model(&models.InventoryItem{}).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&s.InventoryTotal).Error; err != nil {
		return s, err
	}
	if err := db.Model(&models.InventoryItem{}).
		Where("quantity < ?", models.LowStockThreshold).
		Count(&s.InventoryLow).Error; err != nil {
		return s, err
	}

	var students []models.Student
	if err := db.Order("created_at DESC, id DESC").Limit(recentLimit).Find(&students).Error; err != nil {
		return s, err
	}
	for _, st := range students {
		s.RecentStudents = append(s.RecentStudents, RecentStudent{
			ID:       st.ID,
			FullName: st.FullName(),
			Enrolled: models.FormatDate(st.EnrollmentDate),
		})
	}

	var invoices []models.Invoice
	if err := db.Preload("Student").
		Where("status = ?", models.InvoiceUnpaid).
		Order("issue_date DESC, id DESC").
		Limit(recentLimit).
		Find(&invoices).Error; err != nil {
		return s, err
	}
	for _, inv := range invoices {
		ri := RecentInvoice{
			ID:      inv.ID,
			Amount:  inv.Amount.StringFixed(2),
			DueDate: models.FormatDate(inv.DueDate),
		}
		if inv.Student != nil {
			ri.StudentName = inv.Student.FullName()
		}
		s.RecentUnpaid = append(s.RecentUnpaid, ri)
	}

	return s, nil
}

// GET /api/dashboard/summary
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := BuildSummary(database.DB.WithContext(c.UserContext()), httpx.Today())
		if err != nil {
			return err
		}
		return c.JSON(s)
	}
}
