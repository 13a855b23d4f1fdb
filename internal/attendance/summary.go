package attendance

import (
	"time"

	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Statuses lists every attendance status in display order.
var Statuses = []models.AttendanceStatus{
	models.StatusPresent, models.StatusAbsent, models.StatusLate, models.StatusSick,
}

// Summary counts attendance rows per status for one date range.
type Summary struct {
	From     string                            `json:"from"`
	To       string                            `json:"to"`
	Students map[models.AttendanceStatus]int64 `json:"students"`
	Staff    map[models.AttendanceStatus]int64 `json:"staff"`
}

func emptyCounts() map[models.AttendanceStatus]int64 {
	m := make(map[models.AttendanceStatus]int64, len(Statuses))
	for _, s := range Statuses {
		m[s] = 0
	}
	return m
}

// Summarize counts student and staff attendance between from and to inclusive.
func Summarize(db *gorm.DB, from, to time.Time) (Summary, error) {
	out := Summary{
		From:     models.FormatDate(from),
		To:       models.FormatDate(to),
		Students: emptyCounts(),
		Staff:    emptyCounts(),
	}

	type row struct {
		Status models.AttendanceStatus
		Total  int64
	}
	for subject, dst := range map[string]map[models.AttendanceStatus]int64{
		"student_id": out.Students,
		"staff_id":   out.Staff,
	} {
		var rows []row
		err := db.Model(&models.Attendance{}).
			Select("status, COUNT(*) AS total").
			Where(subject+" IS NOT NULL").
			Where("date >= ? AND date <= ?", models.DateOf(from), models.DateOf(to)).
			Group("status").
			Scan(&rows).Error
		if err != nil {
			return Summary{}, err
		}
		for _, r := range rows {
			dst[r.Status] = r.Total
		}
	}
	return out, nil
}

// GET /api/attendance/summary?from=2026-10-01&to=2026-10-18
// Defaults to the current month up to today.
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		today := httpx.Today()
		from, to := models.MonthStart(today), today

		if d, err := httpx.QueryDate(c, "from"); err != nil {
			return err
		} else if d != nil {
			from = *d
		}
		if d, err := httpx.QueryDate(c, "to"); err != nil {
			return err
		} else if d != nil {
			to = *d
		}
		if from.After(to) {
			return fiber.NewError(fiber.StatusBadRequest, "from must not be after to")
		}

		s, err := Summarize(database.DB.WithContext(c.UserContext()), from, to)
		if err != nil {
			return err
		}
		return c.JSON(s)
	}
}
