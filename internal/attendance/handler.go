package attendance

import (
	"errors"
	"fmt"

	"nursery-backend/internal/audit"
	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"
	"nursery-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateAttendanceRequest struct {
	StudentID *uint                   `json:"student_id"`
	StaffID   *uint                   `json:"staff_id"`
	Date      string                  `json:"date" validate:"omitempty,datetime=2006-01-02"` // default today
	Status    models.AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT LATE SICK"`
	CheckIn   *string                 `json:"check_in" validate:"omitempty,optional_time"`
	CheckOut  *string                 `json:"check_out" validate:"omitempty,optional_time"`
	Notes     string                  `json:"notes"`
}

type UpdateAttendanceRequest struct {
	Date     *string                  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status   *models.AttendanceStatus `json:"status" validate:"omitempty,oneof=PRESENT ABSENT LATE SICK"`
	CheckIn  *string                  `json:"check_in" validate:"omitempty,optional_time"`
	CheckOut *string                  `json:"check_out" validate:"omitempty,optional_time"`
	Notes    *string                  `json:"notes"`
}

type AttendanceResponse struct {
	ID          uint                    `json:"id"`
	StudentID   *uint                   `json:"student_id"`
	StudentName *string                 `json:"student_name"`
	StaffID     *uint                   `json:"staff_id"`
	StaffName   *string                 `json:"staff_name"`
	Date        string                  `json:"date"`
	Status      models.AttendanceStatus `json:"status"`
	CheckIn     *string                 `json:"check_in"`
	CheckOut    *string                 `json:"check_out"`
	Notes       string                  `json:"notes"`
}

func ToResponse(a models.Attendance) AttendanceResponse {
	resp := AttendanceResponse{
		ID:        a.ID,
		StudentID: a.StudentID,
		StaffID:   a.StaffID,
		Date:      models.FormatDate(a.Date),
		Status:    a.Status,
		CheckIn:   a.CheckIn,
		CheckOut:  a.CheckOut,
		Notes:     a.Notes,
	}
	if a.Student != nil {
		n := a.Student.FullName()
		resp.StudentName = &n
	}
	if a.Staff != nil {
		n := a.Staff.FullName()
		resp.StaffName = &n
	}
	return resp
}

const duplicateDay = "attendance for this person on this date already exists"

// validateRecord turns model rule violations into 400s.
func validateRecord(a models.Attendance) error {
	switch err := a.Validate(httpx.Today()); {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrAttendanceInFuture):
		return validation.Field("date", err.Error())
	default:
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
}

func checkSubjects(db *gorm.DB, studentID, staffID *uint) error {
	if studentID != nil {
		var n int64
		if err := db.Model(&models.Student{}).Where("id = ?", *studentID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return validation.Field("student_id", "student does not exist")
		}
	}
	if staffID != nil {
		var n int64
		if err := db.Model(&models.Staff{}).Where("id = ?", *staffID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return validation.Field("staff_id", "staff member does not exist")
		}
	}
	return nil
}

func load(db *gorm.DB, id uint) (models.Attendance, error) {
	var a models.Attendance
	err := httpx.FindOr404(db.Preload("Student").Preload("Staff"), &a, id, "attendance record not found")
	return a, err
}

// GET /api/attendance?date=2026-10-01&from=&to=&student_id=&staff_id=&status=&kind=students|staff
func ListAttendanceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).
			Model(&models.Attendance{}).
			Preload("Student").
			Preload("Staff")

		for _, key := range []string{"date", "from", "to"} {
			d, err := httpx.QueryDate(c, key)
			if err != nil {
				return err
			}
			if d == nil {
				continue
			}
			switch key {
			case "date":
				dbq = dbq.Where("date = ?", *d)
			case "from":
				dbq = dbq.Where("date >= ?", *d)
			case "to":
				dbq = dbq.Where("date <= ?", *d)
			}
		}
		if sid, ok, err := httpx.ParseOptionalUint(c, "student_id"); err != nil {
			return err
		} else if ok {
			dbq = dbq.Where("student_id = ?", sid)
		}
		if sid, ok, err := httpx.ParseOptionalUint(c, "staff_id"); err != nil {
			return err
		} else if ok {
			dbq = dbq.Where("staff_id = ?", sid)
		}
		if st := c.Query("status"); st != "" {
			dbq = dbq.Where("status = ?", st)
		}
		switch c.Query("kind") {
		case "":
		case "students":
			dbq = dbq.Where("student_id IS NOT NULL")
		case "staff":
			dbq = dbq.Where("staff_id IS NOT NULL")
		default:
			return fiber.NewError(fiber.StatusBadRequest, "kind must be students or staff")
		}

		var rows []models.Attendance
		if err := dbq.Order("date DESC, id DESC").Find(&rows).Error; err != nil {
			return err
		}

		resp := make([]AttendanceResponse, 0, len(rows))
		for _, a := range rows {
			resp = append(resp, ToResponse(a))
		}
		return c.JSON(resp)
	}
}

// GET /api/attendance/:id
func GetAttendanceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		a, err := load(database.DB.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(a))
	}
}

// POST /api/attendance
func CreateAttendanceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateAttendanceRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		day, err := httpx.ParseDateOr("date", body.Date, httpx.Today())
		if err != nil {
			return err
		}

		a := models.Attendance{
			StudentID: body.StudentID,
			StaffID:   body.StaffID,
			Date:      day,
			Status:    body.Status,
			CheckIn:   optionalTime(body.CheckIn),
			CheckOut:  optionalTime(body.CheckOut),
			Notes:     body.Notes,
		}
		if err := validateRecord(a); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())
		if err := checkSubjects(db, a.StudentID, a.StaffID); err != nil {
			return err
		}
		if err := db.Create(&a).Error; err != nil {
			return httpx.SaveError(err, duplicateDay)
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityAttendance,
			EntityID:    a.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Attendance %s on %s", a.Status, models.FormatDate(a.Date)),
			After:       a,
		})

		a, err = load(db, a.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(a))
	}
}

// PUT|PATCH /api/attendance/:id
// The subject of a record is fixed; delete and recreate to move it.
func UpdateAttendanceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var body UpdateAttendanceRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var a models.Attendance
		if err := httpx.FindOr404(db, &a, id, "attendance record not found"); err != nil {
			return err
		}
		before := a

		if body.Date != nil {
			if a.Date, err = httpx.ParseDateOr("date", *body.Date, a.Date); err != nil {
				return err
			}
		}
		if body.Status != nil {
			a.Status = *body.Status
		}
		if body.CheckIn != nil {
			a.CheckIn = emptyToNil(*body.CheckIn)
		}
		if body.CheckOut != nil {
			a.CheckOut = emptyToNil(*body.CheckOut)
		}
		if body.Notes != nil {
			a.Notes = *body.Notes
		}
		if err := validateRecord(a); err != nil {
			return err
		}

		if err := db.Omit("Student", "Staff").Save(&a).Error; err != nil {
			return httpx.SaveError(err, duplicateDay)
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityAttendance,
			EntityID:    a.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Attendance #%d updated to %s", a.ID, a.Status),
			Before:      before,
			After:       a,
		})

		a, err = load(db, a.ID)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(a))
	}
}

func optionalTime(p *string) *string {
	if p == nil {
		return nil
	}
	return emptyToNil(*p)
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DELETE /api/attendance/:id
func DeleteAttendanceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var a models.Attendance
		if err := httpx.FindOr404(db, &a, id, "attendance record not found"); err != nil {
			return err
		}
		if err := db.Delete(&a).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityAttendance,
			EntityID:    a.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Attendance #%d removed", a.ID),
			Before:      a,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
