package medical

import (
	"fmt"

	"nursery-backend/internal/audit"
	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"
	"nursery-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateMedicalRecordRequest struct {
	StudentID   uint                     `json:"student_id" validate:"required"`
	RecordType  models.MedicalRecordType `json:"record_type" validate:"required,oneof=ALLERGY MEDICATION TREATMENT VACCINATION"`
	Date        string                   `json:"date" validate:"omitempty,datetime=2006-01-02"` // default today
	Description string                   `json:"description" validate:"required"`
	Attachment  string                   `json:"attachment" validate:"max=255"`
	Resolved    bool                     `json:"resolved"`
}

type UpdateMedicalRecordRequest struct {
	RecordType  *models.MedicalRecordType `json:"record_type" validate:"omitempty,oneof=ALLERGY MEDICATION TREATMENT VACCINATION"`
	Date        *string                   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description *string                   `json:"description" validate:"omitempty,min=1"`
	Attachment  *string                   `json:"attachment" validate:"omitempty,max=255"`
	Resolved    *bool                     `json:"resolved"`
}

type MedicalRecordResponse struct {
	ID          uint                     `json:"id"`
	StudentID   uint                     `json:"student_id"`
	StudentName string                   `json:"student_name"`
	RecordType  models.MedicalRecordType `json:"record_type"`
	Date        string                   `json:"date"`
	Description string                   `json:"description"`
	Attachment  string                   `json:"attachment"`
	Resolved    bool                     `json:"resolved"`
}

func ToResponse(m models.MedicalRecord) MedicalRecordResponse {
	resp := MedicalRecordResponse{
		ID:          m.ID,
		StudentID:   m.StudentID,
		RecordType:  m.RecordType,
		Date:        models.FormatDate(m.Date),
		Description: m.Description,
		Attachment:  m.Attachment,
		Resolved:    m.Resolved,
	}
	if m.Student != nil {
		resp.StudentName = m.Student.FullName()
	}
	return resp
}

func load(db *gorm.DB, id uint) (models.MedicalRecord, error) {
	var m models.MedicalRecord
	err := httpx.FindOr404(db.Preload("Student"), &m, id, "medical record not found")
	return m, err
}

// GET /api/medical?student_id=1&record_type=ALLERGY&resolved=false
func ListMedicalRecordsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).
			Model(&models.MedicalRecord{}).
			Preload("Student")

		if sid, ok, err := httpx.ParseOptionalUint(c, "student_id"); err != nil {
			return err
		} else if ok {
			dbq = dbq.Where("student_id = ?", sid)
		}
		if rt := c.Query("record_type"); rt != "" {
			dbq = dbq.Where("record_type = ?", rt)
		}
		resolved, err := httpx.QueryBool(c, "resolved")
		if err != nil {
			return err
		}
		if resolved != nil {
			dbq = dbq.Where("resolved = ?", *resolved)
		}

		var rows []models.MedicalRecord
		if err := dbq.Order("date DESC, id DESC").Find(&rows).Error; err != nil {
			return err
		}

		resp := make([]MedicalRecordResponse, 0, len(rows))
		for _, m := range rows {
			resp = append(resp, ToResponse(m))
		}
		return c.JSON(resp)
	}
}

// GET /api/medical/:id
func GetMedicalRecordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		m, err := load(database.DB.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(m))
	}
}

// POST /api/medical
func CreateMedicalRecordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateMedicalRecordRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		day, err := httpx.ParseDateOr("date", body.Date, httpx.Today())
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var n int64
		if err := db.Model(&models.Student{}).Where("id = ?", body.StudentID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return validation.Field("student_id", "student does not exist")
		}

		m := models.MedicalRecord{
			StudentID:   body.StudentID,
			RecordType:  body.RecordType,
			Date:        day,
			Description: body.Description,
			Attachment:  body.Attachment,
			Resolved:    body.Resolved,
		}
		if err := db.Create(&m).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityMedicalRecord,
			EntityID:    m.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Medical record added: %s for student #%d", m.RecordType, m.StudentID),
			After:       m,
		})

		m, err = load(db, m.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(m))
	}
}

// PUT|PATCH /api/medical/:id
func UpdateMedicalRecordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var body UpdateMedicalRecordRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var m models.MedicalRecord
		if err := httpx.FindOr404(db, &m, id, "medical record not found"); err != nil {
			return err
		}
		before := m

		if body.RecordType != nil {
			m.RecordType = *body.RecordType
		}
		if body.Date != nil {
			if m.Date, err = httpx.ParseDateOr("date", *body.Date, m.Date); err != nil {
				return err
			}
		}
		if body.Description != nil {
			m.Description = *body.Description
		}
		if body.Attachment != nil {
			m.Attachment = *body.Attachment
		}
		if body.Resolved != nil {
			m.Resolved = *body.Resolved
		}

		if err := db.Omit("Student").Save(&m).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityMedicalRecord,
			EntityID:    m.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Medical record #%d updated", m.ID),
			Before:      before,
			After:       m,
		})

		m, err = load(db, m.ID)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(m))
	}
}

// DELETE /api/medical/:id
func DeleteMedicalRecordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var m models.MedicalRecord
		if err := httpx.FindOr404(db, &m, id, "medical record not found"); err != nil {
			return err
		}
		if err := db.Delete(&m).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityMedicalRecord,
			EntityID:    m.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Medical record #%d removed", m.ID),
			Before:      m,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
