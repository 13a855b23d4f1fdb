package school

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

type CreateDocumentRequest struct {
	StudentID      uint                `json:"student_id" validate:"required"`
	DocType        models.DocumentType `json:"doc_type" validate:"required,oneof=BIRTH_CERT MEDICAL CONSENT OTHER"`
	File           string              `json:"file" validate:"required,max=255"`
	IssueDate      string              `json:"issue_date" validate:"required,datetime=2006-01-02"`
	ExpirationDate *string             `json:"expiration_date" validate:"omitempty,optional_date"`
}

// UpdateDocumentRequest: an empty expiration_date clears it.
type UpdateDocumentRequest struct {
	DocType        *models.DocumentType `json:"doc_type" validate:"omitempty,oneof=BIRTH_CERT MEDICAL CONSENT OTHER"`
	File           *string              `json:"file" validate:"omitempty,min=1,max=255"`
	IssueDate      *string              `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	ExpirationDate *string              `json:"expiration_date" validate:"omitempty,optional_date"`
}

type DocumentResponse struct {
	ID             uint                `json:"id"`
	StudentID      uint                `json:"student_id"`
	StudentName    string              `json:"student_name"`
	DocType        models.DocumentType `json:"doc_type"`
	File           string              `json:"file"`
	IssueDate      string              `json:"issue_date"`
	ExpirationDate *string             `json:"expiration_date"`
	IsExpired      bool                `json:"is_expired"`
}

func ToDocumentResponse(d models.StudentDocument) DocumentResponse {
	resp := DocumentResponse{
		ID:             d.ID,
		StudentID:      d.StudentID,
		DocType:        d.DocType,
		File:           d.File,
		IssueDate:      models.FormatDate(d.IssueDate),
		ExpirationDate: models.FormatDatePtr(d.ExpirationDate),
		IsExpired:      d.IsExpiredOn(httpx.Today()),
	}
	if d.Student != nil {
		resp.StudentName = d.Student.FullName()
	}
	return resp
}

func checkStudentExists(db *gorm.DB, id uint) error {
	var n int64
	if err := db.Model(&models.Student{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return validation.Field("student_id", "student does not exist")
	}
	return nil
}

func loadDocument(db *gorm.DB, id uint) (models.StudentDocument, error) {
	var d models.StudentDocument
	err := httpx.FindOr404(db.Preload("Student"), &d, id, "document not found")
	return d, err
}

// GET /api/student-documents?student_id=1&expired=true
func ListDocumentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).
			Model(&models.StudentDocument{}).
			Preload("Student")

		if sid, ok, err := httpx.ParseOptionalUint(c, "student_id"); err != nil {
			return err
		} else if ok {
			dbq = dbq.Where("student_id = ?", sid)
		}
		if dt := c.Query("doc_type"); dt != "" {
			dbq = dbq.Where("doc_type = ?", dt)
		}
		expired, err := httpx.QueryBool(c, "expired")
		if err != nil {
			return err
		}
		today := httpx.Today()
		if expired != nil {
			if *expired {
				dbq = dbq.Where("expiration_date IS NOT NULL AND expiration_date < ?", today)
			} else {
				dbq = dbq.Where("expiration_date IS NULL OR expiration_date >= ?", today)
			}
		}

		var rows []models.StudentDocument
		if err := dbq.Order("issue_date DESC, id DESC").Find(&rows).Error; err != nil {
			return err
		}

		resp := make([]DocumentResponse, 0, len(rows))
		for _, d := range rows {
			resp = append(resp, ToDocumentResponse(d))
		}
		return c.JSON(resp)
	}
}

// GET /api/student-documents/:id
func GetDocumentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		d, err := loadDocument(database.DB.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(ToDocumentResponse(d))
	}
}

// POST /api/student-documents
func CreateDocumentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateDocumentRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		issued, err := httpx.ParseDateOr("issue_date", body.IssueDate, httpx.Today())
		if err != nil {
			return err
		}
		expires, err := httpx.ParseDatePtr("expiration_date", body.ExpirationDate)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())
		if err := checkStudentExists(db, body.StudentID); err != nil {
			return err
		}

		d := models.StudentDocument{
			StudentID:      body.StudentID,
			DocType:        body.DocType,
			File:           body.File,
			IssueDate:      issued,
			ExpirationDate: expires,
		}
		if err := db.Create(&d).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityStudentDocument,
			EntityID:    d.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Document added: %s for student #%d", d.DocType, d.StudentID),
			After:       d,
		})

		d, err = loadDocument(db, d.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToDocumentResponse(d))
	}
}

// PUT|PATCH /api/student-documents/:id
func UpdateDocumentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var body UpdateDocumentRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var d models.StudentDocument
		if err := httpx.FindOr404(db, &d, id, "document not found"); err != nil {
			return err
		}
		before := d

		if body.DocType != nil {
			d.DocType = *body.DocType
		}
		if body.File != nil {
			d.File = *body.File
		}
		if body.IssueDate != nil {
			if d.IssueDate, err = httpx.ParseDateOr("issue_date", *body.IssueDate, d.IssueDate); err != nil {
				return err
			}
		}
		if body.ExpirationDate != nil {
			if d.ExpirationDate, err = httpx.ParseDatePtr("expiration_date", body.ExpirationDate); err != nil {
				return err
			}
		}

		if err := db.Omit("Student").Save(&d).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityStudentDocument,
			EntityID:    d.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Document updated: %s #%d", d.DocType, d.ID),
			Before:      before,
			After:       d,
		})

		d, err = loadDocument(db, d.ID)
		if err != nil {
			return err
		}
		return c.JSON(ToDocumentResponse(d))
	}
}

// DELETE /api/student-documents/:id
func DeleteDocumentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var d models.StudentDocument
		if err := httpx.FindOr404(db, &d, id, "document not found"); err != nil {
			return err
		}
		if err := db.Delete(&d).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityStudentDocument,
			EntityID:    d.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Document removed: %s #%d", d.DocType, d.ID),
			Before:      d,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
