package school

import (
	"fmt"
	"strings"

	"nursery-backend/internal/audit"
	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"
	"nursery-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateStudentRequest struct {
	FirstName         string        `json:"first_name" validate:"required,max=50"`
	LastName          string        `json:"last_name" validate:"required,max=50"`
	DateOfBirth       string        `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Gender            models.Gender `json:"gender" validate:"required,oneof=M F O"`
	ProfileImage      string        `json:"profile_image" validate:"max=255"`
	ClassroomID       *uint         `json:"classroom_id"`
	TeacherID         *uint         `json:"teacher_id"`
	EnrollmentDate    string        `json:"enrollment_date" validate:"omitempty,datetime=2006-01-02"`
	EnrollmentHistory string        `json:"enrollment_history"`
	UploadedDocuments string        `json:"uploaded_documents" validate:"max=255"`
	EvaluationNotes   string        `json:"evaluation_notes"`
	IsActive          *bool         `json:"is_active"`
	Allergies         string        `json:"allergies"`
	MedicalNotes      string        `json:"medical_notes"`
	GuardianName      string        `json:"guardian_name" validate:"required,max=100"`
	GuardianContact   string        `json:"guardian_contact" validate:"required,max=20"`
	EmergencyContact  string        `json:"emergency_contact" validate:"required,max=20"`
}

// UpdateStudentRequest: a classroom_id or teacher_id of 0 clears the link.
type UpdateStudentRequest struct {
	FirstName         *string        `json:"first_name" validate:"omitempty,min=1,max=50"`
	LastName          *string        `json:"last_name" validate:"omitempty,min=1,max=50"`
	DateOfBirth       *string        `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender            *models.Gender `json:"gender" validate:"omitempty,oneof=M F O"`
	ProfileImage      *string        `json:"profile_image" validate:"omitempty,max=255"`
	ClassroomID       *uint          `json:"classroom_id"`
	TeacherID         *uint          `json:"teacher_id"`
	EnrollmentDate    *string        `json:"enrollment_date" validate:"omitempty,datetime=2006-01-02"`
	EnrollmentHistory *string        `json:"enrollment_history"`
	UploadedDocuments *string        `json:"uploaded_documents" validate:"omitempty,max=255"`
	EvaluationNotes   *string        `json:"evaluation_notes"`
	IsActive          *bool          `json:"is_active"`
	Allergies         *string        `json:"allergies"`
	MedicalNotes      *string        `json:"medical_notes"`
	GuardianName      *string        `json:"guardian_name" validate:"omitempty,min=1,max=100"`
	GuardianContact   *string        `json:"guardian_contact" validate:"omitempty,min=1,max=20"`
	EmergencyContact  *string        `json:"emergency_contact" validate:"omitempty,min=1,max=20"`
}

type StudentResponse struct {
	ID                uint          `json:"id"`
	FirstName         string        `json:"first_name"`
	LastName          string        `json:"last_name"`
	FullName          string        `json:"full_name"`
	DateOfBirth       string        `json:"date_of_birth"`
	Age               int           `json:"age"`
	Gender            models.Gender `json:"gender"`
	ProfileImage      string        `json:"profile_image"`
	ClassroomID       *uint         `json:"classroom_id"`
	ClassroomName     *string       `json:"classroom_name"`
	TeacherID         *uint         `json:"teacher_id"`
	TeacherName       *string       `json:"teacher_name"`
	EnrollmentDate    string        `json:"enrollment_date"`
	EnrollmentHistory string        `json:"enrollment_history"`
	UploadedDocuments string        `json:"uploaded_documents"`
	EvaluationNotes   string        `json:"evaluation_notes"`
	IsActive          bool          `json:"is_active"`
	Allergies         string        `json:"allergies"`
	MedicalNotes      string        `json:"medical_notes"`
	GuardianName      string        `json:"guardian_name"`
	GuardianContact   string        `json:"guardian_contact"`
	EmergencyContact  string        `json:"emergency_contact"`
	CreatedAt         string        `json:"created_at"`
	UpdatedAt         string        `json:"updated_at"`
}

func ToStudentResponse(s models.Student) StudentResponse {
	resp := StudentResponse{
		ID:                s.ID,
		FirstName:         s.FirstName,
		LastName:          s.LastName,
		FullName:          s.FullName(),
		DateOfBirth:       models.FormatDate(s.DateOfBirth),
		Age:               s.AgeOn(httpx.Today()),
		Gender:            s.Gender,
		ProfileImage:      s.ProfileImage,
		ClassroomID:       s.ClassroomID,
		TeacherID:         s.TeacherID,
		EnrollmentDate:    models.FormatDate(s.EnrollmentDate),
		EnrollmentHistory: s.EnrollmentHistory,
		UploadedDocuments: s.UploadedDocuments,
		EvaluationNotes:   s.EvaluationNotes,
		IsActive:          s.IsActive,
		Allergies:         s.Allergies,
		MedicalNotes:      s.MedicalNotes,
		GuardianName:      s.GuardianName,
		GuardianContact:   s.GuardianContact,
		EmergencyContact:  s.EmergencyContact,
		CreatedAt:         s.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:         s.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if s.Classroom != nil {
		name := s.Classroom.String()
		resp.ClassroomName = &name
	}
	if s.Teacher != nil {
		name := s.Teacher.FullName()
		resp.TeacherName = &name
	}
	return resp
}

// checkStudentLinks verifies the optional classroom and teacher exist.
func checkStudentLinks(db *gorm.DB, classroomID, teacherID *uint) error {
	if classroomID != nil {
		var n int64
		if err := db.Model(&models.Classroom{}).Where("id = ?", *classroomID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return validation.Field("classroom_id", "classroom does not exist")
		}
	}
	if teacherID != nil {
		var n int64
		if err := db.Model(&models.Staff{}).Where("id = ?", *teacherID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return validation.Field("teacher_id", "staff member does not exist")
		}
	}
	return nil
}

func loadStudent(db *gorm.DB, id uint) (models.Student, error) {
	var s models.Student
	err := httpx.FindOr404(db.Preload("Classroom").Preload("Teacher"), &s, id, "student not found")
	return s, err
}

// GET /api/students?classroom_id=1&is_active=true&search=ali
func ListStudentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).
			Model(&models.Student{}).
			Preload("Classroom").
			Preload("Teacher")

		if cid, ok, err := httpx.ParseOptionalUint(c, "classroom_id"); err != nil {
			return err
		} else if ok {
			dbq = dbq.Where("classroom_id = ?", cid)
		}
		active, err := httpx.QueryBool(c, "is_active")
		if err != nil {
			return err
		}
		if active != nil {
			dbq = dbq.Where("is_active = ?", *active)
		}
		if q := strings.TrimSpace(c.Query("search")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			dbq = dbq.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like)
		}

		var rows []models.Student
		if err := dbq.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
			return err
		}

		resp := make([]StudentResponse, 0, len(rows))
		for _, s := range rows {
			resp = append(resp, ToStudentResponse(s))
		}
		return c.JSON(resp)
	}
}

// GET /api/students/:id
func GetStudentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		s, err := loadStudent(database.DB.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(ToStudentResponse(s))
	}
}

// POST /api/students
func CreateStudentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateStudentRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		born, err := httpx.ParseDateOr("date_of_birth", body.DateOfBirth, httpx.Today())
		if err != nil {
			return err
		}
		enrolled, err := httpx.ParseDateOr("enrollment_date", body.EnrollmentDate, httpx.Today())
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())
		if err := checkStudentLinks(db, body.ClassroomID, body.TeacherID); err != nil {
			return err
		}

		s := models.Student{
			FirstName:         body.FirstName,
			LastName:          body.LastName,
			DateOfBirth:       born,
			Gender:            body.Gender,
			ProfileImage:      body.ProfileImage,
			ClassroomID:       body.ClassroomID,
			TeacherID:         body.TeacherID,
			EnrollmentDate:    enrolled,
			EnrollmentHistory: body.EnrollmentHistory,
			UploadedDocuments: body.UploadedDocuments,
			EvaluationNotes:   body.EvaluationNotes,
			IsActive:          body.IsActive == nil || *body.IsActive,
			Allergies:         body.Allergies,
			MedicalNotes:      body.MedicalNotes,
			GuardianName:      body.GuardianName,
			GuardianContact:   body.GuardianContact,
			EmergencyContact:  body.EmergencyContact,
		}
		if err := db.Create(&s).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityStudent,
			EntityID:    s.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Student enrolled: %s", s.FullName()),
			After:       s,
		})

		s, err = loadStudent(db, s.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToStudentResponse(s))
	}
}

func optionalLink(v *uint) (set bool, val *uint) {
	if v == nil {
		return false, nil
	}
	if *v == 0 {
		return true, nil
	}
	return true, v
}

// PUT|PATCH /api/students/:id
func UpdateStudentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var body UpdateStudentRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var s models.Student
		if err := httpx.FindOr404(db, &s, id, "student not found"); err != nil {
			return err
		}
		before := s

		setClassroom, classroomID := optionalLink(body.ClassroomID)
		setTeacher, teacherID := optionalLink(body.TeacherID)
		if err := checkStudentLinks(db, classroomID, teacherID); err != nil {
			return err
		}
		if setClassroom {
			s.ClassroomID = classroomID
		}
		if setTeacher {
			s.TeacherID = teacherID
		}

		if body.DateOfBirth != nil {
			if s.DateOfBirth, err = httpx.ParseDateOr("date_of_birth", *body.DateOfBirth, s.DateOfBirth); err != nil {
				return err
			}
		}
		if body.EnrollmentDate != nil {
			if s.EnrollmentDate, err = httpx.ParseDateOr("enrollment_date", *body.EnrollmentDate, s.EnrollmentDate); err != nil {
				return err
			}
		}
		assignString(&s.FirstName, body.FirstName)
		assignString(&s.LastName, body.LastName)
		assignString(&s.ProfileImage, body.ProfileImage)
		assignString(&s.EnrollmentHistory, body.EnrollmentHistory)
		assignString(&s.UploadedDocuments, body.UploadedDocuments)
		assignString(&s.EvaluationNotes, body.EvaluationNotes)
		assignString(&s.Allergies, body.Allergies)
		assignString(&s.MedicalNotes, body.MedicalNotes)
		assignString(&s.GuardianName, body.GuardianName)
		assignString(&s.GuardianContact, body.GuardianContact)
		assignString(&s.EmergencyContact, body.EmergencyContact)
		if body.Gender != nil {
			s.Gender = *body.Gender
		}
		if body.IsActive != nil {
			s.IsActive = *body.IsActive
		}

		if err := db.Omit("Classroom", "Teacher").Save(&s).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityStudent,
			EntityID:    s.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Student updated: %s", s.FullName()),
			Before:      before,
			After:       s,
		})

		s, err = loadStudent(db, s.ID)
		if err != nil {
			return err
		}
		return c.JSON(ToStudentResponse(s))
	}
}

func assignString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// DELETE /api/students/:id
func DeleteStudentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var s models.Student
		if err := httpx.FindOr404(db, &s, id, "student not found"); err != nil {
			return err
		}
		if err := db.Delete(&s).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityStudent,
			EntityID:    s.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Student removed: %s", s.FullName()),
			Before:      s,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
