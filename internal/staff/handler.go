package staff

import (
	"fmt"

	"nursery-backend/internal/audit"
	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"
	"nursery-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type CreateStaffRequest struct {
	FirstName string           `json:"first_name" validate:"required,max=50"`
	LastName  string           `json:"last_name" validate:"required,max=50"`
	Role      models.StaffRole `json:"role" validate:"required,oneof=TEACHER ASSISTANT ADMIN SUPPORT MANAGER ACCOUNTANT NURSE"`
	HireDate  string           `json:"hire_date" validate:"omitempty,datetime=2006-01-02"` // default today
	Email     string           `json:"email" validate:"required,email,max=254"`
	Phone     string           `json:"phone" validate:"required,max=20"`
	Document  string           `json:"document" validate:"max=255"`
	IsActive  *bool            `json:"is_active"` // default true
}

type UpdateStaffRequest struct {
	FirstName *string           `json:"first_name" validate:"omitempty,min=1,max=50"`
	LastName  *string           `json:"last_name" validate:"omitempty,min=1,max=50"`
	Role      *models.StaffRole `json:"role" validate:"omitempty,oneof=TEACHER ASSISTANT ADMIN SUPPORT MANAGER ACCOUNTANT NURSE"`
	HireDate  *string           `json:"hire_date" validate:"omitempty,datetime=2006-01-02"`
	Email     *string           `json:"email" validate:"omitempty,email,max=254"`
	Phone     *string           `json:"phone" validate:"omitempty,min=1,max=20"`
	Document  *string           `json:"document" validate:"omitempty,max=255"`
	IsActive  *bool             `json:"is_active"`
}

type StaffResponse struct {
	ID        uint             `json:"id"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	FullName  string           `json:"full_name"`
	Role      models.StaffRole `json:"role"`
	HireDate  string           `json:"hire_date"`
	Email     string           `json:"email"`
	Phone     string           `json:"phone"`
	Document  string           `json:"document"`
	IsActive  bool             `json:"is_active"`
}

func ToResponse(s models.Staff) StaffResponse {
	return StaffResponse{
		ID:        s.ID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		FullName:  s.FullName(),
		Role:      s.Role,
		HireDate:  models.FormatDate(s.HireDate),
		Email:     s.Email,
		Phone:     s.Phone,
		Document:  s.Document,
		IsActive:  s.IsActive,
	}
}

const duplicateEmail = "a staff member with this email already exists"

// GET /api/staff?role=TEACHER&is_active=true
func ListStaffHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.Staff{})

		if role := c.Query("role"); role != "" {
			dbq = dbq.Where("role = ?", role)
		}
		active, err := httpx.QueryBool(c, "is_active")
		if err != nil {
			return err
		}
		if active != nil {
			dbq = dbq.Where("is_active = ?", *active)
		}

		var rows []models.Staff
		if err := dbq.Order("hire_date DESC, id DESC").Find(&rows).Error; err != nil {
			return err
		}

		resp := make([]StaffResponse, 0, len(rows))
		for _, s := range rows {
			resp = append(resp, ToResponse(s))
		}
		return c.JSON(resp)
	}
}

// GET /api/staff/:id
func GetStaffHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var s models.Staff
		if err := httpx.FindOr404(database.DB.WithContext(c.UserContext()), &s, id, "staff member not found"); err != nil {
			return err
		}
		return c.JSON(ToResponse(s))
	}
}

// POST /api/staff
func CreateStaffHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateStaffRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		hireDate, err := httpx.ParseDateOr("hire_date", body.HireDate, httpx.Today())
		if err != nil {
			return err
		}

		s := models.Staff{
			FirstName: body.FirstName,
			LastName:  body.LastName,
			Role:      body.Role,
			HireDate:  hireDate,
			Email:     body.Email,
			Phone:     body.Phone,
			Document:  body.Document,
			IsActive:  body.IsActive == nil || *body.IsActive,
		}

		db := database.DB.WithContext(c.UserContext())
		if err := db.Create(&s).Error; err != nil {
			return httpx.SaveError(err, duplicateEmail)
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityStaff,
			EntityID:    s.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Staff added: %s (%s)", s.FullName(), s.Role),
			After:       s,
		})

		return c.Status(fiber.StatusCreated).JSON(ToResponse(s))
	}
}

// PUT|PATCH /api/staff/:id
func UpdateStaffHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var body UpdateStaffRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var s models.Staff
		if err := httpx.FindOr404(db, &s, id, "staff member not found"); err != nil {
			return err
		}
		before := s

		if body.FirstName != nil {
			s.FirstName = *body.FirstName
		}
		if body.LastName != nil {
			s.LastName = *body.LastName
		}
		if body.Role != nil {
			s.Role = *body.Role
		}
		if body.HireDate != nil {
			d, err := httpx.ParseDateOr("hire_date", *body.HireDate, s.HireDate)
			if err != nil {
				return err
			}
			s.HireDate = d
		}
		if body.Email != nil {
			s.Email = *body.Email
		}
		if body.Phone != nil {
			s.Phone = *body.Phone
		}
		if body.Document != nil {
			s.Document = *body.Document
		}
		if body.IsActive != nil {
			s.IsActive = *body.IsActive
		}

		if err := db.Save(&s).Error; err != nil {
			return httpx.SaveError(err, duplicateEmail)
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityStaff,
			EntityID:    s.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Staff updated: %s", s.FullName()),
			Before:      before,
			After:       s,
		})

		return c.JSON(ToResponse(s))
	}
}

// DELETE /api/staff/:id
func DeleteStaffHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var s models.Staff
		if err := httpx.FindOr404(db, &s, id, "staff member not found"); err != nil {
			return err
		}
		if err := db.Delete(&s).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityStaff,
			EntityID:    s.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Staff removed: %s", s.FullName()),
			Before:      s,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
