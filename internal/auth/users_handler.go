package auth

import (
	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"
	"nursery-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

type CreateUserRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8"`
	StaffID     *uint  `json:"staff_id"`
	IsSuperuser bool   `json:"is_superuser"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	IsActive *bool   `json:"is_active"`
	// 0 unlinks the user from its staff record
	StaffID *uint `json:"staff_id"`
}

type UserResponse struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	IsSuperuser bool             `json:"is_superuser"`
	IsActive    bool             `json:"is_active"`
	StaffID     *uint            `json:"staff_id"`
	StaffName   *string          `json:"staff_name"`
	Role        models.StaffRole `json:"role"`
	LastLogin   *string          `json:"last_login"`
}

func toUserResponse(u models.User) UserResponse {
	resp := UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		IsSuperuser: u.IsSuperuser,
		IsActive:    u.IsActive,
		StaffID:     u.StaffID,
	}
	if u.Staff != nil {
		name := u.Staff.FullName()
		resp.StaffName = &name
		resp.Role = u.Staff.Role
	}
	if u.LastLogin != nil {
		s := u.LastLogin.Format("2006-01-02 15:04:05")
		resp.LastLogin = &s
	}
	return resp
}

func checkStaffExists(c *fiber.Ctx, staffID uint) error {
	var count int64
	if err := database.DB.WithContext(c.UserContext()).Model(&models.Staff{}).Where("id = ?", staffID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return validation.Field("staff_id", "staff member does not exist")
	}
	return nil
}

// GET /api/users
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.WithContext(c.UserContext()).Preload("Staff").Order("email").Find(&users).Error; err != nil {
			return err
		}
		resp := make([]UserResponse, 0, len(users))
		for _, u := range users {
			resp = append(resp, toUserResponse(u))
		}
		return c.JSON(resp)
	}
}

// POST /api/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}
		if body.StaffID != nil {
			if err := checkStaffExists(c, *body.StaffID); err != nil {
				return err
			}
		}
		// only a superuser can mint another one
		if body.IsSuperuser {
			if p := PrincipalFrom(c); p == nil || !p.IsSuperuser {
				return fiber.NewError(fiber.StatusForbidden, "only a superuser can create superusers")
			}
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			return err
		}

		user := models.User{
			Name:         body.Name,
			Email:        normalizeEmail(body.Email),
			PasswordHash: hash,
			IsSuperuser:  body.IsSuperuser,
			IsActive:     true,
			StaffID:      body.StaffID,
		}
		db := database.DB.WithContext(c.UserContext())
		if err := db.Create(&user).Error; err != nil {
			return httpx.SaveError(err, "email or staff member already linked to another user")
		}
		if err := db.Preload("Staff").First(&user, user.ID).Error; err != nil {
			return err
		}

		log.Infow("user created", "user_id", user.ID, "staff_id", user.StaffID)
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

// PATCH /api/users/:id
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var body UpdateUserRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var user models.User
		if err := db.First(&user, id).Error; err != nil {
			if database.IsNotFound(err) {
				return fiber.NewError(fiber.StatusNotFound, "user not found")
			}
			return err
		}

		updates := map[string]interface{}{}
		if body.Name != nil {
			updates["name"] = *body.Name
		}
		if body.IsActive != nil {
			updates["is_active"] = *body.IsActive
		}
		if body.Password != nil {
			hash, err := HashPassword(*body.Password)
			if err != nil {
				return err
			}
			updates["password_hash"] = hash
		}
		if body.StaffID != nil {
			if *body.StaffID == 0 {
				updates["staff_id"] = nil
			} else {
				if err := checkStaffExists(c, *body.StaffID); err != nil {
					return err
				}
				updates["staff_id"] = *body.StaffID
			}
		}

		if len(updates) > 0 {
			if err := db.Model(&user).Updates(updates).Error; err != nil {
				return httpx.SaveError(err, "staff member already linked to another user")
			}
		}
		if err := db.Preload("Staff").First(&user, id).Error; err != nil {
			return err
		}
		return c.JSON(toUserResponse(user))
	}
}

// DELETE /api/users/:id
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		if p := PrincipalFrom(c); p != nil && p.UserID == id {
			return fiber.NewError(fiber.StatusBadRequest, "you cannot delete your own account")
		}

		res := database.DB.WithContext(c.UserContext()).Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
