package auth

import (
	"strings"
	"time"

	"nursery-backend/internal/config"
	"nursery-backend/internal/database"
	"nursery-backend/internal/models"
	"nursery-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/bcrypt"
)

type RegisterSuperuserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8"`
}

type TokenRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type MeResponse struct {
	UserID      uint             `json:"user_id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	IsSuperuser bool             `json:"is_superuser"`
	StaffID     *uint            `json:"staff_id"`
	StaffName   *string          `json:"staff_name"`
	Role        models.StaffRole `json:"role"`
}

func normalizeEmail(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// POST /api/auth/register-superuser
// Only allowed while no superuser exists.
func RegisterSuperuserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterSuperuserRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}
		body.Email = normalizeEmail(body.Email)

		db := database.DB.WithContext(c.UserContext())

		var count int64
		if err := db.Model(&models.User{}).Where("is_superuser = ?", true).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "a superuser already exists")
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			return err
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: hash,
			IsSuperuser:  true,
			IsActive:     true,
		}
		if err := db.Create(&user).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusConflict, "a user with this email already exists")
			}
			return err
		}

		log.Infow("superuser registered", "user_id", user.ID, "email", user.Email)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":           user.ID,
			"email":        user.Email,
			"is_superuser": user.IsSuperuser,
		})
	}
}

// POST /api/auth/token
func TokenHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body TokenRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var user models.User
		if err := db.Where("email = ?", normalizeEmail(body.Email)).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "no active account found with the given credentials")
		}
		if !user.IsActive {
			return fiber.NewError(fiber.StatusUnauthorized, "no active account found with the given credentials")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "no active account found with the given credentials")
		}

		pair, err := IssueTokenPair(cfg, user.ID)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := db.Model(&user).Update("last_login", &now).Error; err != nil {
			log.Warnf("auth: last_login not updated for user %d: %v", user.ID, err)
		}

		return c.JSON(pair)
	}
}

// POST /api/auth/token/refresh
func RefreshHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RefreshRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		claims, err := ParseToken(cfg.JWTSecret, body.Refresh, TokenRefresh)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "token is invalid or expired")
		}

		if _, err := ResolvePrincipal(database.DB.WithContext(c.UserContext()), claims.UserID); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "user not found or inactive")
		}

		access, err := GenerateToken(cfg.JWTSecret, claims.UserID, TokenAccess, cfg.AccessTTL)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"access": access})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := PrincipalFrom(c)
		if p == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}

		resp := MeResponse{
			UserID:      p.UserID,
			Name:        p.Name,
			Email:       p.Email,
			IsSuperuser: p.IsSuperuser,
			StaffID:     p.StaffID,
			Role:        p.Role,
		}
		if p.StaffID != nil {
			var staff models.Staff
			if err := database.DB.WithContext(c.UserContext()).First(&staff, *p.StaffID).Error; err == nil {
				name := staff.FullName()
				resp.StaffName = &name
			}
		}
		return c.JSON(resp)
	}
}
