package auth

import (
	"slices"

	"nursery-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Principal is the authenticated caller as seen by the permission checks.
// Role is empty when the user has no linked staff record.
type Principal struct {
	UserID      uint
	Name        string
	Email       string
	IsSuperuser bool
	StaffID     *uint
	Role        models.StaffRole
}

// HasRole is the single role gate: superusers always pass, everyone else
// needs a role from required. A principal without a role never passes.
func HasRole(p *Principal, required ...models.StaffRole) bool {
	if p == nil {
		return false
	}
	if p.IsSuperuser {
		return true
	}
	if p.Role == "" {
		return false
	}
	return slices.Contains(required, p.Role)
}

// ReadOnlyUnlessAdmin lets any authenticated principal use safe methods and
// keeps every mutating method behind the ADMIN role.
func ReadOnlyUnlessAdmin(p *Principal, method string) bool {
	if p == nil {
		return false
	}
	if IsSafeMethod(method) {
		return true
	}
	return HasRole(p, models.RoleAdmin)
}

func IsSafeMethod(method string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
		return true
	}
	return false
}

var ErrInactiveUser = errors.New("user is inactive")

// ResolvePrincipal loads the user and its staff link. The role is read on
// every call so staff role edits apply without re-issuing tokens.
func ResolvePrincipal(db *gorm.DB, userID uint) (*Principal, error) {
	var user models.User
	if err := db.Preload("Staff").First(&user, userID).Error; err != nil {
		return nil, errors.Wrapf(err, "load user %d", userID)
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return principalFromUser(&user), nil
}

func principalFromUser(user *models.User) *Principal {
	p := &Principal{
		UserID:      user.ID,
		Name:        user.Name,
		Email:       user.Email,
		IsSuperuser: user.IsSuperuser,
		StaffID:     user.StaffID,
	}
	if user.Staff != nil {
		p.Role = user.Staff.Role
	}
	return p
}
