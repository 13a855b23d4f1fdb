package auth

import (
	"strings"

	"nursery-backend/internal/config"
	"nursery-backend/internal/database"
	"nursery-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const CtxPrincipalKey = "principal"

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication credentials were not provided")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "authorization header must be 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, parts[1], TokenAccess)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "token is invalid or expired")
		}

		p, err := ResolvePrincipal(database.DB.WithContext(c.UserContext()), claims.UserID)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "user not found or inactive")
		}

		c.Locals(CtxPrincipalKey, p)
		return c.Next()
	}
}

// PrincipalFrom returns the caller installed by JWTMiddleware, or nil.
func PrincipalFrom(c *fiber.Ctx) *Principal {
	p, _ := c.Locals(CtxPrincipalKey).(*Principal)
	return p
}

func RequireRole(allowedRoles ...models.StaffRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !HasRole(PrincipalFrom(c), allowedRoles...) {
			return fiber.NewError(fiber.StatusForbidden, "you do not have permission to perform this action")
		}
		return c.Next()
	}
}

func RequireReadOnlyUnlessAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !ReadOnlyUnlessAdmin(PrincipalFrom(c), c.Method()) {
			return fiber.NewError(fiber.StatusForbidden, "you do not have permission to perform this action")
		}
		return c.Next()
	}
}

func RequireSuperuser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := PrincipalFrom(c)
		if p == nil || !p.IsSuperuser {
			return fiber.NewError(fiber.StatusForbidden, "superuser required")
		}
		return c.Next()
	}
}
