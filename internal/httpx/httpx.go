// Package httpx holds the small fiber helpers shared by every handler package.
package httpx

import (
	"errors"
	"fmt"
	"time"

	"nursery-backend/internal/database"
	"nursery-backend/internal/models"
	"nursery-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Now is the clock used for "today" defaults; tests pin it.
var Now = time.Now

// Today is the current calendar date.
func Today() time.Time {
	return models.DateOf(Now())
}

// ErrorHandler renders every error as {"error": ...}; validation errors also
// carry a "fields" map.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var ve *validation.Error
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": fe.Message,
		})
	}

	if database.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not found",
		})
	}

	log.Errorw("unexpected error", "method", c.Method(), "path", c.Path(), "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "unexpected server error",
	})
}

// ParseID reads the :id route parameter.
func ParseID(c *fiber.Ctx) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// ParseOptionalUint reads a positive integer query parameter; ok is false
// when the parameter is absent.
func ParseOptionalUint(c *fiber.Ctx, key string) (val uint, ok bool, err error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false, nil
	}
	if _, err := fmt.Sscan(raw, &val); err != nil || val == 0 {
		return 0, false, fiber.NewError(fiber.StatusBadRequest, key+" is invalid")
	}
	return val, true, nil
}

// SaveError maps a failed insert/update onto a client error when the cause
// is a unique index, otherwise it is passed through.
func SaveError(err error, conflictMsg string) error {
	if database.IsUniqueViolation(err) {
		return fiber.NewError(fiber.StatusConflict, conflictMsg)
	}
	return err
}

// SendAttachment writes data as a downloadable file.
func SendAttachment(c *fiber.Ctx, filename, contentType string, data []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}

// FindOr404 loads the row with the given id into dst.
func FindOr404(db *gorm.DB, dst any, id uint, msg string) error {
	if err := db.First(dst, id).Error; err != nil {
		if database.IsNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, msg)
		}
		return err
	}
	return nil
}

// ParseDateOr parses a YYYY-MM-DD body field, returning def when it is empty.
func ParseDateOr(field, raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, validation.Field(field, "date has wrong format, use YYYY-MM-DD")
	}
	return d, nil
}

// ParseDatePtr parses an optional date field; nil and "" both yield nil.
func ParseDatePtr(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(*raw)
	if err != nil {
		return nil, validation.Field(field, "date has wrong format, use YYYY-MM-DD")
	}
	return &d, nil
}

// QueryDate reads an optional YYYY-MM-DD query parameter.
func QueryDate(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, key+" must be YYYY-MM-DD")
	}
	return &d, nil
}

// QueryBool reads an optional true/false query parameter.
func QueryBool(c *fiber.Ctx, key string) (*bool, error) {
	switch c.Query(key) {
	case "":
		return nil, nil
	case "true", "1":
		v := true
		return &v, nil
	case "false", "0":
		v := false
		return &v, nil
	}
	return nil, fiber.NewError(fiber.StatusBadRequest, key+" must be true or false")
}
