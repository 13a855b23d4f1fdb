// Package validation binds request bodies and turns validator failures into
// per-field messages.
package validation

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// numeric tags (gte, lte, gt) work on money fields through their float value
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	// clearable fields: "" is accepted so the handler can store NULL
	_ = v.RegisterValidation("optional_date", layoutOrEmpty("2006-01-02"))
	_ = v.RegisterValidation("optional_time", layoutOrEmpty("15:04", "15:04:05"))
	return v
}

func layoutOrEmpty(layouts ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		for _, l := range layouts {
			if _, err := time.Parse(l, s); err == nil {
				return true
			}
		}
		return false
	}
}

// Error carries one message per offending JSON field.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field builds an Error for a single field.
func Field(name, msg string) *Error {
	return &Error{Fields: map[string]string{name: msg}}
}

// Struct validates s and returns *Error on failure.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &Error{Fields: make(map[string]string, len(ves))}
	for _, fe := range ves {
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

// Bind parses the request body into dst and validates it.
func Bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return Struct(dst)
}

func message(fe validator.FieldError) string {
	tag := fe.Tag()
	// or-ed time layouts arrive as one tag
	if strings.HasPrefix(tag, "datetime=15:04") {
		return "time has wrong format, use hh:mm[:ss]"
	}
	switch tag {
	case "required", "required_without":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("ensure this field has at least %s characters", fe.Param())
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "optional_date":
		return "date has wrong format, use YYYY-MM-DD"
	case "optional_time":
		return "time has wrong format, use hh:mm[:ss]"
	case "datetime":
		if fe.Param() == "15:04" || fe.Param() == "15:04:05" {
			return "time has wrong format, use hh:mm[:ss]"
		}
		return "date has wrong format, use YYYY-MM-DD"
	default:
		return "invalid value"
	}
}
