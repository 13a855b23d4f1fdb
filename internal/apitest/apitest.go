// Package apitest drives handlers through a fiber app with a fixed caller.
package apitest

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"nursery-backend/internal/auth"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// Superuser passes every role gate.
var Superuser = &auth.Principal{UserID: 1, Name: "Root", IsSuperuser: true}

// AsRole returns a non-superuser principal holding role.
func AsRole(role models.StaffRole) *auth.Principal {
	return &auth.Principal{UserID: 2, Name: "Staff " + string(role), Role: role}
}

// NewApp returns an app whose requests are all made by p.
func NewApp(p *auth.Principal) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		if p != nil {
			c.Locals(auth.CtxPrincipalKey, p)
		}
		return c.Next()
	})
	return app
}

type Response struct {
	Status int
	Header map[string]string
	Raw    []byte
}

// JSON decodes the body into v.
func (r Response) JSON(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Raw, v), string(r.Raw))
}

// Map decodes an object body.
func (r Response) Map(t *testing.T) map[string]any {
	t.Helper()
	out := map[string]any{}
	r.JSON(t, &out)
	return out
}

// List decodes an array body.
func (r Response) List(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	r.JSON(t, &out)
	return out
}

func Do(t *testing.T, app *fiber.App, method, path string, body any) Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	hdr := map[string]string{}
	for k := range resp.Header {
		hdr[k] = resp.Header.Get(k)
	}
	return Response{Status: resp.StatusCode, Header: hdr, Raw: raw}
}
