package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nursery-backend/internal/auth"
	"nursery-backend/internal/config"
	"nursery-backend/internal/models"
	"nursery-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:   "0123456789abcdef0123456789abcdef",
		AccessTTL:   time.Hour,
		RefreshTTL:  24 * time.Hour,
		CORSOrigins: "http://localhost:5173",
		Company:     config.Company{Name: "Test Nursery"},
	}
}

// tokenFor creates a login linked to a staff member holding role and returns
// an access token for it. An empty role gives a login without staff.
func tokenFor(t *testing.T, db *gorm.DB, cfg *config.Config, role models.StaffRole, superuser bool) string {
	t.Helper()
	u := models.User{
		Name:         "User " + string(role),
		Email:        strings.ToLower(string(role)) + "-user@nursery.test",
		PasswordHash: "x",
		IsActive:     true,
		IsSuperuser:  superuser,
	}
	if superuser {
		u.Email = "root@nursery.test"
	}
	if role != "" {
		s := testutil.CreateStaff(t, db, string(role), strings.ToLower(string(role))+"@nursery.test", role)
		u.StaffID = &s.ID
	}
	require.NoError(t, db.Create(&u).Error)

	pair, err := auth.IssueTokenPair(cfg, u.ID)
	require.NoError(t, err)
	return pair.Access
}

func call(t *testing.T, app *fiber.App, method, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func TestHealthAndRequestID(t *testing.T) {
	testutil.PrepareDB(t)
	app := New(testConfig())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestRoutes_RequireToken(t *testing.T) {
	testutil.PrepareDB(t)
	app := New(testConfig())

	for _, path := range []string{"/api/staff", "/api/dashboard/summary", "/api/payroll/salaries", "/api/reports/staff/pdf"} {
		assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "GET", path, ""), path)
	}
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "GET", "/api/staff", "not-a-token"))
}

func TestRoutes_Policy(t *testing.T) {
	db := testutil.PrepareDB(t)
	cfg := testConfig()
	app := New(cfg)

	teacher := tokenFor(t, db, cfg, models.RoleTeacher, false)
	accountant := tokenFor(t, db, cfg, models.RoleAccountant, false)
	nurse := tokenFor(t, db, cfg, models.RoleNurse, false)
	manager := tokenFor(t, db, cfg, models.RoleManager, false)
	admin := tokenFor(t, db, cfg, models.RoleAdmin, false)
	nobody := tokenFor(t, db, cfg, "", false)
	root := tokenFor(t, db, cfg, "", true)

	tests := []struct {
		name         string
		method, path string
		token        string
		want         int
	}{
		{"any role reads staff", "GET", "/api/staff", teacher, fiber.StatusOK},
		{"no staff link still reads", "GET", "/api/students", nobody, fiber.StatusOK},
		{"teacher cannot delete staff", "DELETE", "/api/staff/1", teacher, fiber.StatusForbidden},
		{"admin reaches delete", "DELETE", "/api/staff/999", admin, fiber.StatusNotFound},
		{"teacher takes attendance", "GET", "/api/attendance", teacher, fiber.StatusOK},
		{"attendance summary is routed", "GET", "/api/attendance/summary", teacher, fiber.StatusOK},
		{"accountant cannot take attendance", "GET", "/api/attendance", accountant, fiber.StatusForbidden},
		{"nurse reads medical", "GET", "/api/medical", nurse, fiber.StatusOK},
		{"accountant cannot read medical", "GET", "/api/medical", accountant, fiber.StatusForbidden},
		{"accountant reads invoices", "GET", "/api/invoices", accountant, fiber.StatusOK},
		{"teacher cannot read invoices", "GET", "/api/invoices", teacher, fiber.StatusForbidden},
		{"no staff link cannot read payments", "GET", "/api/payments", nobody, fiber.StatusForbidden},
		{"accountant reads expiring contracts", "GET", "/api/payroll/contracts/expiring", accountant, fiber.StatusOK},
		{"accountant reads unpaid salaries", "GET", "/api/payroll/salaries/unpaid", accountant, fiber.StatusOK},
		{"manager cannot generate salaries", "POST", "/api/payroll/salaries/generate", manager, fiber.StatusForbidden},
		{"inventory report is routed", "GET", "/api/inventory/report", nurse, fiber.StatusOK},
		{"teacher cannot import inventory", "POST", "/api/inventory/import", teacher, fiber.StatusForbidden},
		{"dashboard is open", "GET", "/api/dashboard/summary", nobody, fiber.StatusOK},
		{"manager exports reports", "GET", "/api/reports/attendance/staff/xlsx", manager, fiber.StatusOK},
		{"teacher cannot export", "GET", "/api/reports/students/pdf", teacher, fiber.StatusForbidden},
		{"missing invoice pdf", "GET", "/api/reports/invoices/42/pdf", accountant, fiber.StatusNotFound},
		{"admin lists users", "GET", "/api/users", admin, fiber.StatusOK},
		{"accountant cannot list audit logs", "GET", "/api/audit-logs", accountant, fiber.StatusForbidden},
		{"superuser passes every gate", "GET", "/api/medical", root, fiber.StatusOK},
		{"superuser generates salaries", "POST", "/api/payroll/salaries/generate", root, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, call(t, app, tt.method, tt.path, tt.token))
		})
	}
}
