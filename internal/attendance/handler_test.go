package attendance

import (
	"fmt"
	"testing"
	"time"

	"nursery-backend/internal/apitest"
	"nursery-backend/internal/auth"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"
	"nursery-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(p *auth.Principal) *fiber.App {
	app := apitest.NewApp(p)
	g := app.Group("/api/attendance", auth.RequireRole(models.RoleAdmin, models.RoleTeacher, models.RoleAssistant))
	g.Get("/summary", SummaryHandler())
	g.Get("/", ListAttendanceHandler())
	g.Post("/", CreateAttendanceHandler())
	g.Get("/:id", GetAttendanceHandler())
	g.Patch("/:id", UpdateAttendanceHandler())
	g.Delete("/:id", DeleteAttendanceHandler())
	return app
}

func pinToday(t *testing.T, day time.Time) {
	prev := httpx.Now
	httpx.Now = func() time.Time { return day.Add(8 * time.Hour) }
	t.Cleanup(func() { httpx.Now = prev })
}

func TestCreateAttendance_Rules(t *testing.T) {
	db := testutil.PrepareDB(t)
	pinToday(t, testutil.Date(2026, time.October, 18))
	app := newApp(apitest.AsRole(models.RoleTeacher))

	kid := testutil.CreateStudent(t, db, "Adam", testutil.Date(2023, time.April, 4))
	aide := testutil.CreateStaff(t, db, "Sara", "sara@example.com", models.RoleAssistant)

	resp := apitest.Do(t, app, "POST", "/api/attendance/", fiber.Map{
		"student_id": kid.ID, "status": "PRESENT", "check_in": "08:05",
	})
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Raw))
	body := resp.Map(t)
	assert.Equal(t, "2026-10-18", body["date"])
	assert.Equal(t, "Adam Kid", body["student_name"])
	assert.Nil(t, body["staff_name"])

	t.Run("same student same day conflicts", func(t *testing.T) {
		resp := apitest.Do(t, app, "POST", "/api/attendance/", fiber.Map{"student_id": kid.ID, "status": "LATE"})
		assert.Equal(t, fiber.StatusConflict, resp.Status)
	})

	t.Run("staff row on the same day is independent", func(t *testing.T) {
		resp := apitest.Do(t, app, "POST", "/api/attendance/", fiber.Map{"staff_id": aide.ID, "status": "PRESENT"})
		assert.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Raw))
	})

	t.Run("future date rejected", func(t *testing.T) {
		resp := apitest.Do(t, app, "POST", "/api/attendance/", fiber.Map{
			"student_id": kid.ID, "status": "PRESENT", "date": "2026-10-19",
		})
		require.Equal(t, fiber.StatusBadRequest, resp.Status)
		assert.Contains(t, resp.Map(t)["fields"], "date")
	})

	t.Run("no subject rejected", func(t *testing.T) {
		resp := apitest.Do(t, app, "POST", "/api/attendance/", fiber.Map{"status": "PRESENT"})
		assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	})

	t.Run("lowercase status rejected", func(t *testing.T) {
		resp := apitest.Do(t, app, "POST", "/api/attendance/", fiber.Map{
			"student_id": kid.ID, "status": "present", "date": "2026-10-17",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	})

	t.Run("bad check-in time", func(t *testing.T) {
		resp := apitest.Do(t, app, "POST", "/api/attendance/", fiber.Map{
			"student_id": kid.ID, "status": "PRESENT", "date": "2026-10-16", "check_in": "8am",
		})
		require.Equal(t, fiber.StatusBadRequest, resp.Status)
		assert.Contains(t, resp.Map(t)["fields"], "check_in")
	})
}

func TestAttendance_PolicyGate(t *testing.T) {
	testutil.PrepareDB(t)
	for role, want := range map[models.StaffRole]int{
		models.RoleTeacher:    fiber.StatusOK,
		models.RoleAssistant:  fiber.StatusOK,
		models.RoleAdmin:      fiber.StatusOK,
		models.RoleNurse:      fiber.StatusForbidden,
		models.RoleAccountant: fiber.StatusForbidden,
	} {
		resp := apitest.Do(t, newApp(apitest.AsRole(role)), "GET", "/api/attendance/", nil)
		assert.Equal(t, want, resp.Status, role)
	}
	assert.Equal(t, fiber.StatusForbidden, apitest.Do(t, newApp(&auth.Principal{UserID: 9}), "GET", "/api/attendance/", nil).Status)
}

func TestUpdateAttendance_CannotMoveIntoFuture(t *testing.T) {
	db := testutil.PrepareDB(t)
	pinToday(t, testutil.Date(2026, time.October, 18))
	kid := testutil.CreateStudent(t, db, "Mira", testutil.Date(2023, time.April, 4))
	sid := kid.ID
	rec := models.Attendance{StudentID: &sid, Date: testutil.Date(2026, time.October, 15), Status: models.StatusAbsent}
	require.NoError(t, db.Create(&rec).Error)

	app := newApp(apitest.Superuser)
	path := fmt.Sprintf("/api/attendance/%d", rec.ID)

	resp := apitest.Do(t, app, "PATCH", path, fiber.Map{"date": "2026-11-01"})
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)

	resp = apitest.Do(t, app, "PATCH", path, fiber.Map{"status": "SICK", "notes": "fever"})
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	assert.Equal(t, "SICK", resp.Map(t)["status"])
}

func TestSummary(t *testing.T) {
	db := testutil.PrepareDB(t)
	pinToday(t, testutil.Date(2026, time.October, 18))

	a := testutil.CreateStudent(t, db, "A", testutil.Date(2023, time.January, 1))
	b := testutil.CreateStudent(t, db, "B", testutil.Date(2023, time.January, 1))
	st := testutil.CreateStaff(t, db, "C", "c@example.com", models.RoleTeacher)

	rows := []models.Attendance{
		{StudentID: &a.ID, Date: testutil.Date(2026, time.October, 1), Status: models.StatusPresent},
		{StudentID: &a.ID, Date: testutil.Date(2026, time.October, 2), Status: models.StatusLate},
		{StudentID: &b.ID, Date: testutil.Date(2026, time.October, 2), Status: models.StatusPresent},
		{StudentID: &b.ID, Date: testutil.Date(2026, time.September, 30), Status: models.StatusPresent},
		{StaffID: &st.ID, Date: testutil.Date(2026, time.October, 2), Status: models.StatusSick},
	}
	require.NoError(t, db.Create(&rows).Error)

	resp := apitest.Do(t, newApp(apitest.Superuser), "GET", "/api/attendance/summary", nil)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))

	var s Summary
	resp.JSON(t, &s)
	assert.Equal(t, "2026-10-01", s.From)
	assert.Equal(t, "2026-10-18", s.To)
	assert.EqualValues(t, 2, s.Students[models.StatusPresent])
	assert.EqualValues(t, 1, s.Students[models.StatusLate])
	assert.EqualValues(t, 0, s.Students[models.StatusAbsent])
	assert.EqualValues(t, 1, s.Staff[models.StatusSick])

	resp = apitest.Do(t, newApp(apitest.Superuser), "GET", "/api/attendance/summary?from=2026-10-05&to=2026-10-01", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
}

func TestAttendance_ClearCheckTimes(t *testing.T) {
	db := testutil.PrepareDB(t)
	pinToday(t, testutil.Date(2026, time.October, 18))
	kid := testutil.CreateStudent(t, db, "Rami", testutil.Date(2023, time.April, 4))
	app := newApp(apitest.Superuser)

	resp := apitest.Do(t, app, "POST", "/api/attendance/", fiber.Map{
		"student_id": kid.ID, "status": "PRESENT", "check_in": "08:10", "check_out": "",
	})
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Raw))
	body := resp.Map(t)
	assert.Nil(t, body["check_out"])
	path := fmt.Sprintf("/api/attendance/%v", body["id"])

	resp = apitest.Do(t, app, "PATCH", path, fiber.Map{"check_out": "13:30:00"})
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	assert.NotNil(t, resp.Map(t)["check_out"])

	resp = apitest.Do(t, app, "PATCH", path, fiber.Map{"check_in": "", "check_out": ""})
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	body = resp.Map(t)
	assert.Nil(t, body["check_in"])
	assert.Nil(t, body["check_out"])

	var a models.Attendance
	require.NoError(t, db.First(&a).Error)
	assert.Nil(t, a.CheckIn)
	assert.Nil(t, a.CheckOut)
}
