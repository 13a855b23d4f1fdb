package payroll

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
	api := app.Group("/api/payroll", auth.RequireRole(models.RoleAdmin, models.RoleAccountant))

	api.Get("/contracts", ListContractsHandler())
	api.Get("/contracts/expiring", ExpiringContractsHandler())
	api.Post("/contracts", CreateContractHandler())
	api.Get("/contracts/:id", GetContractHandler())
	api.Patch("/contracts/:id", UpdateContractHandler())
	api.Delete("/contracts/:id", DeleteContractHandler())

	api.Get("/salaries", ListSalariesHandler())
	api.Get("/salaries/unpaid", UnpaidSalariesHandler())
	api.Post("/salaries/generate", GenerateSalariesHandler())
	api.Post("/salaries", CreateSalaryHandler())
	api.Get("/salaries/:id", GetSalaryHandler())
	api.Patch("/salaries/:id", UpdateSalaryHandler())
	api.Post("/salaries/:id/pay", PaySalaryHandler())
	api.Delete("/salaries/:id", DeleteSalaryHandler())
	return app
}

func pinToday(t *testing.T, day time.Time) {
	prev := httpx.Now
	httpx.Now = fixedClock(day)
	t.Cleanup(func() { httpx.Now = prev })
}

func TestContracts_CRUD(t *testing.T) {
	db := testutil.PrepareDB(t)
	amal := testutil.CreateStaff(t, db, "Amal", "amal@nursery.test", models.RoleTeacher)
	app := newApp(apitest.AsRole(models.RoleAccountant))

	resp := apitest.Do(t, app, "POST", "/api/payroll/contracts", fiber.Map{
		"staff_id": amal.ID, "base_salary": "5000", "allowance": 500, "tax_percentage": 10,
		"contract_start": "2026-01-01",
	})
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Raw))
	body := resp.Map(t)
	assert.Equal(t, "Amal Tester", body["staff_name"])
	assert.Equal(t, "5500.00", body["gross"])
	assert.Equal(t, "0.00", body["max_advance"])
	assert.Nil(t, body["contract_end"])
	id := body["id"]

	resp = apitest.Do(t, app, "POST", "/api/payroll/contracts", fiber.Map{
		"staff_id": amal.ID, "base_salary": 4000, "contract_start": "2026-02-01",
	})
	assert.Equal(t, fiber.StatusConflict, resp.Status)

	resp = apitest.Do(t, app, "PATCH", fmt.Sprintf("/api/payroll/contracts/%v", id), fiber.Map{
		"contract_end": "2025-12-31",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Contains(t, resp.Map(t)["fields"], "contract_end")

	resp = apitest.Do(t, app, "PATCH", fmt.Sprintf("/api/payroll/contracts/%v", id), fiber.Map{
		"contract_end": "2026-12-31", "max_advance": 1000,
	})
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	body = resp.Map(t)
	assert.Equal(t, "2026-12-31", body["contract_end"])
	assert.Equal(t, "1000.00", body["max_advance"])
	assert.Equal(t, "5000.00", body["base_salary"])

	resp = apitest.Do(t, app, "PATCH", fmt.Sprintf("/api/payroll/contracts/%v", id), fiber.Map{
		"contract_end": "",
	})
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	assert.Nil(t, resp.Map(t)["contract_end"])

	list := apitest.Do(t, app, "GET", fmt.Sprintf("/api/payroll/contracts?staff_id=%d", amal.ID), nil).List(t)
	assert.Len(t, list, 1)

	resp = apitest.Do(t, app, "DELETE", fmt.Sprintf("/api/payroll/contracts/%v", id), nil)
	assert.Equal(t, fiber.StatusNoContent, resp.Status)
	resp = apitest.Do(t, app, "GET", fmt.Sprintf("/api/payroll/contracts/%v", id), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.Status)
}

func TestContracts_Validation(t *testing.T) {
	testutil.PrepareDB(t)
	app := newApp(apitest.Superuser)

	resp := apitest.Do(t, app, "POST", "/api/payroll/contracts", fiber.Map{
		"staff_id": 99, "base_salary": -1, "tax_percentage": 101, "contract_start": "01/01/2026",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.Status)
	fields := resp.Map(t)["fields"].(map[string]any)
	assert.Contains(t, fields, "base_salary")
	assert.Contains(t, fields, "tax_percentage")
	assert.Contains(t, fields, "contract_start")

	resp = apitest.Do(t, app, "POST", "/api/payroll/contracts", fiber.Map{
		"staff_id": 99, "base_salary": 100, "contract_start": "2026-01-01",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Contains(t, resp.Map(t)["fields"], "staff_id")
}

func TestContracts_Expiring(t *testing.T) {
	db := testutil.PrepareDB(t)
	today := testutil.Date(2026, time.October, 18)
	pinToday(t, today)

	soon := testutil.CreateStaff(t, db, "Soon", "soon@nursery.test", models.RoleTeacher)
	later := testutil.CreateStaff(t, db, "Later", "later@nursery.test", models.RoleTeacher)
	d30, d31 := today.AddDate(0, 0, 30), today.AddDate(0, 0, 31)
	testutil.CreateContract(t, db, soon.ID, "3000", "0", "0", testutil.Date(2025, time.January, 1), &d30)
	testutil.CreateContract(t, db, later.ID, "3000", "0", "0", testutil.Date(2025, time.January, 1), &d31)

	var out struct {
		Today    string                     `json:"today"`
		Within30 []ExpiringContractResponse `json:"within_30"`
		Within60 []ExpiringContractResponse `json:"within_60"`
	}
	resp := apitest.Do(t, newApp(apitest.Superuser), "GET", "/api/payroll/contracts/expiring", nil)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	resp.JSON(t, &out)

	assert.Equal(t, "2026-10-18", out.Today)
	require.Len(t, out.Within30, 1)
	assert.Equal(t, "Soon Tester", out.Within30[0].StaffName)
	assert.Equal(t, 30, out.Within30[0].DaysLeft)
	require.Len(t, out.Within60, 1)
	assert.Equal(t, 31, out.Within60[0].DaysLeft)
}

func TestSalaries_GenerateAdjustAndPay(t *testing.T) {
	db := testutil.PrepareDB(t)
	pinToday(t, testutil.Date(2026, time.October, 18))
	amal := testutil.CreateStaff(t, db, "Amal", "amal@nursery.test", models.RoleTeacher)
	contract := testutil.CreateContract(t, db, amal.ID, "5000", "500", "10", testutil.Date(2026, time.January, 1), nil)
	require.NoError(t, db.Model(&contract).Update("max_advance", testutil.Dec("1000")).Error)
	left := testutil.CreateStaff(t, db, "Badr", "badr@nursery.test", models.RoleSupport)
	testutil.CreateContract(t, db, left.ID, "3000", "0", "0", testutil.Date(2026, time.January, 1), nil)
	require.NoError(t, db.Model(&left).Update("is_active", false).Error)
	app := newApp(apitest.AsRole(models.RoleAdmin))

	resp := apitest.Do(t, app, "POST", "/api/payroll/salaries/generate", nil)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	body := resp.Map(t)
	assert.Equal(t, "2026-10-01", body["month"])
	assert.EqualValues(t, 1, body["created"])
	assert.EqualValues(t, 0, body["skipped"])
	assert.EqualValues(t, 1, body["ignored"])
	assert.Empty(t, body["failures"])

	resp = apitest.Do(t, app, "POST", "/api/payroll/salaries/generate", nil)
	body = resp.Map(t)
	assert.EqualValues(t, 0, body["created"])
	assert.EqualValues(t, 1, body["skipped"])
	assert.EqualValues(t, 1, body["ignored"])

	list := apitest.Do(t, app, "GET", "/api/payroll/salaries?month=2026-10-18", nil).List(t)
	require.Len(t, list, 1)
	rec := list[0]
	assert.Equal(t, "Amal Tester", rec["staff_name"])
	assert.Equal(t, "4950.00", rec["net_salary"])
	assert.Equal(t, "550.00", rec["tax_amount"])
	assert.EqualValues(t, contract.ID, rec["contract_id"])
	path := fmt.Sprintf("/api/payroll/salaries/%v", rec["id"])

	resp = apitest.Do(t, app, "PATCH", path, fiber.Map{"advance_taken": 1500})
	require.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Contains(t, resp.Map(t)["fields"], "advance_taken")

	resp = apitest.Do(t, app, "PATCH", path, fiber.Map{"advance_taken": 1000, "deductions": "150.50"})
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	assert.Equal(t, "3799.50", resp.Map(t)["net_salary"])

	unpaid := apitest.Do(t, app, "GET", "/api/payroll/salaries/unpaid", nil).Map(t)
	assert.EqualValues(t, 1, unpaid["count"])
	assert.Equal(t, "3799.50", unpaid["total"])

	resp = apitest.Do(t, app, "POST", path+"/pay", nil)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	body = resp.Map(t)
	assert.Equal(t, true, body["is_paid"])
	assert.Equal(t, "2026-10-18", body["payment_date"])

	resp = apitest.Do(t, app, "POST", path+"/pay", nil)
	assert.Equal(t, fiber.StatusConflict, resp.Status)

	unpaid = apitest.Do(t, app, "GET", "/api/payroll/salaries/unpaid", nil).Map(t)
	assert.EqualValues(t, 0, unpaid["count"])
	assert.Equal(t, "0.00", unpaid["total"])
}

func TestSalaries_PayWithReference(t *testing.T) {
	db := testutil.PrepareDB(t)
	pinToday(t, testutil.Date(2026, time.October, 18))
	amal := testutil.CreateStaff(t, db, "Amal", "amal@nursery.test", models.RoleTeacher)
	kid := testutil.CreateStudent(t, db, "Reem", testutil.Date(2022, time.May, 1))
	inv := testutil.CreateInvoice(t, db, kid.ID, "100", models.InvoicePaid)
	payment := models.Payment{InvoiceID: inv.ID, Amount: testutil.Dec("100"), PaymentDate: testutil.Date(2026, time.October, 5), Method: models.MethodTransfer}
	require.NoError(t, db.Create(&payment).Error)
	app := newApp(apitest.Superuser)

	resp := apitest.Do(t, app, "POST", "/api/payroll/salaries", fiber.Map{
		"staff_id": amal.ID, "month": "2026-09-15", "base_salary": 2000,
	})
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Raw))
	body := resp.Map(t)
	assert.Equal(t, "2026-09-01", body["month"])
	assert.Equal(t, "2000.00", body["net_salary"])
	assert.Nil(t, body["contract_id"])
	path := fmt.Sprintf("/api/payroll/salaries/%v", body["id"])

	resp = apitest.Do(t, app, "POST", "/api/payroll/salaries", fiber.Map{
		"staff_id": amal.ID, "month": "2026-09-01", "base_salary": 2000,
	})
	assert.Equal(t, fiber.StatusConflict, resp.Status)

	resp = apitest.Do(t, app, "POST", path+"/pay", fiber.Map{"payment_reference_id": 999})
	require.Equal(t, fiber.StatusBadRequest, resp.Status)

	resp = apitest.Do(t, app, "POST", path+"/pay", fiber.Map{
		"payment_reference_id": payment.ID, "payment_date": "2026-10-01",
	})
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	body = resp.Map(t)
	assert.EqualValues(t, payment.ID, body["payment_reference_id"])
	assert.Equal(t, "2026-10-01", body["payment_date"])

	resp = apitest.Do(t, app, "PATCH", path, fiber.Map{"payment_date": ""})
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	body = resp.Map(t)
	assert.Equal(t, true, body["is_paid"])
	assert.Nil(t, body["payment_date"])

	resp = apitest.Do(t, app, "PATCH", path, fiber.Map{"is_paid": false, "payment_reference_id": 0})
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	body = resp.Map(t)
	assert.Equal(t, false, body["is_paid"])
	assert.Nil(t, body["payment_date"])
	assert.Nil(t, body["payment_reference_id"])
}

func TestPayroll_RoleGate(t *testing.T) {
	testutil.PrepareDB(t)

	for _, role := range []models.StaffRole{models.RoleTeacher, models.RoleNurse, models.RoleManager} {
		resp := apitest.Do(t, newApp(apitest.AsRole(role)), "GET", "/api/payroll/salaries", nil)
		assert.Equal(t, fiber.StatusForbidden, resp.Status, role)
	}
	resp := apitest.Do(t, newApp(&auth.Principal{UserID: 5, Name: "No staff"}), "POST", "/api/payroll/salaries/generate", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.Status)
}
