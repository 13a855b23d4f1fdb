package server

import (
	"nursery-backend/internal/attendance"
	"nursery-backend/internal/audit"
	"nursery-backend/internal/auth"
	"nursery-backend/internal/config"
	"nursery-backend/internal/dashboard"
	"nursery-backend/internal/finance"
	"nursery-backend/internal/inventory"
	"nursery-backend/internal/medical"
	"nursery-backend/internal/models"
	"nursery-backend/internal/payroll"
	"nursery-backend/internal/reports"
	"nursery-backend/internal/school"
	"nursery-backend/internal/staff"

	"github.com/gofiber/fiber/v2"
)

// crud mounts the five standard endpoints of one resource. PUT and PATCH
// share the partial update handler.
func crud(r fiber.Router, list, create, get, update, del fiber.Handler) {
	r.Get("/", list)
	r.Post("/", create)
	r.Get("/:id", get)
	r.Put("/:id", update)
	r.Patch("/:id", update)
	r.Delete("/:id", del)
}

func registerRoutes(app *fiber.App, cfg *config.Config) {
	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-superuser", auth.RegisterSuperuserHandler())
	api.Post("/auth/token", auth.TokenHandler(cfg))
	api.Post("/auth/token/refresh", auth.RefreshHandler(cfg))

	// Protected
	protected := api.Group("", auth.JWTMiddleware(cfg))
	protected.Get("/auth/me", auth.MeHandler())

	adminOnly := auth.RequireRole(models.RoleAdmin)
	readOnlyUnlessAdmin := auth.RequireReadOnlyUnlessAdmin()

	// Users and audit trail
	users := protected.Group("/users", adminOnly)
	users.Get("/", auth.ListUsersHandler())
	users.Post("/", auth.CreateUserHandler())
	users.Put("/:id", auth.UpdateUserHandler())
	users.Patch("/:id", auth.UpdateUserHandler())
	users.Delete("/:id", auth.DeleteUserHandler())

	auditLogs := protected.Group("/audit-logs", adminOnly)
	auditLogs.Get("/", audit.ListAuditLogsHandler())
	auditLogs.Post("/:id/undo", audit.UndoAuditLogHandler())

	// Staff, classrooms, students, documents
	crud(protected.Group("/staff", readOnlyUnlessAdmin),
		staff.ListStaffHandler(), staff.CreateStaffHandler(), staff.GetStaffHandler(),
		staff.UpdateStaffHandler(), staff.DeleteStaffHandler())
	crud(protected.Group("/classrooms", readOnlyUnlessAdmin),
		school.ListClassroomsHandler(), school.CreateClassroomHandler(), school.GetClassroomHandler(),
		school.UpdateClassroomHandler(), school.DeleteClassroomHandler())
	crud(protected.Group("/students", readOnlyUnlessAdmin),
		school.ListStudentsHandler(), school.CreateStudentHandler(), school.GetStudentHandler(),
		school.UpdateStudentHandler(), school.DeleteStudentHandler())
	crud(protected.Group("/student-documents", readOnlyUnlessAdmin),
		school.ListDocumentsHandler(), school.CreateDocumentHandler(), school.GetDocumentHandler(),
		school.UpdateDocumentHandler(), school.DeleteDocumentHandler())

	// Attendance
	att := protected.Group("/attendance", auth.RequireRole(models.RoleAdmin, models.RoleTeacher, models.RoleAssistant))
	att.Get("/summary", attendance.SummaryHandler())
	crud(att,
		attendance.ListAttendanceHandler(), attendance.CreateAttendanceHandler(), attendance.GetAttendanceHandler(),
		attendance.UpdateAttendanceHandler(), attendance.DeleteAttendanceHandler())

	// Medical
	crud(protected.Group("/medical", auth.RequireRole(models.RoleAdmin, models.RoleNurse, models.RoleTeacher)),
		medical.ListMedicalRecordsHandler(), medical.CreateMedicalRecordHandler(), medical.GetMedicalRecordHandler(),
		medical.UpdateMedicalRecordHandler(), medical.DeleteMedicalRecordHandler())

	// Finance
	financeRoles := auth.RequireRole(models.RoleAdmin, models.RoleAccountant)
	crud(protected.Group("/invoices", financeRoles),
		finance.ListInvoicesHandler(), finance.CreateInvoiceHandler(), finance.GetInvoiceHandler(),
		finance.UpdateInvoiceHandler(), finance.DeleteInvoiceHandler())
	crud(protected.Group("/payments", financeRoles),
		finance.ListPaymentsHandler(), finance.CreatePaymentHandler(), finance.GetPaymentHandler(),
		finance.UpdatePaymentHandler(), finance.DeletePaymentHandler())

	// Inventory
	inv := protected.Group("/inventory", readOnlyUnlessAdmin)
	inv.Get("/report", inventory.HolderReportHandler())
	inv.Post("/import", inventory.ImportItemsHandler())
	inv.Get("/:id/history", inventory.ItemHistoryHandler())
	crud(inv,
		inventory.ListItemsHandler(), inventory.CreateItemHandler(), inventory.GetItemHandler(),
		inventory.UpdateItemHandler(), inventory.DeleteItemHandler())

	// Payroll
	pay := protected.Group("/payroll", financeRoles)
	pay.Get("/contracts/expiring", payroll.ExpiringContractsHandler())
	crud(pay.Group("/contracts"),
		payroll.ListContractsHandler(), payroll.CreateContractHandler(), payroll.GetContractHandler(),
		payroll.UpdateContractHandler(), payroll.DeleteContractHandler())
	pay.Get("/salaries/unpaid", payroll.UnpaidSalariesHandler())
	pay.Post("/salaries/generate", payroll.GenerateSalariesHandler())
	pay.Post("/salaries/:id/pay", payroll.PaySalaryHandler())
	crud(pay.Group("/salaries"),
		payroll.ListSalariesHandler(), payroll.CreateSalaryHandler(), payroll.GetSalaryHandler(),
		payroll.UpdateSalaryHandler(), payroll.DeleteSalaryHandler())

	// Dashboard
	protected.Get("/dashboard/summary", dashboard.SummaryHandler())
	protected.Get("/dashboard/payments-chart", dashboard.PaymentsChartHandler())

	// Reports
	reports.Register(protected.Group("/reports",
		auth.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleAccountant)), cfg.Company)
}
