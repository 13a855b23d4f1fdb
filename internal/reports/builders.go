package reports

import (
	"fmt"
	"sort"
	"time"

	"nursery-backend/internal/attendance"
	"nursery-backend/internal/inventory"
	"nursery-backend/internal/models"
	"nursery-backend/internal/payroll"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Builder loads one report's rows.
type Builder func(db *gorm.DB, today time.Time) (Table, error)

var builders = map[string]Builder{
	"students":            studentsReport,
	"staff":               staffReport,
	"classrooms":          classroomsReport,
	"invoices":            invoicesReport,
	"payments":            paymentsReport,
	"medical":             medicalReport,
	"inventory":           inventoryReport,
	"salaries":            salariesReport,
	"attendance":          attendanceReport,
	"attendance/students": studentAttendanceReport,
	"attendance/staff":    staffAttendanceReport,
	"contracts":           contractsReport,
	"documents":           documentsReport,
}

// Names lists every report name in a stable order.
func Names() []string {
	out := make([]string, 0, len(builders))
	for name := range builders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Build loads the report called name.
func Build(db *gorm.DB, name string, today time.Time) (Table, error) {
	b, ok := builders[name]
	if !ok {
		return Table{}, errors.Errorf("unknown report %q", name)
	}
	t, err := b(db, models.DateOf(today))
	return t, errors.Wrapf(err, "build %s report", name)
}

func nameOf(p interface{ FullName() string }, ok bool) string {
	if !ok {
		return ""
	}
	return p.FullName()
}

func dateOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return models.FormatDate(*t)
}

func studentsReport(db *gorm.DB, today time.Time) (Table, error) {
	t := Table{
		Title:   "Students Report",
		Headers: []string{"ID", "Name", "Age", "Gender", "Classroom", "Teacher", "Enrolled", "Guardian", "Contact", "Active"},
	}
	var rows []models.Student
	if err := db.Preload("Classroom").Preload("Teacher").Order("last_name, first_name").Find(&rows).Error; err != nil {
		return t, err
	}
	active := 0
	for _, s := range rows {
		classroom := ""
		if s.Classroom != nil {
			classroom = s.Classroom.String()
		}
		if s.IsActive {
			active++
		}
		t.AddRow(s.ID, s.FullName(), s.AgeOn(today), string(s.Gender), classroom,
			nameOf(s.Teacher, s.Teacher != nil), models.FormatDate(s.EnrollmentDate),
			s.GuardianName, s.GuardianContact, s.IsActive)
	}
	t.AddSummary("Students", fmt.Sprint(len(rows)))
	t.AddSummary("Active", fmt.Sprint(active))
	return t, nil
}

func staffReport(db *gorm.DB, _ time.Time) (Table, error) {
	t := Table{
		Title:   "Staff Report",
		Headers: []string{"ID", "Name", "Role", "Hire Date", "Email", "Phone", "Active"},
	}
	var rows []models.Staff
	if err := db.Order("hire_date DESC, id DESC").Find(&rows).Error; err != nil {
		return t, err
	}
	for _, s := range rows {
		t.AddRow(s.ID, s.FullName(), string(s.Role), models.FormatDate(s.HireDate), s.Email, s.Phone, s.IsActive)
	}
	t.AddSummary("Staff members", fmt.Sprint(len(rows)))
	return t, nil
}

func classroomsReport(db *gorm.DB, _ time.Time) (Table, error) {
	t := Table{
		Title:   "Classrooms Report",
		Headers: []string{"ID", "Name", "Grade", "Capacity", "Students", "Teacher"},
	}
	var rows []models.Classroom
	if err := db.Order("name").Find(&rows).Error; err != nil {
		return t, err
	}

	type count struct {
		ClassroomID uint
		N           int64
	}
	var counts []count
	if err := db.Model(&models.Student{}).
		Select("classroom_id, COUNT(*) AS n").
		Where("classroom_id IS NOT NULL AND is_active = ?", true).
		Group("classroom_id").
		Scan(&counts).Error; err != nil {
		return t, err
	}
	byRoom := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byRoom[c.ClassroomID] = c.N
	}

	for _, c := range rows {
		t.AddRow(c.ID, c.Name, c.GradeLevel.Label(), c.Capacity, byRoom[c.ID], c.Teacher)
	}
	return t, nil
}

func invoicesReport(db *gorm.DB, today time.Time) (Table, error) {
	t := Table{
		Title:   "Invoices Report",
		Headers: []string{"ID", "Student", "Issued", "Due", "Days Left", "Amount", "Tax %", "Total", "Status"},
	}
	var rows []models.Invoice
	if err := db.Preload("Student").Order("issue_date DESC, id DESC").Find(&rows).Error; err != nil {
		return t, err
	}
	total, outstanding := decimal.Zero, decimal.Zero
	for _, inv := range rows {
		taxed := inv.TaxedAmount()
		total = total.Add(taxed)
		if inv.Status != models.InvoicePaid {
			outstanding = outstanding.Add(taxed)
		}
		t.AddRow(inv.ID, nameOf(inv.Student, inv.Student != nil), models.FormatDate(inv.IssueDate),
			models.FormatDate(inv.DueDate), inv.DaysRemainingOn(today), inv.Amount, inv.TaxPercentage,
			taxed, string(inv.Status))
	}
	t.AddSummary("Invoices", fmt.Sprint(len(rows)))
	t.AddSummary("Total invoiced", total.StringFixed(2))
	t.AddSummary("Outstanding", outstanding.StringFixed(2))
	return t, nil
}

// InvoiceTable is the single-invoice view: the invoice lines and its
// payments.
func InvoiceTable(db *gorm.DB, id uint, today time.Time) (Table, error) {
	var inv models.Invoice
	if err := db.Preload("Student").First(&inv, id).Error; err != nil {
		return Table{}, err
	}
	var payments []models.Payment
	if err := db.Where("invoice_id = ?", id).Order("payment_date, id").Find(&payments).Error; err != nil {
		return Table{}, err
	}

	t := Table{
		Title:   fmt.Sprintf("Invoice #%d", inv.ID),
		Headers: []string{"Payment", "Date", "Method", "Transaction", "Amount"},
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
		t.AddRow(p.ID, models.FormatDate(p.PaymentDate), string(p.Method), p.TransactionID, p.Amount)
	}

	t.AddSummary("Student", nameOf(inv.Student, inv.Student != nil))
	t.AddSummary("Issued", models.FormatDate(inv.IssueDate))
	t.AddSummary("Due", fmt.Sprintf("%s (%d days)", models.FormatDate(inv.DueDate), inv.DaysRemainingOn(today)))
	if inv.Description != "" {
		t.AddSummary("Description", inv.Description)
	}
	t.AddSummary("Amount", inv.Amount.StringFixed(2))
	if inv.TaxPercentage != nil {
		t.AddSummary("Tax", inv.TaxPercentage.StringFixed(2)+"%")
	}
	t.AddSummary("Total", inv.TaxedAmount().StringFixed(2))
	t.AddSummary("Paid", paid.StringFixed(2))
	t.AddSummary("Balance", inv.TaxedAmount().Sub(paid).StringFixed(2))
	t.AddSummary("Status", string(inv.Status))
	return t, nil
}

func paymentsReport(db *gorm.DB, _ time.Time) (Table, error) {
	t := Table{
		Title:   "Payments Report",
		Headers: []string{"ID", "Invoice", "Student", "Date", "Method", "Transaction", "Amount", "Invoice Status"},
	}
	var rows []models.Payment
	if err := db.Preload("Invoice.Student").Order("payment_date DESC, id DESC").Find(&rows).Error; err != nil {
		return t, err
	}
	total := decimal.Zero
	paid, unpaid := 0, 0
	for _, p := range rows {
		total = total.Add(p.Amount)
		student, status := "", ""
		if p.Invoice != nil {
			status = string(p.Invoice.Status)
			student = nameOf(p.Invoice.Student, p.Invoice.Student != nil)
			switch p.Invoice.Status {
			case models.InvoicePaid:
				paid++
			case models.InvoiceUnpaid:
				unpaid++
			}
		}
		t.AddRow(p.ID, p.InvoiceID, student, models.FormatDate(p.PaymentDate), string(p.Method), p.TransactionID, p.Amount, status)
	}
	t.AddSummary("Payments", fmt.Sprint(len(rows)))
	t.AddSummary("Total received", total.StringFixed(2))
	t.AddSummary("On paid invoices", fmt.Sprint(paid))
	t.AddSummary("On unpaid invoices", fmt.Sprint(unpaid))
	return t, nil
}

func medicalReport(db *gorm.DB, _ time.Time) (Table, error) {
	t := Table{
		Title:   "Medical Records Report",
		Headers: []string{"ID", "Student", "Type", "Date", "Description", "Resolved"},
	}
	var rows []models.MedicalRecord
	if err := db.Preload("Student").Order("date DESC, id DESC").Find(&rows).Error; err != nil {
		return t, err
	}
	open := 0
	for _, m := range rows {
		if !m.Resolved {
			open++
		}
		t.AddRow(m.ID, nameOf(m.Student, m.Student != nil), string(m.RecordType), models.FormatDate(m.Date), m.Description, m.Resolved)
	}
	t.AddSummary("Records", fmt.Sprint(len(rows)))
	t.AddSummary("Unresolved", fmt.Sprint(open))
	return t, nil
}

func inventoryReport(db *gorm.DB, _ time.Time) (Table, error) {
	t := Table{
		Title:   "Inventory Report",
		Headers: []string{"ID", "Name", "Category", "Qty", "Unit Price", "Value", "Custodian", "Student", "Low Stock"},
	}
	var rows []models.InventoryItem
	if err := db.Preload("StaffCustodian").Preload("AssignedToStudent").Order("name").Find(&rows).Error; err != nil {
		return t, err
	}
	for _, i := range rows {
		t.AddRow(i.ID, i.Name, string(i.Category), i.Quantity, i.UnitPrice, i.TotalValue(),
			nameOf(i.StaffCustodian, i.StaffCustodian != nil),
			nameOf(i.AssignedToStudent, i.AssignedToStudent != nil), i.IsLowStock())
	}

	holders, err := inventory.BuildHolderReport(db)
	if err != nil {
		return t, err
	}
	t.AddSummary("Unassigned", fmt.Sprint(len(holders.Unassigned)))
	t.AddSummary("With staff", fmt.Sprint(len(holders.AssignedToStaff)))
	t.AddSummary("With students", fmt.Sprint(len(holders.AssignedToStudents)))
	t.AddSummary("Low stock", fmt.Sprint(holders.LowStock))
	t.AddSummary("Total value", holders.TotalValue)
	return t, nil
}

func salariesReport(db *gorm.DB, _ time.Time) (Table, error) {
	t := Table{
		Title:   "Salaries Report",
		Headers: []string{"ID", "Staff", "Month", "Base", "Allowance", "Tax %", "Advance", "Deductions", "Net", "Paid", "Paid On"},
	}
	var rows []models.SalaryRecord
	if err := db.Preload("Staff").Order("month DESC, staff_id").Find(&rows).Error; err != nil {
		return t, err
	}
	net, unpaid := decimal.Zero, decimal.Zero
	for _, r := range rows {
		net = net.Add(r.NetSalary)
		if !r.IsPaid {
			unpaid = unpaid.Add(r.NetSalary)
		}
		t.AddRow(r.ID, nameOf(r.Staff, r.Staff != nil), r.Month.Format("Jan 2006"), r.BaseSalary, r.Allowance,
			r.TaxApplied, r.AdvanceTaken, r.Deductions, r.NetSalary, r.IsPaid, dateOrEmpty(r.PaymentDate))
	}
	t.AddSummary("Records", fmt.Sprint(len(rows)))
	t.AddSummary("Total net", net.StringFixed(2))
	t.AddSummary("Unpaid", unpaid.StringFixed(2))
	return t, nil
}

func attendanceRows(db *gorm.DB, scope func(*gorm.DB) *gorm.DB) ([]models.Attendance, error) {
	var rows []models.Attendance
	err := scope(db.Preload("Student").Preload("Staff")).Order("date DESC, id DESC").Find(&rows).Error
	return rows, err
}

func addAttendanceRow(t *Table, a models.Attendance, withKind bool) {
	who, kind := "", "Student"
	switch {
	case a.Student != nil:
		who = a.Student.FullName()
	case a.Staff != nil:
		who, kind = a.Staff.FullName(), "Staff"
	}
	in, out := "", ""
	if a.CheckIn != nil {
		in = *a.CheckIn
	}
	if a.CheckOut != nil {
		out = *a.CheckOut
	}
	if withKind {
		t.AddRow(a.ID, models.FormatDate(a.Date), kind, who, string(a.Status), in, out, a.Notes)
		return
	}
	t.AddRow(a.ID, models.FormatDate(a.Date), who, string(a.Status), in, out, a.Notes)
}

func attendanceReport(db *gorm.DB, today time.Time) (Table, error) {
	t := Table{
		Title:   "Attendance Report",
		Headers: []string{"ID", "Date", "Type", "Name", "Status", "Check In", "Check Out", "Notes"},
	}
	rows, err := attendanceRows(db, func(q *gorm.DB) *gorm.DB { return q })
	if err != nil {
		return t, err
	}
	for _, a := range rows {
		addAttendanceRow(&t, a, true)
	}

	sum, err := attendance.Summarize(db, models.MonthStart(today), today)
	if err != nil {
		return t, err
	}
	for _, st := range attendance.Statuses {
		t.AddSummary(fmt.Sprintf("%s this month", st), fmt.Sprintf("students %d, staff %d", sum.Students[st], sum.Staff[st]))
	}
	return t, nil
}

func studentAttendanceReport(db *gorm.DB, _ time.Time) (Table, error) {
	t := Table{
		Title:   "Student Attendance Report",
		Headers: []string{"ID", "Date", "Student", "Status", "Check In", "Check Out", "Notes"},
	}
	rows, err := attendanceRows(db, func(q *gorm.DB) *gorm.DB { return q.Where("student_id IS NOT NULL") })
	if err != nil {
		return t, err
	}
	for _, a := range rows {
		addAttendanceRow(&t, a, false)
	}
	t.AddSummary("Records", fmt.Sprint(len(rows)))
	return t, nil
}

func staffAttendanceReport(db *gorm.DB, _ time.Time) (Table, error) {
	t := Table{
		Title:   "Staff Attendance Report",
		Headers: []string{"ID", "Date", "Staff", "Status", "Check In", "Check Out", "Notes"},
	}
	rows, err := attendanceRows(db, func(q *gorm.DB) *gorm.DB { return q.Where("staff_id IS NOT NULL") })
	if err != nil {
		return t, err
	}
	for _, a := range rows {
		addAttendanceRow(&t, a, false)
	}
	t.AddSummary("Records", fmt.Sprint(len(rows)))
	return t, nil
}

func contractsReport(db *gorm.DB, today time.Time) (Table, error) {
	t := Table{
		Title:   "Payroll Contracts Report",
		Headers: []string{"ID", "Staff", "Base", "Allowance", "Tax %", "Max Advance", "Start", "End", "Expiry"},
	}
	var rows []models.PayrollContract
	if err := db.Preload("Staff").Order("contract_start DESC, id DESC").Find(&rows).Error; err != nil {
		return t, err
	}
	soon, later := 0, 0
	for _, c := range rows {
		expiry := ""
		switch payroll.ExpiryBucket(c.ContractEnd, today) {
		case payroll.BucketSoon:
			expiry = "within 30 days"
			soon++
		case payroll.BucketLater:
			expiry = "within 60 days"
			later++
		}
		t.AddRow(c.ID, nameOf(c.Staff, c.Staff != nil), c.BaseSalary, c.Allowance, c.TaxPercentage,
			c.MaxAdvance, models.FormatDate(c.ContractStart), dateOrEmpty(c.ContractEnd), expiry)
	}
	t.AddSummary("Contracts", fmt.Sprint(len(rows)))
	t.AddSummary("Ending within 30 days", fmt.Sprint(soon))
	t.AddSummary("Ending in 31-60 days", fmt.Sprint(later))
	return t, nil
}

func documentsReport(db *gorm.DB, today time.Time) (Table, error) {
	t := Table{
		Title:   "Student Documents Report",
		Headers: []string{"ID", "Student", "Type", "File", "Issued", "Expires", "Expired"},
	}
	var rows []models.StudentDocument
	if err := db.Preload("Student").Order("issue_date DESC, id DESC").Find(&rows).Error; err != nil {
		return t, err
	}
	expired := 0
	for _, d := range rows {
		if d.IsExpiredOn(today) {
			expired++
		}
		t.AddRow(d.ID, nameOf(d.Student, d.Student != nil), string(d.DocType), d.File,
			models.FormatDate(d.IssueDate), dateOrEmpty(d.ExpirationDate), d.IsExpiredOn(today))
	}
	t.AddSummary("Documents", fmt.Sprint(len(rows)))
	t.AddSummary("Expired", fmt.Sprint(expired))
	return t, nil
}
