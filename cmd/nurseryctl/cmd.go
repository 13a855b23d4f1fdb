package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"nursery-backend/internal/attendance"
	"nursery-backend/internal/auth"
	"nursery-backend/internal/database"
	"nursery-backend/internal/inventory"
	"nursery-backend/internal/models"
	"nursery-backend/internal/payroll"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/term"
	"gorm.io/gorm"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

const minPasswordLen = 8

type commandLine struct {
	db  *gorm.DB
	out io.Writer
	now func() time.Time
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  generate-salaries [-month YYYY-MM]            - create this month's salary records from the contracts")
	fmt.Fprintln(cli.out, "  unpaid-salaries                               - list salary records not yet paid")
	fmt.Fprintln(cli.out, "  contract-expiry                               - list contracts ending within 60 days")
	fmt.Fprintln(cli.out, "  attendance-summary [-from DATE] [-to DATE]    - count attendance per status")
	fmt.Fprintln(cli.out, "  inventory-report                              - inventory value and low stock by holder")
	fmt.Fprintln(cli.out, "  createsuperuser -email EMAIL [-name NAME]     - create a superuser, the password is prompted next")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	genCmd := cli.flagSet("generate-salaries")
	genMonth := genCmd.String("month", "", "Month to generate, e.g. 2026-10. Defaults to the current month.")

	summaryCmd := cli.flagSet("attendance-summary")
	summaryFrom := summaryCmd.String("from", "", "First day, YYYY-MM-DD. Defaults to the start of the month.")
	summaryTo := summaryCmd.String("to", "", "Last day, YYYY-MM-DD. Defaults to today.")

	superCmd := cli.flagSet("createsuperuser")
	superEmail := superCmd.String("email", "", "The superuser's email. The password will be prompted next.")
	superName := superCmd.String("name", "Administrator", "The superuser's display name.")

	plainCmd := cli.flagSet(args[1])

	switch args[1] {
	case "generate-salaries":
		if err := genCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.generateSalaries(*genMonth)
	case "unpaid-salaries":
		if err := plainCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.unpaidSalaries()
	case "contract-expiry":
		if err := plainCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.contractExpiry()
	case "attendance-summary":
		if err := summaryCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.attendanceSummary(*summaryFrom, *summaryTo)
	case "inventory-report":
		if err := plainCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.inventoryReport()
	case "createsuperuser":
		if err := superCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *superEmail == "" {
			superCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) < minPasswordLen {
			fmt.Fprintf(cli.out, "password must be at least %d characters\n", minPasswordLen)
			return errHelp
		}
		return cli.createSuperuser(*superName, *superEmail, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) table() *tabwriter.Writer {
	return tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
}

func (cli *commandLine) generateSalaries(month string) error {
	now := cli.now
	if month != "" {
		m, err := time.Parse("2006-01", month)
		if err != nil {
			return errors.Errorf("month must be YYYY-MM (got %q)", month)
		}
		now = func() time.Time { return m }
	}

	res, err := payroll.Generator{DB: cli.db, Now: now, ActorName: "nurseryctl"}.Run(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s: %d created, %d skipped, %d ignored, %d failed\n",
		res.Month.Format("January 2006"), res.Created, res.Skipped, res.Ignored, len(res.Failures))
	for _, f := range res.Failures {
		fmt.Fprintf(cli.out, "  contract %d (%s): %s\n", f.ContractID, f.StaffName, f.Error)
	}
	return nil
}

func (cli *commandLine) unpaidSalaries() error {
	records, err := payroll.FindUnpaid(cli.db)
	if err != nil {
		return err
	}
	w := cli.table()
	fmt.Fprintln(w, "ID\tSTAFF\tMONTH\tNET")
	total := decimal.Zero
	for _, r := range records {
		name := ""
		if r.Staff != nil {
			name = r.Staff.FullName()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, name, r.Month.Format("2006-01"), r.NetSalary.StringFixed(2))
		total = total.Add(r.NetSalary)
	}
	fmt.Fprintf(w, "\t\tTOTAL\t%s\n", total.StringFixed(2))
	return w.Flush()
}

func (cli *commandLine) contractExpiry() error {
	today := models.DateOf(cli.now())
	exp, err := payroll.FindExpiring(cli.db, today)
	if err != nil {
		return err
	}
	w := cli.table()
	fmt.Fprintln(w, "WINDOW\tCONTRACT\tSTAFF\tENDS\tDAYS LEFT")
	list := func(window string, contracts []models.PayrollContract) {
		for _, c := range contracts {
			name := ""
			if c.Staff != nil {
				name = c.Staff.FullName()
			}
			days := int(c.ContractEnd.Sub(today).Hours() / 24)
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\n", window, c.ID, name, models.FormatDate(*c.ContractEnd), days)
		}
	}
	list("30 days", exp.Within30)
	list("60 days", exp.Within60)
	return w.Flush()
}

func (cli *commandLine) attendanceSummary(fromArg, toArg string) error {
	today := models.DateOf(cli.now())
	from, to := models.MonthStart(today), today
	var err error
	if fromArg != "" {
		if from, err = models.ParseDate(fromArg); err != nil {
			return errors.Errorf("from must be YYYY-MM-DD (got %q)", fromArg)
		}
	}
	if toArg != "" {
		if to, err = models.ParseDate(toArg); err != nil {
			return errors.Errorf("to must be YYYY-MM-DD (got %q)", toArg)
		}
	}
	if from.After(to) {
		return errors.New("from must not be after to")
	}

	s, err := attendance.Summarize(cli.db, from, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Attendance %s to %s\n", s.From, s.To)
	w := cli.table()
	fmt.Fprintln(w, "STATUS\tSTUDENTS\tSTAFF")
	for _, st := range attendance.Statuses {
		fmt.Fprintf(w, "%s\t%d\t%d\n", st, s.Students[st], s.Staff[st])
	}
	return w.Flush()
}

func (cli *commandLine) inventoryReport() error {
	r, err := inventory.BuildHolderReport(cli.db)
	if err != nil {
		return err
	}
	w := cli.table()
	fmt.Fprintln(w, "HOLDER\tITEMS")
	fmt.Fprintf(w, "unassigned\t%d\n", len(r.Unassigned))
	fmt.Fprintf(w, "staff\t%d\n", len(r.AssignedToStaff))
	fmt.Fprintf(w, "students\t%d\n", len(r.AssignedToStudents))
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Total value: %s\nLow stock: %d\n", r.TotalValue, r.LowStock)
	return nil
}

func (cli *commandLine) createSuperuser(name, email, pwd string) error {
	hash, err := auth.HashPassword(pwd)
	if err != nil {
		return err
	}
	u := models.User{
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		IsSuperuser:  true,
		IsActive:     true,
	}
	if err := cli.db.Create(&u).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return errors.Errorf("a user with email %s already exists", u.Email)
		}
		return err
	}
	fmt.Fprintf(cli.out, "superuser %s created (id %d)\n", u.Email, u.ID)
	return nil
}
