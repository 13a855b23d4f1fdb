// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"nursery-backend/internal/database"
	"nursery-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// PrepareDB opens a migrated in-memory database and installs it as
// database.DB for the duration of the test.
func PrepareDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		_ = sqlDB.Close()
	})
	return db
}

func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func CreateStaff(t *testing.T, db *gorm.DB, first, email string, role models.StaffRole) models.Staff {
	t.Helper()
	s := models.Staff{
		FirstName: first,
		LastName:  "Tester",
		Role:      role,
		HireDate:  Date(2024, time.January, 8),
		Email:     email,
		Phone:     "+971-50-000-0000",
		IsActive:  true,
	}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func CreateStudent(t *testing.T, db *gorm.DB, first string, born time.Time) models.Student {
	t.Helper()
	s := models.Student{
		FirstName:        first,
		LastName:         "Kid",
		DateOfBirth:      born,
		Gender:           models.GenderFemale,
		EnrollmentDate:   Date(2025, time.September, 1),
		IsActive:         true,
		GuardianName:     "Guardian " + first,
		GuardianContact:  "+971-50-111-1111",
		EmergencyContact: "+971-50-222-2222",
	}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func CreateContract(t *testing.T, db *gorm.DB, staffID uint, base, allowance, tax string, start time.Time, end *time.Time) models.PayrollContract {
	t.Helper()
	c := models.PayrollContract{
		StaffID:       staffID,
		BaseSalary:    Dec(base),
		Allowance:     Dec(allowance),
		TaxPercentage: Dec(tax),
		MaxAdvance:    decimal.Zero,
		ContractStart: start,
		ContractEnd:   end,
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func CreateInvoice(t *testing.T, db *gorm.DB, studentID uint, amount string, status models.InvoiceStatus) models.Invoice {
	t.Helper()
	inv := models.Invoice{
		StudentID: studentID,
		IssueDate: Date(2026, time.October, 1),
		DueDate:   Date(2026, time.October, 31),
		Amount:    Dec(amount),
		Status:    status,
		IsIncome:  true,
	}
	require.NoError(t, db.Create(&inv).Error)
	return inv
}
