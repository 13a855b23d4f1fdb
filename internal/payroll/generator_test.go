package payroll

import (
	"context"
	"testing"
	"time"

	"nursery-backend/internal/models"
	"nursery-backend/internal/testutil"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func fixedClock(day time.Time) func() time.Time {
	return func() time.Time { return day.Add(11 * time.Hour) }
}

func TestGenerator_CreatesOncePerMonth(t *testing.T) {
	db := testutil.PrepareDB(t)
	amal := testutil.CreateStaff(t, db, "Amal", "amal@nursery.test", models.RoleTeacher)
	contract := testutil.CreateContract(t, db, amal.ID, "5000", "500", "10", testutil.Date(2026, time.January, 1), nil)

	gen := Generator{DB: db, Now: fixedClock(testutil.Date(2026, time.October, 18))}

	res, err := gen.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutil.Date(2026, time.October, 1), res.Month)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 0, res.Skipped)
	assert.Empty(t, res.Failures)

	var rec models.SalaryRecord
	require.NoError(t, db.Where("staff_id = ?", amal.ID).First(&rec).Error)
	assert.Equal(t, "4950.00", rec.NetSalary.StringFixed(2))
	assert.Equal(t, "10.00", rec.TaxApplied.StringFixed(2))
	assert.Equal(t, "0.00", rec.AdvanceTaken.StringFixed(2))
	assert.False(t, rec.IsPaid)
	require.NotNil(t, rec.ContractID)
	assert.Equal(t, contract.ID, *rec.ContractID)

	res, err = gen.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Skipped)

	var n int64
	require.NoError(t, db.Model(&models.SalaryRecord{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	var logs int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("entity_type = ?", "salary_record").Count(&logs).Error)
	assert.EqualValues(t, 1, logs)
}

func TestGenerator_SnapshotSurvivesContractEdit(t *testing.T) {
	db := testutil.PrepareDB(t)
	amal := testutil.CreateStaff(t, db, "Amal", "amal@nursery.test", models.RoleTeacher)
	contract := testutil.CreateContract(t, db, amal.ID, "5000", "500", "10", testutil.Date(2026, time.January, 1), nil)

	gen := Generator{DB: db, Now: fixedClock(testutil.Date(2026, time.October, 2))}
	_, err := gen.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, db.Model(&contract).Updates(map[string]any{
		"base_salary":    testutil.Dec("9000"),
		"tax_percentage": testutil.Dec("0"),
	}).Error)

	var rec models.SalaryRecord
	require.NoError(t, db.Where("staff_id = ?", amal.ID).First(&rec).Error)
	assert.Equal(t, "5000.00", rec.BaseSalary.StringFixed(2))
	assert.Equal(t, "4950.00", rec.NetSalary.StringFixed(2))

	gen.Now = fixedClock(testutil.Date(2026, time.November, 3))
	res, err := gen.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	var nov models.SalaryRecord
	require.NoError(t, db.Where("staff_id = ? AND month = ?", amal.ID, testutil.Date(2026, time.November, 1)).First(&nov).Error)
	assert.Equal(t, "9500.00", nov.NetSalary.StringFixed(2))
}

func TestGenerator_IgnoresInactiveAndOutOfTerm(t *testing.T) {
	db := testutil.PrepareDB(t)
	active := testutil.CreateStaff(t, db, "Amal", "amal@nursery.test", models.RoleTeacher)
	gone := testutil.CreateStaff(t, db, "Badr", "badr@nursery.test", models.RoleSupport)
	later := testutil.CreateStaff(t, db, "Dana", "dana@nursery.test", models.RoleNurse)
	ended := testutil.CreateStaff(t, db, "Eman", "eman@nursery.test", models.RoleAssistant)
	require.NoError(t, db.Model(&gone).Update("is_active", false).Error)

	endedOn := testutil.Date(2026, time.September, 30)
	firstDay := testutil.Date(2026, time.October, 1)
	testutil.CreateContract(t, db, active.ID, "4000", "0", "0", testutil.Date(2026, time.October, 31), nil)
	testutil.CreateContract(t, db, gone.ID, "3000", "0", "0", testutil.Date(2025, time.January, 1), nil)
	testutil.CreateContract(t, db, later.ID, "3500", "0", "0", testutil.Date(2026, time.November, 1), nil)
	testutil.CreateContract(t, db, ended.ID, "3500", "0", "0", testutil.Date(2025, time.January, 1), &endedOn)

	gen := Generator{DB: db, Now: fixedClock(testutil.Date(2026, time.October, 18))}
	res, err := gen.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created, "a contract starting on the month's last day still covers it")
	assert.Equal(t, 3, res.Ignored)

	// a contract ending on the first day still covers the month
	require.NoError(t, db.Model(&models.PayrollContract{}).Where("staff_id = ?", ended.ID).
		Update("contract_end", firstDay).Error)
	res, err = gen.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.Ignored)
}

// beforeSalaryInsert runs fn right before each salary record INSERT, after
// the generator's existence check has passed.
func beforeSalaryInsert(t *testing.T, db *gorm.DB, fn func(tx *gorm.DB, rec *models.SalaryRecord)) {
	t.Helper()
	const name = "test:before_salary_insert"
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if rec, ok := tx.Statement.Dest.(*models.SalaryRecord); ok {
			fn(tx, rec)
		}
	}))
	t.Cleanup(func() { _ = db.Callback().Create().Remove(name) })
}

func TestGenerator_LosingTheRaceCountsAsSkipped(t *testing.T) {
	db := testutil.PrepareDB(t)
	amal := testutil.CreateStaff(t, db, "Amal", "amal@nursery.test", models.RoleTeacher)
	contract := testutil.CreateContract(t, db, amal.ID, "5000", "500", "10", testutil.Date(2026, time.January, 1), nil)
	month := testutil.Date(2026, time.October, 1)

	inserted := false
	beforeSalaryInsert(t, db, func(tx *gorm.DB, rec *models.SalaryRecord) {
		if inserted {
			return
		}
		inserted = true
		rival := NewRecord(contract, rec.Month)
		rival.Deductions = testutil.Dec("1")
		rival.Recalculate()
		if err := tx.Session(&gorm.Session{NewDB: true}).Omit(clause.Associations).Create(&rival).Error; err != nil {
			tx.AddError(err)
		}
	})

	gen := Generator{DB: db, Now: fixedClock(testutil.Date(2026, time.October, 18))}
	res, err := gen.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, res.Failures)

	var recs []models.SalaryRecord
	require.NoError(t, db.Where("staff_id = ? AND month = ?", amal.ID, month).Find(&recs).Error)
	require.Len(t, recs, 1)
	assert.Equal(t, "1.00", recs[0].Deductions.StringFixed(2), "the earlier row is kept")

	var logs int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&logs).Error)
	assert.Zero(t, logs)
}

func TestGenerator_FailingContractDoesNotBlockOthers(t *testing.T) {
	db := testutil.PrepareDB(t)
	amal := testutil.CreateStaff(t, db, "Amal", "amal@nursery.test", models.RoleTeacher)
	badr := testutil.CreateStaff(t, db, "Badr", "badr@nursery.test", models.RoleSupport)
	broken := testutil.CreateContract(t, db, amal.ID, "5000", "0", "0", testutil.Date(2026, time.January, 1), nil)
	testutil.CreateContract(t, db, badr.ID, "3000", "0", "0", testutil.Date(2026, time.January, 1), nil)

	beforeSalaryInsert(t, db, func(tx *gorm.DB, rec *models.SalaryRecord) {
		if rec.StaffID == amal.ID {
			tx.AddError(errors.New("disk full"))
		}
	})

	gen := Generator{DB: db, Now: fixedClock(testutil.Date(2026, time.October, 18)), ActorName: "scheduler"}
	res, err := gen.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 0, res.Skipped)
	require.Len(t, res.Failures, 1)
	f := res.Failures[0]
	assert.Equal(t, broken.ID, f.ContractID)
	assert.Equal(t, amal.ID, f.StaffID)
	assert.Equal(t, "Amal Tester", f.StaffName)
	assert.Contains(t, f.Error, "disk full")

	var recs []models.SalaryRecord
	require.NoError(t, db.Find(&recs).Error)
	require.Len(t, recs, 1)
	assert.Equal(t, badr.ID, recs[0].StaffID)

	var entries []models.AuditLog
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, recs[0].ID, entries[0].EntityID)
	assert.Equal(t, "scheduler", entries[0].UserName)
}

func TestGenerator_StopsWhenCancelled(t *testing.T) {
	db := testutil.PrepareDB(t)
	amal := testutil.CreateStaff(t, db, "Amal", "amal@nursery.test", models.RoleTeacher)
	testutil.CreateContract(t, db, amal.ID, "5000", "0", "0", testutil.Date(2026, time.January, 1), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := Generator{DB: db, Now: fixedClock(testutil.Date(2026, time.October, 18))}
	_, err := gen.Run(ctx)
	assert.Error(t, err)
}

func TestInsertRecord_ExistingRowIsNotAnError(t *testing.T) {
	db := testutil.PrepareDB(t)
	amal := testutil.CreateStaff(t, db, "Amal", "amal@nursery.test", models.RoleTeacher)
	contract := testutil.CreateContract(t, db, amal.ID, "5000", "500", "10", testutil.Date(2026, time.January, 1), nil)
	month := testutil.Date(2026, time.October, 1)

	first := NewRecord(contract, month)
	ok, err := insertRecord(db, &first)
	require.NoError(t, err)
	assert.True(t, ok)

	second := NewRecord(contract, month)
	ok, err = insertRecord(db, &second)
	require.NoError(t, err)
	assert.False(t, ok)

	// bypassing the existence check still lands on the unique index
	third := NewRecord(contract, month)
	err = db.Create(&third).Error
	require.Error(t, err)
}

func TestNewRecord_NetSalary(t *testing.T) {
	tests := []struct {
		name                 string
		base, allowance, tax string
		want                 string
	}{
		{"with tax", "5000", "500", "10", "4950.00"},
		{"no tax", "3000", "250", "0", "3250.00"},
		{"fractional", "1234.56", "0", "7.5", "1141.97"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord(models.PayrollContract{
				ID:            9,
				StaffID:       3,
				BaseSalary:    testutil.Dec(tt.base),
				Allowance:     testutil.Dec(tt.allowance),
				TaxPercentage: testutil.Dec(tt.tax),
			}, testutil.Date(2026, time.October, 18))
			assert.Equal(t, tt.want, rec.NetSalary.StringFixed(2))
			assert.Equal(t, testutil.Date(2026, time.October, 1), rec.Month)
		})
	}
}
