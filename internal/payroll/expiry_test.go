package payroll

import (
	"testing"
	"time"

	"nursery-backend/internal/models"
	"nursery-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiryBucket(t *testing.T) {
	today := testutil.Date(2026, time.October, 18)
	in := func(days int) *time.Time {
		d := today.AddDate(0, 0, days)
		return &d
	}

	tests := []struct {
		name string
		end  *time.Time
		want Bucket
	}{
		{"no end date", nil, BucketNone},
		{"already ended", in(-1), BucketNone},
		{"ends today", in(0), BucketSoon},
		{"day 30", in(30), BucketSoon},
		{"day 31", in(31), BucketLater},
		{"day 60", in(60), BucketLater},
		{"day 61", in(61), BucketNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpiryBucket(tt.end, today))
		})
	}
}

func TestExpiryBucket_IgnoresClock(t *testing.T) {
	end := testutil.Date(2026, time.November, 17)
	lateEvening := testutil.Date(2026, time.October, 18).Add(23 * time.Hour)
	assert.Equal(t, BucketSoon, ExpiryBucket(&end, lateEvening))
}

func TestFindExpiring(t *testing.T) {
	db := testutil.PrepareDB(t)
	today := testutil.Date(2026, time.October, 18)
	start := testutil.Date(2025, time.January, 1)

	mk := func(first string, days *int) {
		s := testutil.CreateStaff(t, db, first, first+"@nursery.test", models.RoleTeacher)
		var end *time.Time
		if days != nil {
			d := today.AddDate(0, 0, *days)
			end = &d
		}
		testutil.CreateContract(t, db, s.ID, "3000", "0", "0", start, end)
	}
	day := func(n int) *int { return &n }

	mk("soon", day(30))
	mk("first", day(3))
	mk("later", day(31))
	mk("far", day(90))
	mk("past", day(-2))
	mk("open", nil)

	exp, err := FindExpiring(db, today)
	require.NoError(t, err)

	require.Len(t, exp.Within30, 2)
	assert.Equal(t, "first", exp.Within30[0].Staff.FirstName)
	assert.Equal(t, "soon", exp.Within30[1].Staff.FirstName)
	require.Len(t, exp.Within60, 1)
	assert.Equal(t, "later", exp.Within60[0].Staff.FirstName)
}
