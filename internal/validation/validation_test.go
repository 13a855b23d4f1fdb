package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string           `json:"name" validate:"required,max=5"`
	Kind   string           `json:"kind" validate:"oneof=A B"`
	Amount decimal.Decimal  `json:"amount" validate:"gte=0"`
	Tax    *decimal.Decimal `json:"tax" validate:"omitempty,gte=0,lte=100"`
	Day    string           `json:"day" validate:"omitempty,datetime=2006-01-02"`
	At     string           `json:"at" validate:"omitempty,datetime=15:04|datetime=15:04:05"`
}

func TestStruct(t *testing.T) {
	neg := decimal.NewFromInt(-1)
	tooMuch := decimal.NewFromInt(120)

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, Struct(sample{Name: "ok", Kind: "A", Amount: decimal.NewFromInt(3)}))
	})

	t.Run("per field messages", func(t *testing.T) {
		err := Struct(sample{Name: "", Kind: "C", Amount: neg, Tax: &tooMuch, Day: "18/10/2026", At: "8.30"})
		var ve *Error
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "this field is required", ve.Fields["name"])
		assert.Equal(t, "must be one of: A, B", ve.Fields["kind"])
		assert.Equal(t, "must be greater than or equal to 0", ve.Fields["amount"])
		assert.Equal(t, "must be less than or equal to 100", ve.Fields["tax"])
		assert.Equal(t, "date has wrong format, use YYYY-MM-DD", ve.Fields["day"])
		assert.Equal(t, "time has wrong format, use hh:mm[:ss]", ve.Fields["at"])
	})

	t.Run("either time layout", func(t *testing.T) {
		assert.NoError(t, Struct(sample{Name: "x", Kind: "A", At: "08:30"}))
		assert.NoError(t, Struct(sample{Name: "x", Kind: "A", At: "08:30:15"}))
	})

	t.Run("nil optional pointer skipped", func(t *testing.T) {
		assert.NoError(t, Struct(sample{Name: "x", Kind: "B", Tax: nil}))
	})
}

func TestErrorMessageIsStable(t *testing.T) {
	e := &Error{Fields: map[string]string{"b": "two", "a": "one"}}
	assert.Equal(t, "validation failed: a: one; b: two", e.Error())
}

type clearable struct {
	Ends *string `json:"ends" validate:"omitempty,optional_date"`
	At   *string `json:"at" validate:"omitempty,optional_time"`
}

func TestOptionalDateAndTime(t *testing.T) {
	empty, day, bad := "", "2026-10-18", "18/10/2026"
	clock, clockSec, badClock := "08:30", "08:30:15", "8.30"

	tests := []struct {
		name    string
		in      clearable
		wantErr map[string]string
	}{
		{name: "absent", in: clearable{}},
		{name: "empty clears", in: clearable{Ends: &empty, At: &empty}},
		{name: "valid", in: clearable{Ends: &day, At: &clock}},
		{name: "seconds", in: clearable{At: &clockSec}},
		{name: "malformed", in: clearable{Ends: &bad, At: &badClock}, wantErr: map[string]string{
			"ends": "date has wrong format, use YYYY-MM-DD",
			"at":   "time has wrong format, use hh:mm[:ss]",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			var ve *Error
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantErr, ve.Fields)
		})
	}
}
