// Package reports renders tabular exports of the back-office data as PDF
// and XLSX files.
package reports

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Table is one report: a header row, data rows and optional summary lines
// printed below the rows. Cells hold string, int, int64, bool or
// decimal.Decimal values.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]any
	Summary []SummaryLine
}

type SummaryLine struct {
	Label string
	Value string
}

func (t *Table) AddRow(cells ...any) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) AddSummary(label, value string) {
	t.Summary = append(t.Summary, SummaryLine{Label: label, Value: value})
}

// cellText is the printed form of a cell.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case decimal.Decimal:
		return x.StringFixed(2)
	case *decimal.Decimal:
		if x == nil {
			return ""
		}
		return x.StringFixed(2)
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprint(x)
	}
}

func cellIsMoney(v any) bool {
	switch v.(type) {
	case decimal.Decimal, *decimal.Decimal:
		return true
	}
	return false
}

// FileName turns a title into a download name, e.g. "Staff Report" ->
// "staff_report.pdf".
func FileName(title, ext string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	name := strings.TrimSuffix(b.String(), "_")
	if name == "" {
		name = "report"
	}
	return name + "." + ext
}
