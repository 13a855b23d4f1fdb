package reports

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// sheetName strips the characters Excel refuses in sheet names.
func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return -1
		}
		return r
	}, title)
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Report"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}

// xlsxValue keeps numbers numeric in the workbook.
func xlsxValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.Round(2).InexactFloat64()
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return x.Round(2).InexactFloat64()
	case string, int, int64, uint, float64, nil:
		return x
	default:
		return cellText(x)
	}
}

// RenderXLSX writes t to a single-sheet workbook with a bold, frozen header
// row and the summary lines below the data.
func RenderXLSX(t Table, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, errors.Wrap(err, "rename sheet")
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   t.Title,
		Created: generatedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, errors.Wrap(err, "document properties")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, errors.Wrap(err, "header style")
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, errors.Wrap(err, "money style")
	}

	header := make([]any, len(t.Headers))
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
		widths[i] = len(h)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, errors.Wrap(err, "write header")
	}
	if len(t.Headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Headers), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return nil, errors.Wrap(err, "style header")
		}
	}

	for r, row := range t.Rows {
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = xlsxValue(v)
			if i < len(widths) {
				if n := len(cellText(v)); n > widths[i] {
					widths[i] = n
				}
			}
		}
		start, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return nil, errors.Wrapf(err, "write row %d", r+1)
		}
		for i, v := range row {
			if cellIsMoney(v) {
				cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
				if err := f.SetCellStyle(sheet, cell, cell, moneyStyle); err != nil {
					return nil, errors.Wrap(err, "style money cell")
				}
			}
		}
	}

	next := len(t.Rows) + 3
	for _, s := range t.Summary {
		line := []any{s.Label, s.Value}
		cell, _ := excelize.CoordinatesToCellName(1, next)
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return nil, errors.Wrap(err, "write summary")
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return nil, errors.Wrap(err, "style summary")
		}
		next++
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if w > 60 {
			w = 60
		}
		if err := f.SetColWidth(sheet, col, col, float64(w+2)); err != nil {
			return nil, errors.Wrap(err, "column width")
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, errors.Wrap(err, "freeze header")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "write workbook")
	}
	return buf.Bytes(), nil
}
