package reports

import (
	"bytes"
	"fmt"
	"time"

	"nursery-backend/internal/config"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
)

const (
	fontFamily  = "Helvetica"
	rowHeight   = 6.0
	cellPadding = 2.0
	// columns wider than this share of the page are truncated
	maxColumnShare = 0.35
)

// pdfDoc wraps fpdf with the company header and the cp1252 translation the
// core fonts need.
type pdfDoc struct {
	*fpdf.Fpdf
	tr func(string) string
}

func newPDF(company config.Company, title string, generatedAt time.Time, landscape bool) *pdfDoc {
	orientation := "P"
	if landscape {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor(company.Name, true)
	pdf.SetCreator(company.Name, true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")

	d := &pdfDoc{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 6, d.tr(fmt.Sprintf("%s  |  Generated %s  |  Page %d/{nb}",
			company.Name, generatedAt.Format("2006-01-02 15:04"), pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	d.companyHeader(company, title)
	return d
}

func (d *pdfDoc) companyHeader(company config.Company, title string) {
	d.SetTextColor(0, 0, 0)
	d.SetFont(fontFamily, "B", 16)
	d.CellFormat(0, 8, d.tr(company.Name), "", 1, "L", false, 0, "")
	d.SetFont(fontFamily, "", 9)
	d.CellFormat(0, 5, d.tr(company.Address), "", 1, "L", false, 0, "")
	d.CellFormat(0, 5, d.tr(company.Email+"  |  "+company.Phone), "", 1, "L", false, 0, "")
	d.Ln(4)
	d.SetFont(fontFamily, "B", 13)
	d.CellFormat(0, 8, d.tr(title), "B", 1, "L", false, 0, "")
	d.Ln(3)
}

func (d *pdfDoc) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}
	return buf.Bytes(), nil
}

// fit shortens s with an ellipsis until it fits in width.
func (d *pdfDoc) fit(s string, width float64) string {
	s = d.tr(s)
	if d.GetStringWidth(s) <= width {
		return s
	}
	// translated text is single-byte
	for len(s) > 0 && d.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}

// columnWidths sizes each column by its widest cell, capped and then scaled
// to the printable width.
func (d *pdfDoc) columnWidths(t Table) []float64 {
	pageW, _ := d.GetPageSize()
	left, _, right, _ := d.GetMargins()
	avail := pageW - left - right

	widths := make([]float64, len(t.Headers))
	d.SetFont(fontFamily, "B", 9)
	for i, h := range t.Headers {
		widths[i] = d.GetStringWidth(d.tr(h)) + 2*cellPadding
	}
	d.SetFont(fontFamily, "", 9)
	for _, row := range t.Rows {
		for i := range widths {
			if i >= len(row) {
				break
			}
			if w := d.GetStringWidth(d.tr(cellText(row[i]))) + 2*cellPadding; w > widths[i] {
				widths[i] = w
			}
		}
	}

	total := 0.0
	for i := range widths {
		if limit := avail * maxColumnShare; widths[i] > limit {
			widths[i] = limit
		}
		total += widths[i]
	}
	if total > 0 {
		scale := avail / total
		for i := range widths {
			widths[i] *= scale
		}
	}
	return widths
}

func (d *pdfDoc) headerRow(t Table, widths []float64) {
	d.SetFont(fontFamily, "B", 9)
	d.SetFillColor(221, 235, 247)
	for i, h := range t.Headers {
		d.CellFormat(widths[i], rowHeight+1, d.fit(h, widths[i]-cellPadding), "1", 0, "L", true, 0, "")
	}
	d.Ln(-1)
	d.SetFont(fontFamily, "", 9)
}

func (d *pdfDoc) table(t Table) {
	if len(t.Headers) == 0 {
		return
	}
	widths := d.columnWidths(t)
	_, pageH := d.GetPageSize()
	_, _, _, bottom := d.GetMargins()

	d.headerRow(t, widths)
	if len(t.Rows) == 0 {
		d.SetFont(fontFamily, "I", 9)
		d.CellFormat(0, rowHeight+2, "No records.", "", 1, "L", false, 0, "")
	}
	for n, row := range t.Rows {
		if d.GetY()+rowHeight > pageH-bottom {
			d.AddPage()
			d.headerRow(t, widths)
		}
		d.SetFillColor(245, 245, 245)
		for i := range widths {
			var v any
			if i < len(row) {
				v = row[i]
			}
			align := "L"
			if isNumeric(v) {
				align = "R"
			}
			d.CellFormat(widths[i], rowHeight, d.fit(cellText(v), widths[i]-cellPadding), "1", 0, align, n%2 == 1, 0, "")
		}
		d.Ln(-1)
	}

	if len(t.Summary) > 0 {
		d.Ln(4)
		for _, s := range t.Summary {
			d.SetFont(fontFamily, "B", 10)
			d.CellFormat(50, rowHeight, d.tr(s.Label), "", 0, "L", false, 0, "")
			d.SetFont(fontFamily, "", 10)
			d.CellFormat(0, rowHeight, d.tr(s.Value), "", 1, "L", false, 0, "")
		}
	}
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int64, uint, float64:
		return true
	}
	return cellIsMoney(v)
}

// RenderPDF prints t under the company header. Tables with more than six
// columns use landscape pages.
func RenderPDF(company config.Company, t Table, generatedAt time.Time) ([]byte, error) {
	d := newPDF(company, t.Title, generatedAt, len(t.Headers) > 6)
	d.table(t)
	if err := d.Error(); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}
	return d.bytes()
}
