// Package pdf renders tabular reports: landscape A4, a coloured header band
// with the title, repeated column headers on every page and a footer with
// the generation time and page numbers.
//
//	err := pdf.Render(w, pdf.Table{
//	    Title:   "Inventory",
//	    Columns: []pdf.Column{{Header: "Product", Width: 2}, {Header: "Stock", Width: 1, Right: true}},
//	    Rows:    [][]string{{"Paracetamol", "120"}},
//	})
package pdf

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// Column describes one table column. Width is relative to the other
// columns; Right aligns the cell text right.
type Column struct {
	Header string
	Width  float64
	Right  bool
}

// Table is a whole report.
type Table struct {
	Title     string
	Subtitle  string
	Columns   []Column
	Rows      [][]string
	Summary   []string // printed below the table, one line each
	Generated time.Time
}

var ErrNoColumns = errors.New("pdf: table has no columns")

const (
	rowHeight  = 7.0
	bandHeight = 22.0
	font       = "Helvetica"
)

// Render writes t as a PDF document to w.
func Render(w io.Writer, t Table) error {
	if len(t.Columns) == 0 {
		return ErrNoColumns
	}
	if t.Generated.IsZero() {
		t.Generated = time.Now().UTC()
	}

	doc := fpdf.New("L", "mm", "A4", "")
	doc.SetAutoPageBreak(true, 18)
	doc.AliasNbPages("{nb}")
	tr := doc.UnicodeTranslatorFromDescriptor("")

	pageW, _ := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	widths := scale(t.Columns, pageW-left-right)

	doc.SetHeaderFunc(func() {
		doc.SetFillColor(22, 101, 52)
		doc.Rect(0, 0, pageW, bandHeight, "F")
		doc.SetTextColor(255, 255, 255)
		doc.SetFont(font, "B", 16)
		doc.SetXY(left, 5)
		doc.CellFormat(0, 8, tr(t.Title), "", 1, "L", false, 0, "")
		if t.Subtitle != "" {
			doc.SetFont(font, "", 10)
			doc.SetX(left)
			doc.CellFormat(0, 6, tr(t.Subtitle), "", 1, "L", false, 0, "")
		}
		doc.SetY(bandHeight + 4)

		doc.SetFillColor(229, 231, 235)
		doc.SetTextColor(17, 24, 39)
		doc.SetFont(font, "B", 9)
		for i, c := range t.Columns {
			doc.CellFormat(widths[i], rowHeight, tr(c.Header), "1", 0, align(c), true, 0, "")
		}
		doc.Ln(-1)
		doc.SetFont(font, "", 9)
	})

	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont(font, "I", 8)
		doc.SetTextColor(107, 114, 128)
		doc.CellFormat(0, 5, "Generated "+t.Generated.Format("2006-01-02 15:04 MST"), "", 0, "L", false, 0, "")
		doc.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", doc.PageNo()), "", 0, "R", false, 0, "")
	})

	doc.AddPage()
	if len(t.Rows) == 0 {
		doc.SetFont(font, "I", 10)
		doc.CellFormat(0, rowHeight*2, "No records.", "", 1, "C", false, 0, "")
	}
	for n, row := range t.Rows {
		if n%2 == 1 {
			doc.SetFillColor(249, 250, 251)
		} else {
			doc.SetFillColor(255, 255, 255)
		}
		for i, c := range t.Columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			doc.CellFormat(widths[i], rowHeight, tr(fit(doc, cell, widths[i])), "1", 0, align(c), true, 0, "")
		}
		doc.Ln(-1)
	}

	if len(t.Summary) > 0 {
		doc.Ln(4)
		doc.SetFont(font, "B", 10)
		for _, line := range t.Summary {
			doc.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
		}
	}

	if err := doc.Error(); err != nil {
		return fmt.Errorf("pdf: build: %w", err)
	}
	return doc.Output(w)
}

func align(c Column) string {
	if c.Right {
		return "R"
	}
	return "L"
}

func scale(cols []Column, total float64) []float64 {
	sum := 0.0
	for _, c := range cols {
		if c.Width <= 0 {
			c.Width = 1
		}
		sum += c.Width
	}
	out := make([]float64, len(cols))
	for i, c := range cols {
		if c.Width <= 0 {
			c.Width = 1
		}
		out[i] = total * c.Width / sum
	}
	return out
}

// fit truncates s with an ellipsis so it fits in width.
func fit(doc *fpdf.Fpdf, s string, width float64) string {
	limit := width - 2
	if doc.GetStringWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && doc.GetStringWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
