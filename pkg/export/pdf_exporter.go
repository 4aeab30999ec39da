package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfFont        = "Helvetica"
	pdfRowHeight   = 7.0
	pdfHeadHeight  = 8.0
	pdfMarginSide  = 12.0
	pdfMarginTop   = 15.0
	pdfFooterSpace = 15.0
)

var errNoColumns = errors.New("pdf requires at least one column besides the group column")

// PDFOption tweaks the PDF layout.
type PDFOption func(*PDFExporter)

// WithLandscape lays pages out in landscape.
func WithLandscape() PDFOption {
	return func(e *PDFExporter) { e.orientation = "L" }
}

// WithFooter prints text at the bottom left of every page, next to the page counter.
func WithFooter(text string) PDFOption {
	return func(e *PDFExporter) { e.footer = text }
}

// PDFExporter renders a dataset as an A4 table, with a shaded heading row each
// time the GroupBy column changes.
type PDFExporter struct {
	orientation string
	footer      string
}

func NewPDFExporter(opts ...PDFOption) *PDFExporter {
	e := &PDFExporter{orientation: "P"}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render lays out data and returns the encoded document.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	columns := tableColumns(data)
	if len(columns) == 0 {
		return nil, errNoColumns
	}

	doc := gofpdf.New(e.orientation, "mm", "A4", "")
	doc.SetMargins(pdfMarginSide, pdfMarginTop, pdfMarginSide)
	doc.SetAutoPageBreak(true, pdfFooterSpace)
	doc.AliasNbPages("")
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFooterFunc(func() {
		doc.SetY(-pdfFooterSpace + 3)
		doc.SetFont(pdfFont, "I", 8)
		doc.CellFormat(0, 6, tr(e.footer), "", 0, "L", false, 0, "")
		doc.CellFormat(0, 6, fmt.Sprintf("%d / {nb}", doc.PageNo()), "", 0, "R", false, 0, "")
	})
	doc.AddPage()

	pageWidth, pageHeight := doc.GetPageSize()
	usable := pageWidth - 2*pdfMarginSide
	widths := columnWidths(columns, data.Rows, usable)

	if data.Title != "" {
		doc.SetFont(pdfFont, "B", 14)
		doc.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
		doc.Ln(4)
	}

	header := func() {
		doc.SetFont(pdfFont, "B", 10)
		for i, col := range columns {
			doc.CellFormat(widths[i], pdfHeadHeight, tr(col), "1", 0, "C", false, 0, "")
		}
		doc.Ln(-1)
	}
	// Keep a heading together with at least one row.
	fits := func(height float64) bool {
		return doc.GetY()+height <= pageHeight-pdfFooterSpace
	}

	if data.GroupBy == "" {
		header()
	}
	current, started := "", false
	for _, row := range data.Rows {
		if data.GroupBy != "" && (!started || row[data.GroupBy] != current) {
			current, started = row[data.GroupBy], true
			if !fits(2 + pdfHeadHeight*2 + pdfRowHeight) {
				doc.AddPage()
			} else {
				doc.Ln(2)
			}
			doc.SetFont(pdfFont, "B", 11)
			doc.SetFillColor(228, 232, 240)
			doc.CellFormat(usable, pdfHeadHeight, tr(current), "1", 1, "L", true, 0, "")
			header()
		}
		if !fits(pdfRowHeight) {
			doc.AddPage()
			header()
		}
		doc.SetFont(pdfFont, "", 9)
		for i, col := range columns {
			doc.CellFormat(widths[i], pdfRowHeight, tr(row[col]), "1", 0, "L", false, 0, "")
		}
		doc.Ln(-1)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func tableColumns(data Dataset) []string {
	columns := make([]string, 0, len(data.Headers))
	for _, h := range data.Headers {
		if h != data.GroupBy {
			columns = append(columns, h)
		}
	}
	return columns
}

// columnWidths splits total across columns in proportion to the longest value
// seen in each, clamped so no column dominates the page.
func columnWidths(columns []string, rows []map[string]string, total float64) []float64 {
	weights := make([]float64, len(columns))
	var sum float64
	for i, col := range columns {
		longest := utf8.RuneCountInString(col)
		for _, row := range rows {
			if n := utf8.RuneCountInString(strings.TrimSpace(row[col])); n > longest {
				longest = n
			}
		}
		w := float64(longest)
		if w < 6 {
			w = 6
		}
		if w > 40 {
			w = 40
		}
		weights[i] = w
		sum += w
	}
	for i := range weights {
		weights[i] = total * weights[i] / sum
	}
	return weights
}
