package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/Tarunkasliwal/qpg/internal/model"
)

const (
	pageMargin = 36.0
	lineHeight = 14.0
	cellPad    = 4.0
)

// columnRatios are the relative widths of the table columns.
var columnRatios = []float64{80, 60, 300, 40, 40, 40}

type rgb struct{ r, g, b int }

var (
	headerFill  = rgb{128, 128, 128}
	headerText  = rgb{245, 245, 245}
	rowFillOdd  = rgb{245, 245, 245}
	rowFillEven = rgb{211, 211, 211}
)

// PDFRenderer renders papers with the core Helvetica font.
type PDFRenderer struct {
	layout   string
	labels   Labels
	compress bool
}

func (r *PDFRenderer) Ext() string { return FormatPDF }

func (r *PDFRenderer) Render(w io.Writer, p model.Paper, h model.PaperHeader) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetCompression(r.compress)
	pdf.SetTitle(h.Title, true)
	pdf.SetCreator("qpg", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	r.writeHeader(pdf, tr, p, h)
	switch r.layout {
	case LayoutList:
		pdf.SetAutoPageBreak(true, pageMargin)
		r.writeList(pdf, tr, p)
	default:
		pdf.SetAutoPageBreak(false, pageMargin)
		r.writeTable(pdf, tr, p)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf output: %w", err)
	}
	return nil
}

func (r *PDFRenderer) writeHeader(pdf *fpdf.Fpdf, tr func(string) string, p model.Paper, h model.PaperHeader) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 26, tr(h.Title), "", 1, "C", false, 0, "")
	if h.Course != "" {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 20, tr(r.labels.Course+": "+h.Course), "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 11)
	if h.Instructor != "" {
		pdf.CellFormat(0, 16, tr(r.labels.Instructor+": "+h.Instructor), "", 1, "L", false, 0, "")
	}
	if h.Date != "" {
		pdf.CellFormat(0, 16, tr(r.labels.Date+": "+h.Date), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 16, tr(fmt.Sprintf("%s %d", r.labels.Paper, p.Number)), "", 1, "R", false, 0, "")
	pdf.Ln(18)
}

func columnWidths(pdf *fpdf.Fpdf) []float64 {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	avail := pageW - left - right
	var total float64
	for _, c := range columnRatios {
		total += c
	}
	widths := make([]float64, len(columnRatios))
	for i, c := range columnRatios {
		widths[i] = avail * c / total
	}
	return widths
}

func (r *PDFRenderer) writeTable(pdf *fpdf.Fpdf, tr func(string) string, p model.Paper) {
	widths := columnWidths(pdf)
	header := []string{
		r.labels.QuestionNo, r.labels.Subquestion, r.labels.QuestionText,
		r.labels.CO, r.labels.BT, r.labels.Marks,
	}
	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(headerText.r, headerText.g, headerText.b)
		tableRow(pdf, tr, widths, header, &headerFill, nil)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 10)
	}
	drawHeader()

	n := 0
	for _, rows := range unitRows(p) {
		for _, rw := range rows {
			fill := &rowFillOdd
			if n%2 == 1 {
				fill = &rowFillEven
			}
			tableRow(pdf, tr, widths, []string{rw.Number, rw.Sub, rw.Text, rw.CO, rw.BT, rw.Marks}, fill, drawHeader)
			n++
		}
		tableRow(pdf, tr, widths, make([]string, len(widths)), nil, drawHeader)
	}
}

// tableRow draws one grid row whose height fits its tallest cell. When the
// row would cross the bottom margin it starts a new page and calls onBreak.
func tableRow(pdf *fpdf.Fpdf, tr func(string) string, widths []float64, cells []string, fill *rgb, onBreak func()) {
	lines := make([][][]byte, len(cells))
	n := 1
	for i, c := range cells {
		lines[i] = pdf.SplitLines([]byte(tr(c)), widths[i]-2*cellPad)
		n = max(n, len(lines[i]))
	}
	height := float64(n)*lineHeight + 2*cellPad

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+height > pageH-bottom {
		pdf.AddPage()
		if onBreak != nil {
			onBreak()
		}
	}

	left, _, _, _ := pdf.GetMargins()
	x, y := left, pdf.GetY()
	style := "D"
	if fill != nil {
		pdf.SetFillColor(fill.r, fill.g, fill.b)
		style = "FD"
	}
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(1)
	for i, w := range widths {
		pdf.Rect(x, y, w, height, style)
		for k, line := range lines[i] {
			pdf.SetXY(x+cellPad, y+cellPad+float64(k)*lineHeight)
			pdf.CellFormat(w-2*cellPad, lineHeight, string(line), "", 0, "L", false, 0, "")
		}
		x += w
	}
	pdf.SetXY(left, y+height)
}

func (r *PDFRenderer) writeList(pdf *fpdf.Fpdf, tr func(string) string, p model.Paper) {
	for _, sel := range p.Selections {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.MultiCell(0, 18, tr(sel.Unit.Title), "", "L", false)
		pdf.SetFont("Helvetica", "", 11)
		for i, t := range model.Tiers {
			q, ok := sel.Questions[t]
			if !ok {
				continue
			}
			text, _ := q.Tags()
			line := fmt.Sprintf("%d. %s (%s %s)", i+1, text, t, r.labels.MarksSuffix)
			pdf.MultiCell(0, 16, tr(strings.TrimSpace(line)), "", "L", false)
		}
		pdf.Ln(10)
	}
}
