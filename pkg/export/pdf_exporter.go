package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth   = 277.0
	pdfFirstColumn = 24.0
	pdfLineHeight  = 4.5
)

// PDFExporter renders sheets as landscape tables, one page per sheet.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with a page per sheet. Multi-line cell values wrap inside their column.
func (e *PDFExporter) Render(sheets []Sheet, title string) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("pdf requires at least one sheet")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, sheet := range sheets {
		headers := sheet.Dataset.Headers
		if len(headers) == 0 {
			return nil, fmt.Errorf("sheet %q has no headers", sheet.Name)
		}
		pdf.AddPage()

		heading := sheet.Name
		if title != "" {
			heading = title + " - " + sheet.Name
		}
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 9, tr(heading), "", 1, "C", false, 0, "")
		pdf.Ln(3)

		widths := columnWidths(len(headers))

		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(68, 114, 196)
		pdf.SetTextColor(255, 255, 255)
		for i, header := range headers {
			pdf.CellFormat(widths[i], 7, tr(singleLine(header)), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)

		pdf.SetFont("Arial", "", 7)
		for _, row := range sheet.Dataset.Rows {
			lines := 1
			for i, header := range headers {
				n := len(pdf.SplitLines([]byte(tr(row[header])), widths[i]-2))
				if n > lines {
					lines = n
				}
			}
			height := float64(lines)*pdfLineHeight + 2

			x, y := pdf.GetXY()
			if y+height > 210-12 {
				pdf.AddPage()
				x, y = pdf.GetXY()
			}
			for i, header := range headers {
				pdf.Rect(x, y, widths[i], height, "D")
				pdf.SetXY(x+1, y+1)
				pdf.MultiCell(widths[i]-2, pdfLineHeight, tr(row[header]), "", "L", false)
				x += widths[i]
				pdf.SetXY(x, y)
			}
			pdf.SetXY(10, y+height)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths gives the first column a fixed width and splits the rest evenly.
func columnWidths(n int) []float64 {
	widths := make([]float64, n)
	if n == 1 {
		widths[0] = pdfPageWidth
		return widths
	}
	widths[0] = pdfFirstColumn
	rest := (pdfPageWidth - pdfFirstColumn) / float64(n-1)
	for i := 1; i < n; i++ {
		widths[i] = rest
	}
	return widths
}

// singleLine flattens a multi-line value for table cells that cannot wrap.
func singleLine(value string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(value, "\n", "; ")), " ")
}
