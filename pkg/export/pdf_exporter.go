package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth = 277.0 // A4 landscape minus margins
	pdfRowHeight = 6.0
)

// PDFExporter renders datasets into a landscape table, repeating the header
// row on every page.
type PDFExporter struct {
	// Weights sizes columns relative to each other; missing headers weigh 1.
	Weights map[string]float64
}

// NewPDFExporter constructs a PDF exporter with manifest-friendly weights.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{Weights: map[string]float64{
		"date":        1,
		"label":       0.7,
		"status":      0.9,
		"http_status": 0.9,
		"file":        2.6,
		"error":       3.2,
	}}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	widths := e.columnWidths(data.Headers)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.SetHeaderFunc(func() {
		if title != "" && pdf.PageNo() == 1 {
			pdf.SetFont("Arial", "B", 13)
			pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
			pdf.Ln(2)
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], 7, header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	})
	pdf.AddPage()

	for _, row := range data.Rows {
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], pdfRowHeight, fit(pdf, row[header], widths[i]-2), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) columnWidths(headers []string) []float64 {
	total := 0.0
	weights := make([]float64, len(headers))
	for i, h := range headers {
		w, ok := e.Weights[h]
		if !ok || w <= 0 {
			w = 1
		}
		weights[i] = w
		total += w
	}
	for i := range weights {
		weights[i] = weights[i] / total * pdfPageWidth
	}
	return weights
}

// fit truncates s with an ellipsis so it renders within width millimetres.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
