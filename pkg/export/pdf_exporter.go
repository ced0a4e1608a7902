package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Section is one titled table of a document, such as a transcript semester.
type Section struct {
	Heading string
	Table   Dataset
	Widths  []float64
	Footer  string
}

// Document is a multi section report rendered to PDF.
type Document struct {
	Title    string
	Subtitle []string
	Sections []Section
	Summary  []string
}

// PDFExporter renders documents into paginated A4 PDFs.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

const pageWidth = 190.0

// Render creates a PDF with a header block, one table per section and a summary.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "", 10)
	for _, line := range doc.Subtitle {
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	for i, section := range doc.Sections {
		if len(section.Table.Headers) == 0 {
			return nil, fmt.Errorf("section %d has no headers", i+1)
		}
		widths := columnWidths(section)
		if section.Heading != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(0, 8, section.Heading, "", 1, "L", false, 0, "")
		}
		pdf.SetFont("Arial", "B", 9)
		for j, header := range section.Table.Headers {
			pdf.CellFormat(widths[j], 7, header, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		for _, row := range section.Table.Rows {
			for j := range section.Table.Headers {
				value := ""
				if j < len(row) {
					value = row[j]
				}
				pdf.CellFormat(widths[j], 6, value, "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
		if section.Footer != "" {
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(0, 7, section.Footer, "", 1, "R", false, 0, "")
		}
		pdf.Ln(3)
	}

	if len(doc.Summary) > 0 {
		pdf.SetFont("Arial", "B", 10)
		for _, line := range doc.Summary {
			pdf.CellFormat(0, 7, line, "", 1, "L", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(section Section) []float64 {
	n := len(section.Table.Headers)
	if len(section.Widths) == n {
		return section.Widths
	}
	widths := make([]float64, n)
	for i := range widths {
		widths[i] = pageWidth / float64(n)
	}
	return widths
}
