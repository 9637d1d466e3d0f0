package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Section is one titled block of a document export.
type Section struct {
	Heading    string
	Paragraphs []string
	Bullets    []string
	Tags       []string
}

// Document describes a sectioned export such as a handoff brief.
type Document struct {
	Title    string
	Subtitle string
	Sections []Section
}

// PDFExporter renders documents into simple A4 PDFs.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF for the given document.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("pdf requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "I", 11)
		pdf.CellFormat(0, 7, doc.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	for _, section := range doc.Sections {
		if section.Heading != "" {
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, section.Heading, "", 1, "L", false, 0, "")
		}
		pdf.SetFont("Arial", "", 10)
		for _, paragraph := range section.Paragraphs {
			if strings.TrimSpace(paragraph) == "" {
				continue
			}
			pdf.MultiCell(0, 5, paragraph, "", "L", false)
			pdf.Ln(1)
		}
		for _, bullet := range section.Bullets {
			if strings.TrimSpace(bullet) == "" {
				continue
			}
			pdf.MultiCell(0, 5, "- "+bullet, "", "L", false)
		}
		if len(section.Tags) > 0 {
			pdf.SetFont("Arial", "I", 9)
			pdf.MultiCell(0, 5, strings.Join(section.Tags, ", "), "", "L", false)
		}
		pdf.Ln(3)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
