package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const pdfPrintableWidth = 190.0

// RenderPDF lays the table out as a bordered grid on A4 portrait pages,
// with an optional uppercased title above it.
func RenderPDF(table Table, title string) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(10, 15, 10)
	doc.AddPage()

	if title != "" {
		doc.SetFont("Arial", "B", 14)
		doc.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		doc.Ln(4)
	}

	cellWidth := pdfPrintableWidth / float64(len(table.Columns))

	doc.SetFont("Arial", "B", 10)
	for _, column := range table.Columns {
		doc.CellFormat(cellWidth, 8, column, "1", 0, "C", false, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Arial", "", 9)
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(table.Columns))
		}
		for _, cell := range row {
			doc.CellFormat(cellWidth, 7, cell, "1", 0, "", false, 0, "")
		}
		doc.Ln(-1)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
