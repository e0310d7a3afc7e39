package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is column-ordered tabular content ready for rendering. Every row
// must have exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// RenderCSV encodes the table as CSV with a header row.
func RenderCSV(table Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(table.Columns))
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
