package workbook

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVReader reads comma-separated exports.
type CSVReader struct{}

// Format returns the file extension handled.
func (c *CSVReader) Format() string { return "csv" }

// Read returns every record as a row with inferred cell kinds.
func (c *CSVReader) Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	grid := make([][]Cell, len(records))
	for i, rec := range records {
		row := make([]Cell, len(rec))
		for j, v := range rec {
			if i == 0 && j == 0 {
				v = strings.TrimPrefix(v, "\ufeff")
			}
			row[j] = InferCell(v)
		}
		grid[i] = row
	}
	return NewTable(grid), nil
}
