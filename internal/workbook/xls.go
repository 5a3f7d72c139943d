package workbook

import (
	"bytes"
	"fmt"
	"io"

	"github.com/extrame/xls"
)

// XLSReader reads legacy BIFF (.xls) workbooks.
type XLSReader struct{}

// Format returns the file extension handled.
func (x *XLSReader) Format() string { return "xls" }

// Read returns the first sheet. The format exposes cells as text only, so
// kinds are inferred.
func (x *XLSReader) Read(r io.Reader) (t *Table, err error) {
	// The BIFF decoder panics on some truncated files.
	defer func() {
		if p := recover(); p != nil {
			t, err = nil, fmt.Errorf("decoding xls: %v", p)
		}
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading xls: %w", err)
	}
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("opening xls: %w", err)
	}
	if book.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	grid := make([][]Cell, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		xrow := sheetRow(sheet, i)
		if xrow == nil {
			grid = append(grid, nil)
			continue
		}
		row := make([]Cell, xrow.LastCol())
		for j := xrow.FirstCol(); j < xrow.LastCol(); j++ {
			row[j] = InferCell(xrow.Col(j))
		}
		grid = append(grid, row)
	}
	return NewTable(grid), nil
}

// sheetRow returns row i, or nil when the sheet has no record for it.
// WorkSheet.Row dereferences missing rows.
func sheetRow(s *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return s.Row(i)
}
