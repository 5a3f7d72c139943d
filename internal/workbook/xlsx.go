package workbook

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// XLSXReader reads Office Open XML workbooks.
type XLSXReader struct{}

// Format returns the file extension handled.
func (x *XLSXReader) Format() string { return "xlsx" }

// XLSMReader reads macro-enabled workbooks. Macros are ignored.
type XLSMReader struct{ XLSXReader }

// Format returns the file extension handled.
func (x *XLSMReader) Format() string { return "xlsm" }

// Read returns the first sheet. Cell kinds follow the stored cell type, so a
// number typed as text stays text.
func (x *XLSXReader) Read(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rawRows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	grid := make([][]Cell, len(rawRows))
	for i, rawRow := range rawRows {
		row := make([]Cell, len(rawRow))
		for j, v := range rawRow {
			if v == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(sheet, axis)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", axis, err)
			}
			row[j] = xlsxCell(typ, v)
		}
		grid[i] = row
	}
	return NewTable(grid), nil
}

func xlsxCell(typ excelize.CellType, v string) Cell {
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return TextCell(v)
	case excelize.CellTypeBool, excelize.CellTypeError:
		return Cell{}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return TextCell(v)
	}
	return Cell{Kind: Number, Num: d, Text: v}
}
