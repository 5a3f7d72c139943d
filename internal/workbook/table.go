package workbook

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Kind classifies a parsed cell.
type Kind int

const (
	// Empty is a blank cell, or one holding neither a number nor text (booleans, errors).
	Empty Kind = iota
	Number
	String
)

// Cell is one typed spreadsheet value.
type Cell struct {
	Kind Kind
	Num  decimal.Decimal // set when Kind == Number
	Text string          // raw text; whitespace-only text is kept on Empty cells
}

// TextCell returns a String cell, or an Empty one for blank text.
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{Text: s}
	}
	return Cell{Kind: String, Text: s}
}

// NumberCell returns a Number cell.
func NumberCell(d decimal.Decimal) Cell {
	return Cell{Kind: Number, Num: d, Text: d.String()}
}

// InferCell types untyped text (csv, xls): plain decimal literals become
// numbers, blanks become Empty, everything else stays text.
func InferCell(s string) Cell {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Cell{Text: s}
	}
	if plainNumber.MatchString(trimmed) {
		if d, err := decimal.NewFromString(trimmed); err == nil {
			return Cell{Kind: Number, Num: d, Text: s}
		}
	}
	return Cell{Kind: String, Text: s}
}

// isText reports whether c holds text, counting whitespace-only text.
func (c Cell) isText() bool {
	return c.Kind == String || (c.Kind == Empty && c.Text != "")
}

// containsMarker reports whether c is text containing the grand-total marker.
func (c Cell) containsMarker() bool {
	return c.Kind == String && strings.Contains(strings.ToLower(c.Text), grandTotalMarker)
}

const grandTotalMarker = "grand total"

// Table is the first sheet of an uploaded workbook. Row 0 is the header.
// Tables are never modified after Read returns.
type Table struct {
	header []Cell
	rows   [][]Cell
}

// NewTable builds a Table from a grid whose first row is the header.
// Trailing blank rows are dropped.
func NewTable(grid [][]Cell) *Table {
	end := len(grid)
	for end > 0 && blankRow(grid[end-1]) {
		end--
	}
	grid = grid[:end]
	if len(grid) == 0 {
		return &Table{}
	}
	return &Table{header: grid[0], rows: grid[1:]}
}

func blankRow(row []Cell) bool {
	for _, c := range row {
		if c.Kind != Empty {
			return false
		}
	}
	return true
}

// Len returns the number of rows including the header.
func (t *Table) Len() int {
	if t.header == nil && len(t.rows) == 0 {
		return 0
	}
	return len(t.rows) + 1
}

// Header returns the header cell at col, or an Empty cell.
func (t *Table) Header(col int) Cell {
	return cellAt(t.header, col)
}

// HeaderLen returns the number of header cells.
func (t *Table) HeaderLen() int { return len(t.header) }

// DataRows returns the number of rows below the header.
func (t *Table) DataRows() int { return len(t.rows) }

// Cell returns the data cell at (row, col), row 0 being the first data row.
// Missing cells are Empty.
func (t *Table) Cell(row, col int) Cell {
	if row < 0 || row >= len(t.rows) {
		return Cell{}
	}
	return cellAt(t.rows[row], col)
}

func cellAt(row []Cell, col int) Cell {
	if col < 0 || col >= len(row) {
		return Cell{}
	}
	return row[col]
}

// PlotColumn is a header column naming a plot.
type PlotColumn struct {
	Index int
	Label string
}

// PlotColumns returns the header columns that name plots: every text header
// after the task column (index 0), skipping "grand total" columns. A
// whitespace-only header is still a column; it matches no plot.
func (t *Table) PlotColumns() []PlotColumn {
	var cols []PlotColumn
	for i := 1; i < len(t.header); i++ {
		h := t.header[i]
		if !h.isText() || h.containsMarker() {
			continue
		}
		cols = append(cols, PlotColumn{Index: i, Label: h.Text})
	}
	return cols
}

// GrandTotalRow returns the data-row index of the last row whose first cell
// mentions "grand total", or -1.
func (t *Table) GrandTotalRow() int {
	for i := len(t.rows) - 1; i >= 0; i-- {
		if cellAt(t.rows[i], 0).containsMarker() {
			return i
		}
	}
	return -1
}
