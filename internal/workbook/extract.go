package workbook

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// ColumnTotal is the amount extracted for one plot column.
type ColumnTotal struct {
	Column PlotColumn
	Amount decimal.Decimal
}

// Extract returns one total per plot column. When the sheet has a grand-total
// row its cells are authoritative; otherwise every data row is summed.
func Extract(t *Table) []ColumnTotal {
	cols := t.PlotColumns()
	totalRow := t.GrandTotalRow()

	out := make([]ColumnTotal, 0, len(cols))
	for _, col := range cols {
		var amount decimal.Decimal
		if totalRow >= 0 {
			amount = CellAmount(t.Cell(totalRow, col.Index))
		} else {
			for row := 0; row < t.DataRows(); row++ {
				amount = amount.Add(CellAmount(t.Cell(row, col.Index)))
			}
		}
		out = append(out, ColumnTotal{Column: col, Amount: amount})
	}
	return out
}

// Parse reads the named upload and extracts its column totals.
func Parse(name string, data []byte) ([]ColumnTotal, error) {
	t, err := Read(name, data)
	if err != nil {
		return nil, err
	}
	return Extract(t), nil
}

var (
	nonNumeric    = regexp.MustCompile(`[^0-9.\-]`)
	leadingNumber = regexp.MustCompile(`^-?(\d+(\.\d+)?|\.\d+)`)
)

// CellAmount converts a cell to an amount: numbers as-is, text with
// everything but digits, '.' and '-' stripped, anything else zero.
func CellAmount(c Cell) decimal.Decimal {
	switch c.Kind {
	case Number:
		return c.Num
	case String:
		return LooseAmount(c.Text)
	}
	return decimal.Zero
}

// LooseAmount parses text such as "KES 1,250.50" as 1250.50. Only the leading
// numeric part of the stripped text counts ("1.2.3" is 1.2); text without
// one is zero.
func LooseAmount(s string) decimal.Decimal {
	m := leadingNumber.FindString(nonNumeric.ReplaceAllString(s, ""))
	if m == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero
	}
	return d
}
