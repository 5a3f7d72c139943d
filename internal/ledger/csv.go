package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shamba-dev/shamba/internal/model"
	"github.com/shamba-dev/shamba/internal/week"
)

// Header is the CSV header for ledger exports.
const Header = "id,plot_id,plot_name,week_ending,amount,notes,created_at"

const (
	numFields    = 7
	colID        = 0
	colPlotID    = 1
	colPlotName  = 2
	colWeek      = 3
	colAmount    = 4
	colNotes     = 5
	colCreatedAt = 6
)

// Row is a ledger entry with its plot name resolved.
type Row struct {
	model.WeeklyExpense
	PlotName string
}

// WriteRows writes a ledger export (including header).
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, r := range rows {
		if err := cw.Write(MarshalRow(r)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRows reads a ledger export.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var rows []Row
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// MarshalRow converts a Row to CSV fields.
func MarshalRow(r Row) []string {
	rec := make([]string, numFields)
	rec[colID] = r.ID
	rec[colPlotID] = r.PlotID
	rec[colPlotName] = r.PlotName
	rec[colWeek] = week.Format(r.WeekEnding)
	rec[colAmount] = r.Amount.StringFixed(2)
	rec[colNotes] = r.Notes
	if !r.CreatedAt.IsZero() {
		rec[colCreatedAt] = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return rec
}

// UnmarshalRow converts CSV fields to a Row.
func UnmarshalRow(record []string) (Row, error) {
	if len(record) != numFields {
		return Row{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	weekEnding, err := week.Parse(record[colWeek])
	if err != nil {
		return Row{}, err
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return Row{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	var created time.Time
	if record[colCreatedAt] != "" {
		created, err = time.Parse(time.RFC3339, record[colCreatedAt])
		if err != nil {
			return Row{}, fmt.Errorf("parsing created_at %q: %w", record[colCreatedAt], err)
		}
	}

	return Row{
		WeeklyExpense: model.WeeklyExpense{
			ID:         record[colID],
			PlotID:     record[colPlotID],
			WeekEnding: weekEnding,
			Amount:     amount,
			Notes:      record[colNotes],
			CreatedAt:  created,
		},
		PlotName: record[colPlotName],
	}, nil
}
