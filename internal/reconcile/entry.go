package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/shamba-dev/shamba/internal/matcher"
	"github.com/shamba-dev/shamba/internal/model"
	"github.com/shamba-dev/shamba/internal/workbook"
)

// Entry is one plot column of an upload and the plot it resolved to.
type Entry struct {
	PlotLabel       string
	Column          int
	MatchedPlotID   string // empty when IsMatch is false
	MatchedPlotName string
	Amount          decimal.Decimal
	IsMatch         bool
}

// Result summarises a finished commit.
type Result struct {
	UpdatedCount    int
	ZeroEntryCount  int
	UnmatchedLabels []string
}

// Writes returns the number of ledger entries the commit created.
func (r Result) Writes() int {
	return r.UpdatedCount + r.ZeroEntryCount
}

// Preview matches every extracted column against plots. It never writes.
func Preview(totals []workbook.ColumnTotal, plots []model.Plot) []Entry {
	m := matcher.New(plots)
	entries := make([]Entry, 0, len(totals))
	for _, ct := range totals {
		e := Entry{
			PlotLabel: ct.Column.Label,
			Column:    ct.Column.Index,
			Amount:    ct.Amount,
		}
		if p, ok := m.Match(ct.Column.Label); ok {
			e.MatchedPlotID = p.ID
			e.MatchedPlotName = p.Name
			e.IsMatch = true
		}
		entries = append(entries, e)
	}
	return entries
}

// Summary describes a preview for display before committing.
type Summary struct {
	Columns      int
	Matched      int
	Unmatched    int
	MatchedTotal decimal.Decimal
}

// Summarize counts matched and unmatched entries and totals the matched amounts.
func Summarize(entries []Entry) Summary {
	s := Summary{Columns: len(entries)}
	for _, e := range entries {
		if e.IsMatch {
			s.Matched++
			s.MatchedTotal = s.MatchedTotal.Add(e.Amount)
		} else {
			s.Unmatched++
		}
	}
	return s
}
