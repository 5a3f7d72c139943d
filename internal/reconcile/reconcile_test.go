package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamba-dev/shamba/internal/model"
	"github.com/shamba-dev/shamba/internal/workbook"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func monday() time.Time {
	return time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
}

func knownPlots(n int) []model.Plot {
	names := []string{"Homa Bay North", "Kisii Highlands", "Nyeri East", "Kericho Tea Block", "Embu Valley"}
	out := make([]model.Plot, n)
	for i := 0; i < n; i++ {
		out[i] = model.Plot{ID: names[i][:3] + "-id", Name: names[i]}
	}
	return out
}

// fakeLedger records writes and can fail on the nth call.
type fakeLedger struct {
	writes  []model.NewExpense
	failAt  int // 1-based; 0 never fails
	calls   int
	inTx    bool
	txCalls int
	pending []model.NewExpense
}

func (f *fakeLedger) CreateExpense(_ context.Context, e model.NewExpense) (model.WeeklyExpense, error) {
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return model.WeeklyExpense{}, errors.New("connection reset")
	}
	if f.inTx {
		f.pending = append(f.pending, e)
	} else {
		f.writes = append(f.writes, e)
	}
	return model.WeeklyExpense{ID: "x", PlotID: e.PlotID, Amount: e.Amount}, nil
}

// txLedger adds transactions to fakeLedger.
type txLedger struct {
	*fakeLedger
}

func (t txLedger) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.txCalls++
	t.inTx = true
	t.pending = nil
	err := fn(ctx)
	t.inTx = false
	if err != nil {
		t.pending = nil
		return err
	}
	t.writes = append(t.writes, t.pending...)
	return nil
}

type countingRefresher struct{ n int }

func (c *countingRefresher) Refresh(context.Context) { c.n++ }

func entry(label, plotID, amount string) Entry {
	return Entry{PlotLabel: label, MatchedPlotID: plotID, IsMatch: plotID != "", Amount: dec(amount)}
}

func TestPreview_MatchesColumns(t *testing.T) {
	plots := []model.Plot{
		{ID: "hb", Name: "Homa Bay North"},
		{ID: "ks", Name: "Kisii Highlands"},
	}
	totals := []workbook.ColumnTotal{
		{Column: workbook.PlotColumn{Index: 1, Label: "Homa Bay North Plot"}, Amount: dec("3400")},
		{Column: workbook.PlotColumn{Index: 2, Label: "kisii highlands"}, Amount: dec("1500")},
		{Column: workbook.PlotColumn{Index: 3, Label: "Unknown Field"}, Amount: dec("300")},
	}

	entries := Preview(totals, plots)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{PlotLabel: "Homa Bay North Plot", Column: 1, MatchedPlotID: "hb", MatchedPlotName: "Homa Bay North", Amount: dec("3400"), IsMatch: true}, entries[0])
	assert.Equal(t, "ks", entries[1].MatchedPlotID)
	assert.False(t, entries[2].IsMatch)
	assert.Empty(t, entries[2].MatchedPlotID)
	assert.True(t, entries[2].Amount.Equal(dec("300")))

	sum := Summarize(entries)
	assert.Equal(t, 3, sum.Columns)
	assert.Equal(t, 2, sum.Matched)
	assert.Equal(t, 1, sum.Unmatched)
	assert.Equal(t, "4900.00", sum.MatchedTotal.StringFixed(2))
}

func TestCommit_FivePlotsThreeMatched(t *testing.T) {
	plots := knownPlots(5)
	ledger := &fakeLedger{}
	ref := &countingRefresher{}
	c := &Committer{Writer: ledger, Refresher: ref}

	res, err := c.Commit(context.Background(), CommitParams{
		Entries: []Entry{
			entry(plots[0].Name, plots[0].ID, "100"),
			entry("Mystery Field", "", "75"),
			entry(plots[2].Name, plots[2].ID, "250.50"),
			entry(plots[4].Name, plots[4].ID, "0"),
		},
		Plots:      plots,
		WeekEnding: monday(),
		FileName:   "week-02.xlsx",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.UpdatedCount)
	assert.Equal(t, 2, res.ZeroEntryCount)
	assert.Equal(t, []string{"Mystery Field"}, res.UnmatchedLabels)
	assert.Equal(t, 5, res.Writes())
	require.Len(t, ledger.writes, 5)
	assert.Equal(t, 1, ref.n)

	// Matched writes first, in column order.
	assert.Equal(t, plots[0].ID, ledger.writes[0].PlotID)
	assert.Equal(t, "Imported from week-02.xlsx", ledger.writes[0].Notes)
	assert.True(t, ledger.writes[1].Amount.Equal(dec("250.50")))
	assert.Equal(t, plots[4].ID, ledger.writes[2].PlotID)

	// Then zero entries in plot order.
	assert.Equal(t, plots[1].ID, ledger.writes[3].PlotID)
	assert.Equal(t, plots[3].ID, ledger.writes[4].PlotID)
	for _, w := range ledger.writes[3:] {
		assert.True(t, w.Amount.IsZero())
		assert.Equal(t, ZeroEntryNote, w.Notes)
	}
	for _, w := range ledger.writes {
		assert.Equal(t, monday(), w.WeekEnding)
	}
}

func TestCommit_EveryPlotGetsExactlyOneEntry(t *testing.T) {
	plots := knownPlots(4)
	ledger := &fakeLedger{}
	c := &Committer{Writer: ledger}

	_, err := c.Commit(context.Background(), CommitParams{
		Entries:    []Entry{entry("b", plots[1].ID, "5"), entry("d", plots[3].ID, "7")},
		Plots:      plots,
		WeekEnding: monday(),
	})
	require.NoError(t, err)

	perPlot := map[string]int{}
	for _, w := range ledger.writes {
		perPlot[w.PlotID]++
	}
	for _, p := range plots {
		assert.Equal(t, 1, perPlot[p.ID], p.Name)
	}
}

func TestCommit_UnmatchedPlusUpdatedEqualsColumns(t *testing.T) {
	plots := knownPlots(3)
	entries := []Entry{
		entry("a", plots[0].ID, "1"),
		entry("x", "", "2"),
		entry("y", "", "3"),
		entry("c", plots[2].ID, "4"),
	}
	res, err := (&Committer{Writer: &fakeLedger{}}).Commit(context.Background(), CommitParams{
		Entries: entries, Plots: plots, WeekEnding: monday(),
	})
	require.NoError(t, err)
	assert.Equal(t, len(entries), len(res.UnmatchedLabels)+res.UpdatedCount)
	assert.Equal(t, []string{"x", "y"}, res.UnmatchedLabels)
}

func TestCommit_FallbackNote(t *testing.T) {
	plots := knownPlots(1)
	ledger := &fakeLedger{}
	_, err := (&Committer{Writer: ledger}).Commit(context.Background(), CommitParams{
		Entries: []Entry{entry("a", plots[0].ID, "1")}, Plots: plots, WeekEnding: monday(),
	})
	require.NoError(t, err)
	require.Len(t, ledger.writes, 1)
	assert.Equal(t, "Imported from spreadsheet", ledger.writes[0].Notes)
}

func TestCommit_NoMatchesWritesOnlyZeroEntries(t *testing.T) {
	plots := knownPlots(2)
	ledger := &fakeLedger{}
	res, err := (&Committer{Writer: ledger}).Commit(context.Background(), CommitParams{
		Entries: []Entry{entry("Unknown Field", "", "10")}, Plots: plots, WeekEnding: monday(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.UpdatedCount)
	assert.Equal(t, 2, res.ZeroEntryCount)
	assert.Equal(t, []string{"Unknown Field"}, res.UnmatchedLabels)
}

func TestCommit_DuplicateColumnsForOnePlot(t *testing.T) {
	plots := knownPlots(2)
	ledger := &fakeLedger{}
	res, err := (&Committer{Writer: ledger}).Commit(context.Background(), CommitParams{
		Entries: []Entry{
			entry("Homa Bay North", plots[0].ID, "10"),
			entry("Homa Bay North Plot", plots[0].ID, "20"),
		},
		Plots:      plots,
		WeekEnding: monday(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.UpdatedCount)
	assert.Equal(t, 1, res.ZeroEntryCount)
	assert.Len(t, ledger.writes, 3)
}

func TestCommit_RequiresWeekEnding(t *testing.T) {
	ledger := &fakeLedger{}
	ref := &countingRefresher{}
	_, err := (&Committer{Writer: ledger, Refresher: ref}).Commit(context.Background(), CommitParams{
		Entries: []Entry{entry("a", "p", "1")}, Plots: knownPlots(1),
	})
	assert.ErrorIs(t, err, ErrNoWeekEnding)
	assert.Empty(t, ledger.writes)
	assert.Zero(t, ref.n)
}

func TestCommit_AcceptsNonMonday(t *testing.T) {
	plots := knownPlots(1)
	ledger := &fakeLedger{}
	wednesday := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	_, err := (&Committer{Writer: ledger}).Commit(context.Background(), CommitParams{
		Entries: []Entry{entry("a", plots[0].ID, "1")}, Plots: plots, WeekEnding: wednesday,
	})
	require.NoError(t, err)
	require.Len(t, ledger.writes, 1)
	assert.Equal(t, wednesday, ledger.writes[0].WeekEnding)
}

func TestCommit_NegativeTotalsWrittenAsIs(t *testing.T) {
	plots := knownPlots(2)
	ledger := &fakeLedger{}
	res, err := (&Committer{Writer: ledger}).Commit(context.Background(), CommitParams{
		Entries: []Entry{
			entry("a", plots[0].ID, "10"),
			entry("b", plots[1].ID, "-5"),
		},
		Plots:      plots,
		WeekEnding: monday(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.UpdatedCount)
	require.Len(t, ledger.writes, 2)
	assert.True(t, ledger.writes[1].Amount.Equal(dec("-5")))
}

func TestCommit_PartialFailureKeepsEarlierWrites(t *testing.T) {
	plots := knownPlots(5)
	ledger := &fakeLedger{failAt: 4}
	ref := &countingRefresher{}

	res, err := (&Committer{Writer: ledger, Refresher: ref}).Commit(context.Background(), CommitParams{
		Entries: []Entry{
			entry("a", plots[0].ID, "1"),
			entry("b", plots[1].ID, "2"),
			entry("c", plots[2].ID, "3"),
		},
		Plots:      plots,
		WeekEnding: monday(),
	})
	require.Error(t, err)

	var ierr *ImportError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, 3, ierr.Updated)
	assert.Equal(t, 0, ierr.ZeroEntries)
	assert.Equal(t, plots[3].ID, ierr.PlotID)
	assert.False(t, ierr.RolledBack)
	assert.Contains(t, err.Error(), "connection reset")

	assert.Len(t, ledger.writes, 3, "no rollback")
	assert.Equal(t, 3, res.UpdatedCount)
	assert.Equal(t, 4, ledger.calls, "loop stops at the failure")
	assert.Equal(t, 1, ref.n, "refresh still runs")
}

func TestCommit_FailureOnMatchedWrite(t *testing.T) {
	plots := knownPlots(3)
	ledger := &fakeLedger{failAt: 2}
	_, err := (&Committer{Writer: ledger}).Commit(context.Background(), CommitParams{
		Entries: []Entry{
			entry("a", plots[0].ID, "1"),
			entry("b", plots[1].ID, "2"),
		},
		Plots:      plots,
		WeekEnding: monday(),
	})
	var ierr *ImportError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, 1, ierr.Updated)
	assert.Equal(t, plots[1].ID, ierr.PlotID)
	assert.Len(t, ledger.writes, 1)
}

func TestCommit_AtomicRollsBack(t *testing.T) {
	plots := knownPlots(3)
	ledger := txLedger{&fakeLedger{failAt: 3}}
	ref := &countingRefresher{}

	res, err := (&Committer{Writer: ledger, Refresher: ref, Atomic: true}).Commit(context.Background(), CommitParams{
		Entries:    []Entry{entry("a", plots[0].ID, "1"), {PlotLabel: "Swamp"}},
		Plots:      plots,
		WeekEnding: monday(),
	})
	var ierr *ImportError
	require.ErrorAs(t, err, &ierr)
	assert.True(t, ierr.RolledBack)
	assert.Equal(t, 1, ierr.Updated)
	assert.Equal(t, 1, ierr.ZeroEntries)
	assert.Equal(t, 0, res.Writes())
	assert.Equal(t, 0, res.UpdatedCount)
	assert.Equal(t, 0, res.ZeroEntryCount)
	assert.Equal(t, []string{"Swamp"}, res.UnmatchedLabels)
	assert.Contains(t, err.Error(), "rolled back")
	assert.Empty(t, ledger.writes)
	assert.Equal(t, 1, ledger.txCalls)
	assert.Equal(t, 1, ref.n)
}

func TestCommit_AtomicSuccess(t *testing.T) {
	plots := knownPlots(3)
	ledger := txLedger{&fakeLedger{}}

	res, err := (&Committer{Writer: ledger, Atomic: true}).Commit(context.Background(), CommitParams{
		Entries:    []Entry{entry("a", plots[0].ID, "1")},
		Plots:      plots,
		WeekEnding: monday(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Writes())
	assert.Len(t, ledger.writes, 3)
}

func TestCommit_AtomicPerCommit(t *testing.T) {
	plots := knownPlots(2)
	ledger := txLedger{&fakeLedger{failAt: 2}}

	_, err := (&Committer{Writer: ledger}).Commit(context.Background(), CommitParams{
		Plots:      plots,
		WeekEnding: monday(),
		Atomic:     true,
	})
	var ierr *ImportError
	require.ErrorAs(t, err, &ierr)
	assert.True(t, ierr.RolledBack)
	assert.Equal(t, 1, ledger.txCalls)
	assert.Empty(t, ledger.writes)
}

func TestCommit_AtomicNeedsTransactions(t *testing.T) {
	ledger := &fakeLedger{}
	_, err := (&Committer{Writer: ledger, Atomic: true}).Commit(context.Background(), CommitParams{
		Plots: knownPlots(1), WeekEnding: monday(),
	})
	assert.ErrorIs(t, err, ErrNoTransactions)
	assert.Empty(t, ledger.writes)
}

func TestRefreshFunc(t *testing.T) {
	called := false
	var r Refresher = RefreshFunc(func(context.Context) { called = true })
	r.Refresh(context.Background())
	assert.True(t, called)
}

func TestImportNote(t *testing.T) {
	assert.Equal(t, "Imported from week.csv", ImportNote("week.csv"))
	assert.Equal(t, "Imported from spreadsheet", ImportNote(""))
}
