package ledger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamba-dev/shamba/internal/model"
	"github.com/shamba-dev/shamba/internal/plots"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func monday() time.Time {
	return time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
}

var farm = []model.Plot{
	{ID: "hb", Name: "Homa Bay North"},
	{ID: "ks", Name: "Kisii Highlands"},
	{ID: "ny", Name: "Nyeri East"},
}

func expense(plotID, amount string) model.WeeklyExpense {
	return model.WeeklyExpense{PlotID: plotID, WeekEnding: monday(), Amount: dec(amount)}
}

func TestCSVRoundTrip(t *testing.T) {
	created := time.Date(2025, 1, 7, 8, 30, 0, 0, time.UTC)
	rows := []Row{
		{
			WeeklyExpense: model.WeeklyExpense{
				ID: "e1", PlotID: "hb", WeekEnding: monday(), Amount: dec("3400.5"),
				Notes: "Imported from week, 2.xlsx", CreatedAt: created,
			},
			PlotName: "Homa Bay North",
		},
		{
			WeeklyExpense: model.WeeklyExpense{ID: "e2", PlotID: "ks", WeekEnding: monday(), Notes: "Zero expense entry (not in import file)"},
			PlotName:      "Kisii Highlands",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, rows))
	assert.Contains(t, buf.String(), "e1,hb,Homa Bay North,2025-01-06,3400.50,")

	got, err := ReadRows(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "Homa Bay North", got[0].PlotName)
	assert.True(t, got[0].Amount.Equal(dec("3400.50")))
	assert.Equal(t, "Imported from week, 2.xlsx", got[0].Notes)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.Equal(t, monday(), got[1].WeekEnding)
	assert.True(t, got[1].Amount.IsZero())
	assert.True(t, got[1].CreatedAt.IsZero())
}

func TestReadRows_BadFields(t *testing.T) {
	_, err := ReadRows(strings.NewReader(Header + "\ne1,hb,Homa,06/01/2025,1.00,,\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")

	_, err = ReadRows(strings.NewReader(Header + "\ne1,hb,Homa,2025-01-06,lots,,\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing amount")
}

func TestSummarize(t *testing.T) {
	entries := []model.WeeklyExpense{
		expense("hb", "300"),
		expense("ks", "100"),
		expense("hb", "100"),
		expense("ny", "0"),
	}

	s := Summarize(entries, plots.NewIndex(farm))
	assert.Equal(t, "500.00", s.Total.StringFixed(2))
	require.Len(t, s.Plots, 3)

	assert.Equal(t, "hb", s.Plots[0].PlotID)
	assert.Equal(t, "400.00", s.Plots[0].Total.StringFixed(2))
	assert.Equal(t, "80.00", s.Plots[0].Share.StringFixed(2))
	assert.Equal(t, 2, s.Plots[0].Entries)

	assert.Equal(t, "ks", s.Plots[1].PlotID)
	assert.Equal(t, "20.00", s.Plots[1].Share.StringFixed(2))

	assert.Equal(t, "ny", s.Plots[2].PlotID)
	assert.True(t, s.Plots[2].Share.IsZero())
}

func TestSummarize_UnknownPlotAndEmptyLedger(t *testing.T) {
	s := Summarize([]model.WeeklyExpense{expense("gone", "10")}, plots.NewIndex(farm))
	require.Len(t, s.Plots, 4)
	assert.Equal(t, "gone", s.Plots[0].PlotName)
	assert.Equal(t, "100.00", s.Plots[0].Share.StringFixed(2))

	empty := Summarize(nil, plots.NewIndex(farm))
	assert.True(t, empty.Total.IsZero())
	require.Len(t, empty.Plots, 3)
	assert.Equal(t, "Homa Bay North", empty.Plots[0].PlotName, "ties ordered by name")
}

func TestSummarize_SharesRounded(t *testing.T) {
	s := Summarize([]model.WeeklyExpense{expense("hb", "1"), expense("ks", "1"), expense("ny", "1")}, plots.NewIndex(farm))
	for _, pt := range s.Plots {
		assert.Equal(t, "33.33", pt.Share.StringFixed(2))
	}
}

type fakeSource struct {
	loads   int
	entries []model.WeeklyExpense
	err     error
}

func (f *fakeSource) ListPlots(context.Context) ([]model.Plot, error) {
	return farm, nil
}

func (f *fakeSource) WeekExpenses(context.Context, time.Time) ([]model.WeeklyExpense, error) {
	f.loads++
	return f.entries, f.err
}

func TestCache_RefreshReloads(t *testing.T) {
	src := &fakeSource{entries: []model.WeeklyExpense{expense("hb", "10")}}
	c := NewCache(src)
	ctx := context.Background()

	s, err := c.Week(ctx, monday())
	require.NoError(t, err)
	assert.Equal(t, "10.00", s.Total.StringFixed(2))

	src.entries = append(src.entries, expense("ks", "5"))
	s, err = c.Week(ctx, monday())
	require.NoError(t, err)
	assert.Equal(t, "10.00", s.Total.StringFixed(2), "served from cache")
	assert.Equal(t, 1, src.loads)

	c.Refresh(ctx)
	s, err = c.Week(ctx, monday())
	require.NoError(t, err)
	assert.Equal(t, "15.00", s.Total.StringFixed(2))
	assert.Equal(t, 2, src.loads)
}

func TestCache_ErrorsNotCached(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	c := NewCache(src)

	_, err := c.Week(context.Background(), monday())
	require.Error(t, err)

	src.err = nil
	_, err = c.Week(context.Background(), monday())
	require.NoError(t, err)
	assert.Equal(t, 2, src.loads)
}
