// Package ledger aggregates and exports the weekly expense ledger.
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shamba-dev/shamba/internal/model"
	"github.com/shamba-dev/shamba/internal/plots"
	"github.com/shamba-dev/shamba/internal/week"
)

var hundred = decimal.NewFromInt(100)

// PlotTotal is one plot's share of a ledger selection.
type PlotTotal struct {
	PlotID   string
	PlotName string
	Total    decimal.Decimal
	Share    decimal.Decimal // percent of the grand total, 2 places
	Entries  int
}

// Summary totals a set of ledger entries per plot.
type Summary struct {
	Plots []PlotTotal
	Total decimal.Decimal
}

// Summarize groups entries by plot. Plots in idx with no entries are listed
// with a zero total; the result is ordered by total, largest first, then name.
func Summarize(entries []model.WeeklyExpense, idx *plots.Index) Summary {
	byPlot := make(map[string]*PlotTotal)
	for _, p := range idx.All() {
		byPlot[p.ID] = &PlotTotal{PlotID: p.ID, PlotName: p.Name}
	}

	var s Summary
	for _, e := range entries {
		pt, ok := byPlot[e.PlotID]
		if !ok {
			pt = &PlotTotal{PlotID: e.PlotID, PlotName: idx.Name(e.PlotID)}
			byPlot[e.PlotID] = pt
		}
		pt.Total = pt.Total.Add(e.Amount)
		pt.Entries++
		s.Total = s.Total.Add(e.Amount)
	}

	for _, pt := range byPlot {
		if !s.Total.IsZero() {
			pt.Share = pt.Total.Mul(hundred).Div(s.Total).Round(2)
		}
		s.Plots = append(s.Plots, *pt)
	}
	sort.Slice(s.Plots, func(i, j int) bool {
		a, b := s.Plots[i], s.Plots[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		if a.PlotName != b.PlotName {
			return a.PlotName < b.PlotName
		}
		return a.PlotID < b.PlotID
	})
	return s
}

// Source loads the data a Cache summarises.
type Source interface {
	ListPlots(ctx context.Context) ([]model.Plot, error)
	WeekExpenses(ctx context.Context, weekEnding time.Time) ([]model.WeeklyExpense, error)
}

// Cache memoises weekly summaries until Refresh is called.
type Cache struct {
	src    Source
	mu     sync.Mutex
	byWeek map[string]Summary
}

// NewCache creates an empty Cache over src.
func NewCache(src Source) *Cache {
	return &Cache{src: src, byWeek: make(map[string]Summary)}
}

// Week returns the summary for weekEnding, loading it on first use.
func (c *Cache) Week(ctx context.Context, weekEnding time.Time) (Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := week.Format(weekEnding)
	if s, ok := c.byWeek[key]; ok {
		return s, nil
	}
	plotList, err := c.src.ListPlots(ctx)
	if err != nil {
		return Summary{}, err
	}
	entries, err := c.src.WeekExpenses(ctx, weekEnding)
	if err != nil {
		return Summary{}, err
	}
	s := Summarize(entries, plots.NewIndex(plotList))
	c.byWeek[key] = s
	return s, nil
}

// Refresh drops every cached summary.
func (c *Cache) Refresh(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byWeek = make(map[string]Summary)
}
