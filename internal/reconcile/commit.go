package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shamba-dev/shamba/internal/model"
	"github.com/shamba-dev/shamba/internal/week"
)

// LedgerWriter creates weekly expense entries.
type LedgerWriter interface {
	CreateExpense(ctx context.Context, e model.NewExpense) (model.WeeklyExpense, error)
}

// TxRunner runs fn in one transaction. Writes made with fn's context join it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Refresher is told when the ledger changed so cached views can reload.
type Refresher interface {
	Refresh(ctx context.Context)
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context)

// Refresh calls f.
func (f RefreshFunc) Refresh(ctx context.Context) { f(ctx) }

// Note texts written with each entry.
const (
	importNoteFormat = "Imported from %s"
	importNoteSource = "spreadsheet"
	ZeroEntryNote    = "Zero expense entry (not in import file)"
)

// ImportNote returns the note for an entry imported from fileName.
func ImportNote(fileName string) string {
	if fileName == "" {
		fileName = importNoteSource
	}
	return fmt.Sprintf(importNoteFormat, fileName)
}

// Committer turns previewed entries into ledger writes.
type Committer struct {
	Writer    LedgerWriter
	Refresher Refresher   // optional
	Logger    *zap.Logger // optional
	// Atomic wraps all writes in one transaction. Writer must implement TxRunner.
	Atomic bool
}

// CommitParams holds the input of one commit.
type CommitParams struct {
	Entries    []Entry
	Plots      []model.Plot // every known plot; absent ones get a zero entry
	WeekEnding time.Time
	FileName   string
	Atomic     bool // forces a transaction for this commit
}

// Commit writes one entry per matched column, then a zero entry for every
// plot no column matched. Writes are sequential; the first failure stops the
// run and is returned as *ImportError alongside the partial Result. In atomic
// mode a failed run reports zero writes in Result.
func (c *Committer) Commit(ctx context.Context, p CommitParams) (Result, error) {
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if p.WeekEnding.IsZero() {
		return Result{}, ErrNoWeekEnding
	}
	if !week.IsMonday(p.WeekEnding) {
		log.Warn("week ending is not a Monday", zap.String("week_ending", week.Format(p.WeekEnding)))
	}
	for _, e := range p.Entries {
		if e.IsMatch && e.Amount.IsNegative() {
			log.Warn("negative column total", zap.String("column", e.PlotLabel), zap.String("amount", e.Amount.StringFixed(2)))
		}
	}

	var runner TxRunner
	if c.Atomic || p.Atomic {
		r, ok := c.Writer.(TxRunner)
		if !ok {
			return Result{}, ErrNoTransactions
		}
		runner = r
	}

	var res Result
	var err error
	if runner != nil {
		err = runner.InTx(ctx, func(txCtx context.Context) error {
			res, err = c.write(txCtx, p)
			return err
		})
		var ierr *ImportError
		if errors.As(err, &ierr) {
			ierr.RolledBack = true
		} else if err != nil {
			err = &ImportError{Updated: res.UpdatedCount, ZeroEntries: res.ZeroEntryCount, RolledBack: true, Err: err}
		}
		if err != nil {
			// Nothing survived the rollback; attempted counts stay on the error.
			res = Result{UnmatchedLabels: res.UnmatchedLabels}
			if res.UnmatchedLabels == nil {
				res.UnmatchedLabels = []string{}
			}
		}
	} else {
		res, err = c.write(ctx, p)
	}

	if c.Refresher != nil {
		c.Refresher.Refresh(ctx)
	}

	fields := []zap.Field{
		zap.String("file", p.FileName),
		zap.String("week_ending", week.Format(p.WeekEnding)),
		zap.Int("updated", res.UpdatedCount),
		zap.Int("zero_entries", res.ZeroEntryCount),
		zap.Strings("unmatched", res.UnmatchedLabels),
	}
	if err != nil {
		log.Error("expense import failed", append(fields, zap.Error(err))...)
		return res, err
	}
	log.Info("expense import committed", fields...)
	return res, nil
}

func (c *Committer) write(ctx context.Context, p CommitParams) (Result, error) {
	res := Result{UnmatchedLabels: []string{}}
	for _, e := range p.Entries {
		if !e.IsMatch {
			res.UnmatchedLabels = append(res.UnmatchedLabels, e.PlotLabel)
		}
	}

	matched := make(map[string]bool)
	note := ImportNote(p.FileName)
	for _, e := range p.Entries {
		if !e.IsMatch {
			continue
		}
		_, err := c.Writer.CreateExpense(ctx, model.NewExpense{
			PlotID:     e.MatchedPlotID,
			WeekEnding: p.WeekEnding,
			Amount:     e.Amount,
			Notes:      note,
		})
		if err != nil {
			return res, &ImportError{Updated: res.UpdatedCount, PlotID: e.MatchedPlotID, Err: err}
		}
		matched[e.MatchedPlotID] = true
		res.UpdatedCount++
	}

	for _, plot := range p.Plots {
		if matched[plot.ID] {
			continue
		}
		_, err := c.Writer.CreateExpense(ctx, model.NewExpense{
			PlotID:     plot.ID,
			WeekEnding: p.WeekEnding,
			Notes:      ZeroEntryNote,
		})
		if err != nil {
			return res, &ImportError{Updated: res.UpdatedCount, ZeroEntries: res.ZeroEntryCount, PlotID: plot.ID, Err: err}
		}
		res.ZeroEntryCount++
	}
	return res, nil
}
