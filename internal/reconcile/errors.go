package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrNoWeekEnding is returned when a commit has no week-ending date.
	ErrNoWeekEnding = errors.New("week ending date is required")
	// ErrNoTransactions is returned for atomic commits on a writer without transactions.
	ErrNoTransactions = errors.New("ledger writer does not support transactions")
)

// ImportError reports a ledger write that failed part way through a commit.
// Entries written before the failure stay written unless RolledBack is set.
type ImportError struct {
	Updated     int
	ZeroEntries int
	PlotID      string
	RolledBack  bool
	Err         error
}

func (e *ImportError) Error() string {
	msg := fmt.Sprintf("import failed after %d matched and %d zero entries", e.Updated, e.ZeroEntries)
	if e.PlotID != "" {
		msg += fmt.Sprintf(" (plot %s)", e.PlotID)
	}
	msg += fmt.Sprintf(": %v", e.Err)
	if e.RolledBack {
		msg += " (rolled back)"
	}
	return msg
}

func (e *ImportError) Unwrap() error { return e.Err }
