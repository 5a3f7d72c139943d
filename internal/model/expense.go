package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WeeklyExpense is one ledger row in weekly_expenses.
type WeeklyExpense struct {
	ID         string
	PlotID     string
	WeekEnding time.Time       // date only, expected to be a Monday
	Amount     decimal.Decimal // >= 0
	Notes      string
	CreatedAt  time.Time
}

// NewExpense holds the fields a caller supplies when recording an expense.
type NewExpense struct {
	PlotID     string
	WeekEnding time.Time
	Amount     decimal.Decimal
	Notes      string
}

// IsZero reports whether the entry is an explicit zero-expense row.
func (e WeeklyExpense) IsZero() bool {
	return e.Amount.IsZero()
}
