package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type dialect struct {
	driver     string
	positional bool // $1, $2 placeholders instead of ?
	schema     []string
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS plots (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			acreage TEXT NOT NULL DEFAULT '0',
			crop_variety TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS weekly_expenses (
			id TEXT PRIMARY KEY,
			plot_id TEXT NOT NULL REFERENCES plots(id) ON DELETE CASCADE,
			week_ending TEXT NOT NULL,
			amount TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS weekly_expenses_week_idx ON weekly_expenses (week_ending)`,
	},
}

var postgresDialect = dialect{
	driver:     "pgx",
	positional: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS plots (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			acreage NUMERIC(12,2) NOT NULL DEFAULT 0,
			crop_variety TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS weekly_expenses (
			id TEXT PRIMARY KEY,
			plot_id TEXT NOT NULL REFERENCES plots(id) ON DELETE CASCADE,
			week_ending DATE NOT NULL,
			amount NUMERIC(14,2) NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS weekly_expenses_week_idx ON weekly_expenses (week_ending)`,
	},
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return sqliteDialect, nil
	case "pgx", "postgres", "postgresql":
		return postgresDialect, nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timestamp returns the parameter value for a timestamp column.
func (d dialect) timestamp(t time.Time) any {
	if d.positional {
		return t
	}
	return t.UTC().Format(timestampLayout)
}
