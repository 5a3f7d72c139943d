// Package store persists the plot directory and the weekly expense ledger in
// a SQL database: an embedded SQLite file or Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/shamba-dev/shamba/internal/config"
	"github.com/shamba-dev/shamba/internal/model"
	"github.com/shamba-dev/shamba/internal/week"
)

// ErrPlotNotFound is returned when a plot ID does not exist.
var ErrPlotNotFound = errors.New("plot not found")

// Store provides plot and ledger queries.
type Store struct {
	db      *sql.DB
	dialect dialect
	log     *zap.Logger
	now     func() time.Time
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to the configured database and applies the schema.
// Relative SQLite paths are resolved against baseDir.
func Open(ctx context.Context, cfg config.DatabaseConfig, baseDir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if !d.positional {
		if dsn == "" {
			return nil, fmt.Errorf("sqlite database path is empty")
		}
		if !filepath.IsAbs(dsn) && !strings.HasPrefix(dsn, "file:") {
			dsn = filepath.Join(baseDir, dsn)
		}
		if err := os.MkdirAll(filepath.Dir(strings.TrimPrefix(dsn, "file:")), 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		}
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", d.driver, err)
	}
	if !d.positional {
		// One writer at a time; also keeps the PRAGMA below on the only connection.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, dialect: d, log: logger, now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("database ready", zap.String("driver", d.driver))
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the plots and weekly_expenses tables if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if !s.dialect.positional {
		if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("enabling foreign keys: %w", err)
		}
	}
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

type txKey struct{}

// InTx runs fn in a transaction. Store calls made with the context passed to
// fn join the transaction; it commits when fn returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// AddPlot inserts a plot, assigning an ID and creation time when unset.
func (s *Store) AddPlot(ctx context.Context, p model.Plot) (model.Plot, error) {
	if strings.TrimSpace(p.Name) == "" {
		return model.Plot{}, fmt.Errorf("plot name is required")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}

	_, err := s.q(ctx).ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO plots (id, name, acreage, crop_variety, created_at) VALUES (?, ?, ?, ?, ?)`),
		p.ID, p.Name, p.Acreage.StringFixed(2), p.CropVariety, s.dialect.timestamp(p.CreatedAt))
	if err != nil {
		return model.Plot{}, fmt.Errorf("inserting plot %q: %w", p.Name, err)
	}
	return p, nil
}

const plotColumns = `id, name, acreage, crop_variety, created_at`

// ListPlots returns every plot ordered by name.
func (s *Store) ListPlots(ctx context.Context) ([]model.Plot, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT `+plotColumns+` FROM plots ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying plots: %w", err)
	}
	defer rows.Close()

	var plots []model.Plot
	for rows.Next() {
		p, err := scanPlot(rows)
		if err != nil {
			return nil, err
		}
		plots = append(plots, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading plots: %w", err)
	}
	return plots, nil
}

// GetPlot returns one plot or ErrPlotNotFound.
func (s *Store) GetPlot(ctx context.Context, id string) (model.Plot, error) {
	row := s.q(ctx).QueryRowContext(ctx, s.dialect.rebind(`SELECT `+plotColumns+` FROM plots WHERE id = ?`), id)
	p, err := scanPlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Plot{}, fmt.Errorf("%w: %s", ErrPlotNotFound, id)
	}
	return p, err
}

// DeletePlot removes a plot and its ledger entries.
func (s *Store) DeletePlot(ctx context.Context, id string) error {
	res, err := s.q(ctx).ExecContext(ctx, s.dialect.rebind(`DELETE FROM plots WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting plot %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrPlotNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlot(sc scanner) (model.Plot, error) {
	var p model.Plot
	var created timeValue
	if err := sc.Scan(&p.ID, &p.Name, &p.Acreage, &p.CropVariety, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Plot{}, err
		}
		return model.Plot{}, fmt.Errorf("scanning plot: %w", err)
	}
	p.CreatedAt = created.t
	return p, nil
}

// CreateExpense inserts one ledger entry. Entries are never merged: importing
// the same week twice records it twice.
func (s *Store) CreateExpense(ctx context.Context, e model.NewExpense) (model.WeeklyExpense, error) {
	if e.PlotID == "" {
		return model.WeeklyExpense{}, fmt.Errorf("expense plot is required")
	}
	if e.WeekEnding.IsZero() {
		return model.WeeklyExpense{}, fmt.Errorf("expense week ending is required")
	}

	out := model.WeeklyExpense{
		ID:         uuid.New().String(),
		PlotID:     e.PlotID,
		WeekEnding: week.Truncate(e.WeekEnding),
		Amount:     e.Amount.Round(2),
		Notes:      e.Notes,
		CreatedAt:  s.now().UTC(),
	}
	_, err := s.q(ctx).ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO weekly_expenses (id, plot_id, week_ending, amount, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		out.ID, out.PlotID, week.Format(out.WeekEnding), out.Amount.StringFixed(2), out.Notes, s.dialect.timestamp(out.CreatedAt))
	if err != nil {
		return model.WeeklyExpense{}, fmt.Errorf("inserting expense for plot %s: %w", e.PlotID, err)
	}
	return out, nil
}

// ExpenseFilter narrows ListExpenses. Zero fields match everything.
type ExpenseFilter struct {
	PlotID     string
	WeekEnding time.Time
}

// ListExpenses returns ledger entries, newest week first.
func (s *Store) ListExpenses(ctx context.Context, f ExpenseFilter) ([]model.WeeklyExpense, error) {
	query := `SELECT id, plot_id, week_ending, amount, notes, created_at FROM weekly_expenses`
	var where []string
	var args []any
	if f.PlotID != "" {
		where = append(where, "plot_id = ?")
		args = append(args, f.PlotID)
	}
	if !f.WeekEnding.IsZero() {
		where = append(where, "week_ending = ?")
		args = append(args, week.Format(f.WeekEnding))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY week_ending DESC, created_at, id"

	rows, err := s.q(ctx).QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying expenses: %w", err)
	}
	defer rows.Close()

	var out []model.WeeklyExpense
	for rows.Next() {
		var e model.WeeklyExpense
		var weekEnding, created timeValue
		if err := rows.Scan(&e.ID, &e.PlotID, &weekEnding, &e.Amount, &e.Notes, &created); err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}
		e.WeekEnding = dateOnly(weekEnding.t)
		e.CreatedAt = created.t
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading expenses: %w", err)
	}
	return out, nil
}

// WeekExpenses returns the ledger entries for one week ending.
func (s *Store) WeekExpenses(ctx context.Context, weekEnding time.Time) ([]model.WeeklyExpense, error) {
	return s.ListExpenses(ctx, ExpenseFilter{WeekEnding: weekEnding})
}
