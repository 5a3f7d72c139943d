package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shamba-dev/shamba/internal/config"
	"github.com/shamba-dev/shamba/internal/store"
	"github.com/shamba-dev/shamba/internal/week"
)

// workspace is an opened farm directory: its config, database and logger.
type workspace struct {
	root  string
	cfg   *config.Config
	store *store.Store
	log   *zap.Logger
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func openWorkspace(ctx context.Context, opts *rootOptions) (*workspace, error) {
	root, err := filepath.Abs(opts.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	log, err := newLogger(opts.logLevel)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("not a shamba workspace (%s): %w", root, err)
	}
	if err := config.ApplyEnv(cfg, filepath.Join(root, ".env")); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Database, root, log)
	if err != nil {
		return nil, err
	}

	return &workspace{root: root, cfg: cfg, store: st, log: log}, nil
}

func (w *workspace) Close() {
	if err := w.store.Close(); err != nil {
		w.log.Warn("closing database", zap.Error(err))
	}
	_ = w.log.Sync()
}

// weekFlag resolves a --week value, defaulting to this week's Monday.
func weekFlag(value string) (time.Time, error) {
	if value == "" {
		return week.ThisMonday(time.Now()), nil
	}
	t, err := week.Parse(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --week: %w", err)
	}
	return t, nil
}

// openOutput creates path, or returns the command's stdout when path is "-".
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, f.Close, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
