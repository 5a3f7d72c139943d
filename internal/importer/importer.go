package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shamba-dev/shamba/internal/model"
	"github.com/shamba-dev/shamba/internal/reconcile"
	"github.com/shamba-dev/shamba/internal/workbook"
)

// ErrImportInFlight is returned when a commit starts while another is running.
var ErrImportInFlight = errors.New("another import is in progress")

// PlotLister reads the live plot directory.
type PlotLister interface {
	ListPlots(ctx context.Context) ([]model.Plot, error)
}

// Preview is a parsed and matched upload awaiting confirmation.
type Preview struct {
	FileName string
	Plots    []model.Plot
	Entries  []reconcile.Entry
	Summary  reconcile.Summary
}

// Service runs the parse, preview and commit stages of an expense import.
type Service struct {
	plots     PlotLister
	committer *reconcile.Committer
	log       *zap.Logger
	mu        sync.Mutex
}

// NewService creates an import Service.
func NewService(plots PlotLister, committer *reconcile.Committer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{plots: plots, committer: committer, log: logger}
}

// Preview parses the upload and matches its columns against the current plots.
// Nothing is written.
func (s *Service) Preview(ctx context.Context, fileName string, data []byte) (*Preview, error) {
	totals, err := workbook.Parse(fileName, data)
	if err != nil {
		return nil, err
	}

	plots, err := s.plots.ListPlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading plots: %w", err)
	}

	entries := reconcile.Preview(totals, plots)
	pv := &Preview{
		FileName: fileName,
		Plots:    plots,
		Entries:  entries,
		Summary:  reconcile.Summarize(entries),
	}
	s.log.Debug("import previewed",
		zap.String("file", fileName),
		zap.Int("columns", pv.Summary.Columns),
		zap.Int("matched", pv.Summary.Matched))
	return pv, nil
}

// CommitOptions are the choices made when confirming a preview.
type CommitOptions struct {
	WeekEnding time.Time
	Atomic     bool
}

// Commit writes a confirmed preview. Only one commit runs at a time.
func (s *Service) Commit(ctx context.Context, pv *Preview, opts CommitOptions) (reconcile.Result, error) {
	if !s.mu.TryLock() {
		return reconcile.Result{}, ErrImportInFlight
	}
	defer s.mu.Unlock()

	return s.committer.Commit(ctx, reconcile.CommitParams{
		Entries:    pv.Entries,
		Plots:      pv.Plots,
		WeekEnding: opts.WeekEnding,
		FileName:   pv.FileName,
		Atomic:     opts.Atomic,
	})
}

// Import previews and commits in one step.
func (s *Service) Import(ctx context.Context, fileName string, data []byte, opts CommitOptions) (*Preview, reconcile.Result, error) {
	pv, err := s.Preview(ctx, fileName, data)
	if err != nil {
		return nil, reconcile.Result{}, err
	}
	res, err := s.Commit(ctx, pv, opts)
	return pv, res, err
}
