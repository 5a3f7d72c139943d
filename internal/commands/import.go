package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shamba-dev/shamba/internal/gitops"
	"github.com/shamba-dev/shamba/internal/importer"
	"github.com/shamba-dev/shamba/internal/importlog"
	"github.com/shamba-dev/shamba/internal/ledger"
	"github.com/shamba-dev/shamba/internal/reconcile"
	"github.com/shamba-dev/shamba/internal/week"
	"github.com/shamba-dev/shamba/internal/workbook"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import weekly expense workbooks",
	}
	cmd.AddCommand(
		newImportPreviewCommand(opts),
		newImportCommitCommand(opts),
		newImportScanCommand(opts),
	)
	return cmd
}

// importService wires the store into a committer. The cache is refreshed after every commit.
func (w *workspace) importService() (*importer.Service, *ledger.Cache) {
	cache := ledger.NewCache(w.store)
	committer := &reconcile.Committer{
		Writer:    w.store,
		Refresher: cache,
		Logger:    w.log,
		Atomic:    w.cfg.Import.Atomic,
	}
	return importer.NewService(w.store, committer, w.log), cache
}

func newImportPreviewCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <file>",
		Short: "Show how a workbook's columns match plots, without writing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			ctx := commandContext(cmd)
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.Close()

			svc, _ := ws.importService()
			pv, err := svc.Preview(ctx, filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			return printPreview(cmd.OutOrStdout(), pv)
		},
	}
}

func newImportCommitCommand(opts *rootOptions) *cobra.Command {
	var weekValue string
	var atomic bool

	cmd := &cobra.Command{
		Use:   "commit <file>",
		Short: "Write a workbook's plot totals to the expense ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weekEnding, err := weekFlag(weekValue)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			ctx := commandContext(cmd)
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.Close()

			svc, cache := ws.importService()
			name := filepath.Base(args[0])
			res, err := importOne(ctx, cmd.OutOrStdout(), svc, name, data, importer.CommitOptions{WeekEnding: weekEnding, Atomic: atomic})
			ws.record(ctx, name, weekEnding, res, err)
			if err != nil {
				return err
			}
			return printWeek(ctx, cmd.OutOrStdout(), cache, weekEnding)
		},
	}

	cmd.Flags().StringVar(&weekValue, "week", "", "week ending date YYYY-MM-DD (default: this week's Monday)")
	cmd.Flags().BoolVar(&atomic, "atomic", false, "roll back every write if one fails")
	return cmd
}

func newImportScanCommand(opts *rootOptions) *cobra.Command {
	var weekValue string
	var atomic bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Commit every workbook waiting in import/ and move it to import/processed/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			weekEnding, err := weekFlag(weekValue)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.Close()

			files, err := importer.Scan(ws.root)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintf(out, "No workbooks in %s/\n", importer.Dir)
				return nil
			}

			svc, cache := ws.importService()
			var skipped int
			for _, f := range files {
				data, err := os.ReadFile(f.Path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", f.Name, err)
				}

				fmt.Fprintf(out, "== %s\n", f.Name)
				res, err := importOne(ctx, out, svc, f.Name, data, importer.CommitOptions{WeekEnding: weekEnding, Atomic: atomic})

				var perr *workbook.ParseError
				if errors.As(err, &perr) {
					ws.log.Warn("skipping unreadable workbook", zap.String("file", f.Name), zap.Error(err))
					fmt.Fprintf(out, "skipped: %v\n", err)
					ws.record(ctx, f.Name, weekEnding, res, err)
					skipped++
					continue
				}
				if err != nil {
					ws.record(ctx, f.Name, weekEnding, res, err)
					return err
				}

				if err := importer.MarkProcessed(ws.root, f.Name); err != nil {
					return err
				}
				ws.record(ctx, f.Name, weekEnding, res, nil)
			}

			fmt.Fprintf(out, "Imported %d of %d workbooks\n", len(files)-skipped, len(files))
			return printWeek(ctx, out, cache, weekEnding)
		},
	}

	cmd.Flags().StringVar(&weekValue, "week", "", "week ending date YYYY-MM-DD (default: this week's Monday)")
	cmd.Flags().BoolVar(&atomic, "atomic", false, "roll back every write of a workbook if one fails")
	return cmd
}

func importOne(ctx context.Context, out io.Writer, svc *importer.Service, name string, data []byte, opts importer.CommitOptions) (reconcile.Result, error) {
	pv, res, err := svc.Import(ctx, name, data, opts)
	if pv == nil {
		return res, err
	}
	if perr := printPreview(out, pv); perr != nil {
		return res, perr
	}
	printResult(out, res)
	return res, err
}

// record appends the run to the audit log, committing the workspace first when configured.
// Failures here are logged, not returned: the ledger writes already happened.
func (w *workspace) record(ctx context.Context, name string, weekEnding time.Time, res reconcile.Result, runErr error) {
	entry := importlog.FromResult(name, weekEnding, res, runErr)

	if runErr == nil && w.cfg.Git.AutoCommit && gitops.IsRepo(w.root) {
		author := gitops.Author{Name: w.cfg.Git.AuthorName, Email: w.cfg.Git.AuthorEmail}
		msg := fmt.Sprintf("import: %s for week ending %s", name, week.Format(weekEnding))
		hash, err := gitops.CommitAll(ctx, w.root, msg, author)
		switch {
		case errors.Is(err, gitops.ErrNothingToCommit):
		case err != nil:
			w.log.Warn("committing workspace", zap.Error(err))
		default:
			entry.CommitHash = hash
		}
	}

	if err := importlog.Append(w.root, []importlog.Entry{entry}); err != nil {
		w.log.Warn("writing import log", zap.Error(err))
	}
}

func printPreview(out io.Writer, pv *importer.Preview) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tMATCHED PLOT\tAMOUNT")
	for _, e := range pv.Entries {
		plot := "-"
		if e.IsMatch {
			plot = e.MatchedPlotName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.PlotLabel, plot, e.Amount.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := pv.Summary
	fmt.Fprintf(out, "%d columns: %d matched (total %s), %d unmatched\n",
		s.Columns, s.Matched, s.MatchedTotal.StringFixed(2), s.Unmatched)
	return nil
}

func printResult(out io.Writer, res reconcile.Result) {
	fmt.Fprintf(out, "Updated %d plots, %d zero entries\n", res.UpdatedCount, res.ZeroEntryCount)
	if len(res.UnmatchedLabels) > 0 {
		fmt.Fprintf(out, "Unmatched: %s\n", strings.Join(res.UnmatchedLabels, ", "))
	}
}

func printWeek(ctx context.Context, out io.Writer, cache *ledger.Cache, weekEnding time.Time) error {
	s, err := cache.Week(ctx, weekEnding)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Week ending %s total: %s\n", week.Format(weekEnding), s.Total.StringFixed(2))
	return nil
}
