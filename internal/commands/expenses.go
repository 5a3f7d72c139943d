package commands

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shamba-dev/shamba/internal/ledger"
	"github.com/shamba-dev/shamba/internal/plots"
	"github.com/shamba-dev/shamba/internal/store"
	"github.com/shamba-dev/shamba/internal/week"
)

func newExpensesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Inspect the weekly expense ledger",
	}
	cmd.AddCommand(
		newExpensesListCommand(opts),
		newExpensesExportCommand(opts),
		newExpensesSummaryCommand(opts),
	)
	return cmd
}

func parseFilter(plotID, weekValue string) (store.ExpenseFilter, error) {
	f := store.ExpenseFilter{PlotID: plotID}
	if weekValue != "" {
		t, err := week.Parse(weekValue)
		if err != nil {
			return f, fmt.Errorf("invalid --week: %w", err)
		}
		f.WeekEnding = t
	}
	return f, nil
}

func newExpensesListCommand(opts *rootOptions) *cobra.Command {
	var plotID, weekValue string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries, newest week first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseFilter(plotID, weekValue)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.Close()

			rows, err := ledgerRows(cmd, ws, filter)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No expenses.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WEEK ENDING\tPLOT\tAMOUNT\tNOTES")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", week.Format(r.WeekEnding), r.PlotName, r.Amount.StringFixed(2), r.Notes)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&plotID, "plot", "", "only entries for this plot id")
	cmd.Flags().StringVar(&weekValue, "week", "", "only entries for this week ending (YYYY-MM-DD)")
	return cmd
}

func newExpensesExportCommand(opts *rootOptions) *cobra.Command {
	var out, plotID, weekValue string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write ledger entries as CSV (" + ledger.Header + ")",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseFilter(plotID, weekValue)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.Close()

			rows, err := ledgerRows(cmd, ws, filter)
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = filepath.Join(ws.root, "exports", "expenses-"+time.Now().Format("20060102")+".csv")
			}
			w, closeFn, err := openOutput(cmd, path)
			if err != nil {
				return err
			}
			if err := ledger.WriteRows(w, rows); err != nil {
				_ = closeFn()
				return err
			}
			if err := closeFn(); err != nil {
				return err
			}
			if path != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d entries to %s\n", len(rows), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default exports/expenses-<date>.csv)")
	cmd.Flags().StringVar(&plotID, "plot", "", "only entries for this plot id")
	cmd.Flags().StringVar(&weekValue, "week", "", "only entries for this week ending (YYYY-MM-DD)")
	return cmd
}

func newExpensesSummaryCommand(opts *rootOptions) *cobra.Command {
	var weekValue string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show per-plot totals and cost share for one week",
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

			s, err := ledger.NewCache(ws.store).Week(ctx, weekEnding)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PLOT\tENTRIES\tTOTAL\tSHARE")
			for _, pt := range s.Plots {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s%%\n", pt.PlotName, pt.Entries, pt.Total.StringFixed(2), pt.Share.StringFixed(2))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Week ending %s total: %s %s\n", week.Format(weekEnding), s.Total.StringFixed(2), ws.cfg.Farm.Currency)
			return nil
		},
	}

	cmd.Flags().StringVar(&weekValue, "week", "", "week ending date YYYY-MM-DD (default: this week's Monday)")
	return cmd
}

// ledgerRows loads entries matching filter with plot names resolved.
func ledgerRows(cmd *cobra.Command, ws *workspace, filter store.ExpenseFilter) ([]ledger.Row, error) {
	ctx := commandContext(cmd)
	list, err := ws.store.ListPlots(ctx)
	if err != nil {
		return nil, err
	}
	idx := plots.NewIndex(list)
	if filter.PlotID != "" && !idx.Exists(filter.PlotID) {
		return nil, fmt.Errorf("%w: %s", store.ErrPlotNotFound, filter.PlotID)
	}
	entries, err := ws.store.ListExpenses(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := make([]ledger.Row, len(entries))
	for i, e := range entries {
		rows[i] = ledger.Row{WeeklyExpense: e, PlotName: idx.Name(e.PlotID)}
	}
	return rows, nil
}
