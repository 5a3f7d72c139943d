package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/shamba-dev/shamba/internal/model"
	"github.com/shamba-dev/shamba/internal/plots"
	"github.com/shamba-dev/shamba/internal/store"
)

func newPlotsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plots",
		Short: "Manage the plot directory",
	}
	cmd.AddCommand(
		newPlotsAddCommand(opts),
		newPlotsListCommand(opts),
		newPlotsImportCommand(opts),
		newPlotsExportCommand(opts),
		newPlotsDeleteCommand(opts),
	)
	return cmd
}

func newPlotsAddCommand(opts *rootOptions) *cobra.Command {
	var name, acreage, crop string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a plot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acres := decimal.Zero
			if acreage != "" {
				var err error
				acres, err = decimal.NewFromString(acreage)
				if err != nil {
					return fmt.Errorf("invalid --acreage %q: %w", acreage, err)
				}
			}

			ctx := commandContext(cmd)
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.Close()

			p, err := ws.store.AddPlot(ctx, model.Plot{Name: name, Acreage: acres, CropVariety: crop})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added plot %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "plot name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&acreage, "acreage", "", "plot size in acres")
	cmd.Flags().StringVar(&crop, "crop", "", "crop variety")
	return cmd
}

func newPlotsListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List plots in name order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.Close()

			list, err := ws.store.ListPlots(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No plots.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tACREAGE\tCROP")
			for _, p := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Acreage.StringFixed(2), p.CropVariety)
			}
			return tw.Flush()
		},
	}
}

func newPlotsImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <plots.csv>",
		Short: "Add plots from a CSV file (" + plots.Header + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			list, err := plots.ReadPlots(f)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.Close()

			err = ws.store.InTx(ctx, func(ctx context.Context) error {
				for _, p := range list {
					if _, err := ws.store.AddPlot(ctx, p); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d plots\n", len(list))
			return nil
		},
	}
}

func newPlotsExportCommand(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the plot directory as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.Close()

			list, err := ws.store.ListPlots(ctx)
			if err != nil {
				return err
			}

			w, closeFn, err := openOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := plots.WritePlots(w, list); err != nil {
				_ = closeFn()
				return err
			}
			return closeFn()
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

func newPlotsDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <plot-id>",
		Short: "Delete a plot and its ledger entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			ws, err := openWorkspace(ctx, opts)
			if err != nil {
				return err
			}
			defer ws.Close()

			var p model.Plot
			var entries int
			err = ws.store.InTx(ctx, func(ctx context.Context) error {
				var err error
				if p, err = ws.store.GetPlot(ctx, args[0]); err != nil {
					return err
				}
				list, err := ws.store.ListExpenses(ctx, store.ExpenseFilter{PlotID: p.ID})
				if err != nil {
					return err
				}
				entries = len(list)
				return ws.store.DeletePlot(ctx, p.ID)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted plot %s (%s) and %d ledger entries\n", p.Name, p.ID, entries)
			return nil
		},
	}
}
