package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shamba-dev/shamba/internal/workbook"
)

func newTemplateCommand(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a blank weekly expense workbook for the current plots",
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
			tasks := ws.cfg.Import.TemplateTasks
			if len(tasks) == 0 {
				tasks = workbook.DefaultTasks()
			}

			path := out
			if path == "" {
				path = filepath.Join(ws.root, "exports", "expense-template.xlsx")
			}
			w, closeFn, err := openOutput(cmd, path)
			if err != nil {
				return err
			}
			if err := workbook.WriteTemplate(w, list, tasks); err != nil {
				_ = closeFn()
				return err
			}
			if err := closeFn(); err != nil {
				return err
			}
			if path != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d plots, %d tasks)\n", path, len(list), len(tasks))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default exports/expense-template.xlsx)")
	return cmd
}
