package commands

import (
	"github.com/spf13/cobra"

	"github.com/shamba-dev/shamba/internal/buildinfo"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	repo     string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "shamba",
		Short:   "Weekly farm expense imports and plot reconciliation",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.repo, "repo", ".", "workspace directory")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newPlotsCommand(opts),
		newImportCommand(opts),
		newTemplateCommand(opts),
		newExpensesCommand(opts),
		newServeCommand(opts),
	)

	return rootCmd
}
