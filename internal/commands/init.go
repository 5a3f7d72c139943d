package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shamba-dev/shamba/internal/config"
	"github.com/shamba-dev/shamba/internal/gitops"
	"github.com/shamba-dev/shamba/internal/importer"
	"github.com/shamba-dev/shamba/internal/store"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var name string
	var noGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new farm workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.repo
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, opts, absDir, name, !noGit)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "farm name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().BoolVar(&noGit, "no-git", false, "skip git init and the initial commit")

	return cmd
}

func runInit(cmd *cobra.Command, opts *rootOptions, dir, name string, useGit bool) error {
	ctx := commandContext(cmd)

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	dirs := []string{
		importer.Dir,
		importer.ProcessedDir,
		"logs",
		"exports",
		"data",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(name)
	cfg.Git.AutoCommit = useGit
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	gitignore := "data/\nexports/\n.env\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, importer.Dir, ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	log, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	if err := config.ApplyEnv(cfg, filepath.Join(dir, ".env")); err != nil {
		return err
	}
	st, err := store.Open(ctx, cfg.Database, dir, log)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if !useGit {
		fmt.Fprintf(out, "Initialized farm workspace at %s\n", dir)
		return nil
	}

	if err := gitops.Init(ctx, dir); err != nil {
		return err
	}
	author := gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail}
	hash, err := gitops.CommitAll(ctx, dir, "init: Initialize "+name, author)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized farm workspace at %s (%s)\n", dir, hash)
	return nil
}
