package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/rentbook/internal/categories"
	"github.com/cleared-dev/rentbook/internal/config"
	"github.com/cleared-dev/rentbook/internal/gitops"
	"github.com/cleared-dev/rentbook/internal/importer"
	"github.com/cleared-dev/rentbook/internal/inbox"
	"github.com/cleared-dev/rentbook/internal/rules"
	"github.com/cleared-dev/rentbook/internal/store"
)

func newInitCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new rentbook project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "household or property name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runInit(cmd *cobra.Command, dir, name string) error {
	ctx := cmd.Context()

	dirs := []string{
		"categories",
		"rules",
		"logs",
		"exports",
		importer.ImportDir,
		filepath.Join(importer.ImportDir, "processed"),
		inbox.Dir,
		filepath.Join(inbox.Dir, "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(name)
	if err := config.Save(filepath.Join(dir, ConfigFile), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := categories.NewService(categories.DefaultChart()).Save(dir); err != nil {
		return fmt.Errorf("writing category chart: %w", err)
	}
	if err := rules.NewSet(nil).Save(dir); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}

	gitignore := "*.db\n*.db-wal\n*.db-shm\nexports/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	for _, d := range []string{importer.ImportDir, inbox.Dir} {
		if err := os.WriteFile(filepath.Join(dir, d, ".gitkeep"), []byte{}, 0o644); err != nil {
			return fmt.Errorf("writing .gitkeep: %w", err)
		}
	}

	s, err := store.Open(filepath.Join(dir, cfg.Database.Path))
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	if err := s.Close(); err != nil {
		return err
	}

	if err := gitops.Init(ctx, dir); err != nil {
		return err
	}
	hash, err := gitops.NewRecorder(dir, cfg.Git).CommitAll(ctx, "init: Initialize "+name)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	printf(cmd, "Initialized rentbook project at %s (%s)\n", dir, hash)
	return nil
}
