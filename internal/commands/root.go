package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/rentbook/internal/buildinfo"
	"github.com/cleared-dev/rentbook/internal/logger"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:     "rentbook",
		Short:   "Bank-feed bookkeeping and utility splits for a shared rental",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(logLevel)
			if err != nil {
				return err
			}
			cmd.SetContext(logger.WithContext(cmd.Context(), log))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("repo", ".", "project directory")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(),
		newMatchCommand(),
		newReconcileCommand(),
		newReviewCommand(),
		newOverrideCommand(),
		newObligationsCommand(),
		newRulesCommand(),
		newPartiesCommand(),
		newReportCommand(),
	)

	return rootCmd
}

func repoFlag(cmd *cobra.Command) string {
	dir, err := cmd.Flags().GetString("repo")
	if err != nil || dir == "" {
		return "."
	}
	return dir
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
