package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/rentbook/internal/importer"
	"github.com/cleared-dev/rentbook/internal/logger"
	"github.com/cleared-dev/rentbook/internal/model"
	"github.com/cleared-dev/rentbook/internal/pipeline"
)

func newImportCommand() *cobra.Command {
	var (
		format  string
		dryRun  bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import bank CSVs (default: every file in import/)",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)
			return runImport(cmd, p, args, format, dryRun, workers)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "parser format (chase, generic); detected from the header when empty")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify and report without writing")
	cmd.Flags().IntVar(&workers, "workers", 1, "concurrent ingest workers")

	return cmd
}

func runImport(cmd *cobra.Command, p *project, args []string, format string, dryRun bool, workers int) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	registry := importer.DefaultRegistry()

	scanned := len(args) == 0
	var paths []string
	if scanned {
		files, err := importer.Scan(p.root)
		if err != nil {
			return err
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	} else {
		paths = args
	}
	if len(paths) == 0 {
		printf(cmd, "No files to import\n")
		return nil
	}

	batches := make([][]model.RawTransaction, len(paths))
	for i, path := range paths {
		parsed, err := registry.ParseFile(path, format)
		if err != nil {
			return err
		}
		log.Info().Str("file", filepath.Base(path)).Int("transactions", len(parsed)).Msg("parsed bank file")
		batches[i] = parsed
	}

	pl := p.pipeline(ctx, dryRun)
	sum := pipeline.Summary{DryRun: dryRun}
	var clean []string
	for i, batch := range batches {
		fileSum := pl.IngestConcurrent(ctx, batch, workers)
		sum.RunID = fileSum.RunID
		sum.Merge(fileSum)
		if fileSum.Failed == 0 {
			clean = append(clean, paths[i])
		} else {
			log.Warn().Str("file", filepath.Base(paths[i])).Int("failed", fileSum.Failed).Msg("leaving file in place for retry")
		}
	}
	printImportSummary(cmd, sum)

	if dryRun {
		return nil
	}
	if scanned {
		for _, path := range clean {
			if err := importer.MarkProcessed(p.root, filepath.Base(path)); err != nil {
				return err
			}
		}
	}
	p.commitAudit(ctx, fmt.Sprintf("import: %d transactions, %d committed", sum.Total, sum.Committed))

	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d transactions failed", sum.Failed, sum.Total)
	}
	return nil
}

func printImportSummary(cmd *cobra.Command, sum pipeline.Summary) {
	prefix := ""
	if sum.DryRun {
		prefix = "[dry run] "
	}
	printf(cmd, "%sImported %d transactions: %d committed, %d duplicate, %d queued for review, %d excluded, %d obligations created\n",
		prefix, sum.Total, sum.Committed, sum.Duplicates, sum.Queued, sum.Excluded, sum.Obligations)
	for _, f := range sum.Failures {
		printf(cmd, "  failed: %s: %v\n", f.Description, f.Err)
	}
}
