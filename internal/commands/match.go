package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/rentbook/internal/inbox"
	"github.com/cleared-dev/rentbook/internal/logger"
	"github.com/cleared-dev/rentbook/internal/reconcile"
)

func newMatchCommand() *cobra.Command {
	var (
		useMongo bool
		since    string
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match payment confirmations against open obligations",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)
			return runMatch(cmd, p, useMongo, since)
		},
	}

	cmd.Flags().BoolVar(&useMongo, "mongo", false, "read confirmations from the configured MongoDB collection instead of inbox/")
	cmd.Flags().StringVar(&since, "since", "", "with --mongo, only notifications received on or after this date (YYYY-MM-DD)")

	return cmd
}

func runMatch(cmd *cobra.Command, p *project, useMongo bool, since string) error {
	ctx := cmd.Context()

	var (
		source reconcile.EventSource
		csvSrc *inbox.CSVSource
	)
	if useMongo {
		mcfg := p.cfg.Inbox.Mongo
		if mcfg.URI == "" {
			return fmt.Errorf("inbox.mongo.uri is not configured")
		}
		var from time.Time
		if since != "" {
			t, err := time.Parse("2006-01-02", since)
			if err != nil {
				return fmt.Errorf("parsing --since: %w", err)
			}
			from = t
		}
		client, err := inbox.ConnectToMongoDB(ctx, mcfg.URI)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(ctx) }()
		source = inbox.NewMongoSource(inbox.NewMongoProvider(client, mcfg.Database), mcfg.Collection, from)
	} else {
		csvSrc = inbox.NewCSVSource(p.root)
		source = csvSrc
	}

	sum, err := reconcile.NewRunner(source, p.matcher(), p.audit).Run(ctx)
	if err != nil {
		return err
	}

	printf(cmd, "Processed %d confirmations: %d matched, %d already matched, %d for review, %d unmatched",
		sum.Total, sum.Matched, sum.AlreadyMatched, sum.Review, sum.Unmatched)
	if sum.Deferred > 0 {
		printf(cmd, " (%d adjustments deferred)", sum.Deferred)
	}
	printf(cmd, "\n")
	for _, f := range sum.Failures {
		printf(cmd, "  failed: %s: %v\n", f.MessageID, f.Err)
	}

	switch {
	case csvSrc == nil:
	case sum.Failed > 0:
		logger.FromContext(ctx).Warn().Int("failed", sum.Failed).Msg("leaving inbox files in place for retry")
	default:
		if err := csvSrc.Archive(); err != nil {
			return err
		}
	}
	p.commitAudit(ctx, fmt.Sprintf("match: %d matched, %d for review", sum.Matched, sum.Review))

	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d confirmations failed", sum.Failed, sum.Total)
	}
	return nil
}

func newReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Retry adjustments deferred for missing ledger entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)

			sum, err := p.matcher().ReconcileDeferred(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd, "Adjusted %d, still deferred %d, failed %d\n", sum.Adjusted, sum.Deferred, sum.Failed)
			if sum.Failed > 0 {
				return fmt.Errorf("%d adjustments failed", sum.Failed)
			}
			return nil
		},
	}
}
