package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/rentbook/internal/model"
	"github.com/cleared-dev/rentbook/internal/store"
)

func newReviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Work the review queue",
	}
	cmd.AddCommand(
		newReviewListCommand(),
		newReviewApproveCommand(),
		newReviewExcludeCommand(),
		newReviewReclassifyCommand(),
	)
	return cmd
}

func newReviewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued transactions and unresolved confirmations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)

			ctx := cmd.Context()
			var (
				raws   []model.RawTransaction
				events []model.ConfirmationEvent
			)
			err = p.store.WithTx(ctx, func(tx *store.Tx) error {
				var err error
				if raws, err = tx.QueuedRaw(ctx); err != nil {
					return err
				}
				events, err = tx.Events(ctx, model.MatchReview, model.MatchUnmatched)
				return err
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Transactions (%d)\n", len(raws))
			fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tDESCRIPTION\tSUGGESTION\tCONFIDENCE")
			for _, r := range raws {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.PostedDate.Format(model.DateFormat),
					r.Amount.StringFixed(2), r.Description, r.SuggestedCategory, r.Confidence.StringFixed(2))
			}
			fmt.Fprintf(w, "\nConfirmations (%d)\n", len(events))
			fmt.Fprintln(w, "ID\tMESSAGE\tAMOUNT\tACTOR\tSTATUS\tSCORE\tCANDIDATES")
			for _, e := range events {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.3f\t%v\n", e.ID, e.MessageID,
					e.Amount.StringFixed(2), e.Actor, e.Status, e.Score, e.Candidates)
			}
			return w.Flush()
		},
	}
}

func newReviewApproveCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "approve <raw-id>",
		Short: "Commit a queued transaction to its suggested or a given category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)

			ctx := cmd.Context()
			res, created, err := p.pipeline(ctx, false).Approve(ctx, id, category)
			if err != nil {
				return err
			}
			printf(cmd, "Transaction %d: %s entry %d (%s %s), %d obligations created\n",
				id, res.Outcome, res.Entry.ID, res.Entry.Category, res.Entry.Amount.StringFixed(2), created)
			p.commitAudit(ctx, fmt.Sprintf("review: approve transaction %d", id))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category to commit to (default: the stored suggestion)")
	return cmd
}

func newReviewExcludeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exclude <raw-id>",
		Short: "Drop a queued transaction from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)

			ctx := cmd.Context()
			if err := p.pipeline(ctx, false).Exclude(ctx, id); err != nil {
				return err
			}
			printf(cmd, "Transaction %d excluded\n", id)
			p.commitAudit(ctx, fmt.Sprintf("review: exclude transaction %d", id))
			return nil
		},
	}
}

func newReviewReclassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reclassify",
		Short: "Re-run the current rules over the review queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)

			ctx := cmd.Context()
			sum, err := p.pipeline(ctx, false).Reprocess(ctx)
			if err != nil {
				return err
			}
			printImportSummary(cmd, sum)
			p.commitAudit(ctx, fmt.Sprintf("review: reclassify %d queued transactions", sum.Total))
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
