package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/rentbook/internal/model"
	"github.com/cleared-dev/rentbook/internal/store"
)

func newObligationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "obligations",
		Short: "Inspect and update payment obligations",
	}
	cmd.AddCommand(newObligationsListCommand(), newObligationsSentCommand())
	return cmd
}

func newObligationsListCommand() *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List obligations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var filter []model.ObligationStatus
			for _, s := range statuses {
				st := model.ObligationStatus(s)
				switch st {
				case model.ObligationPending, model.ObligationSent, model.ObligationPaid, model.ObligationForegone:
				default:
					return fmt.Errorf("unknown status %q", s)
				}
				filter = append(filter, st)
			}

			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)

			ctx := cmd.Context()
			var obs []model.PaymentObligation
			err = p.store.WithTx(ctx, func(tx *store.Tx) error {
				var err error
				obs, err = tx.Obligations(ctx, filter...)
				return err
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTRACKING ID\tPAYER\tOWED\tOF\tSTATUS\tPAID")
			for _, o := range obs {
				paid := ""
				if !o.PaidAt.IsZero() {
					paid = o.PaidAt.Format(model.DateFormat)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", o.ID, o.TrackingID, o.Payer,
					o.OwedAmount.StringFixed(2), o.TotalAmount.StringFixed(2), o.Status, paid)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (pending, sent, paid, foregone)")
	return cmd
}

func newObligationsSentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sent <obligation-id>",
		Short: "Record that a payment request was delivered",
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
			o, err := p.matcher().MarkSent(ctx, id)
			if err != nil {
				return err
			}
			p.audit.Add("obligations", "sent", o.TrackingID, "")
			printf(cmd, "Obligation %s marked sent\n", o.TrackingID)
			p.commitAudit(ctx, "obligations: sent "+o.TrackingID)
			return nil
		},
	}
}
