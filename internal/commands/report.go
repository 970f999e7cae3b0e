package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/rentbook/internal/ledger"
	"github.com/cleared-dev/rentbook/internal/model"
	"github.com/cleared-dev/rentbook/internal/store"
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Ledger reports",
	}
	cmd.AddCommand(newReportNetCommand(), newReportExportCommand())
	return cmd
}

func netEntries(cmd *cobra.Command, p *project, periodFlag string) (model.Period, []model.NetEntry, error) {
	period, err := model.ParsePeriod(periodFlag)
	if err != nil {
		return model.Period{}, nil, err
	}
	ctx := cmd.Context()
	var entries []model.NetEntry
	err = p.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		entries, err = tx.NetEntries(ctx, period)
		return err
	})
	return period, entries, err
}

func newReportNetCommand() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "net",
		Short: "Show gross, reimbursed and net cost per ledger entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)

			per, entries, err := netEntries(cmd, p, period)
			if err != nil {
				return err
			}

			gross, reimbursed := decimal.Zero, decimal.Zero
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(w, "Ledger %s\n", per)
			fmt.Fprintln(w, "ID\tDATE\tCATEGORY\tMERCHANT\tGROSS\tREIMBURSED\tNET\t")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n", e.Entry.ID, e.Entry.Date.Format(model.DateFormat),
					e.Entry.Category, e.Entry.Merchant, e.Entry.Amount.StringFixed(2),
					e.Reimbursed.StringFixed(2), e.Net().StringFixed(2))
				gross = gross.Add(e.Entry.Amount)
				reimbursed = reimbursed.Add(e.Reimbursed)
			}
			fmt.Fprintf(w, "\t\t\tTOTAL\t%s\t%s\t%s\t\n", gross.StringFixed(2), reimbursed.StringFixed(2), gross.Sub(reimbursed).StringFixed(2))
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "billing month, YYYY-MM (required)")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

func newReportExportCommand() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the month's net ledger to exports/YYYY/MM/ledger.csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)

			per, entries, err := netEntries(cmd, p, period)
			if err != nil {
				return err
			}
			path, err := ledger.Export(p.root, per, entries)
			if err != nil {
				return err
			}
			printf(cmd, "Wrote %d entries to %s\n", len(entries), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "billing month, YYYY-MM (required)")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}
