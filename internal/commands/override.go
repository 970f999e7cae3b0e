package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newOverrideCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Manual corrections to matching",
	}
	cmd.AddCommand(newOverrideMatchCommand(), newOverrideForegoCommand())
	return cmd
}

func newOverrideMatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "match <event-id> <obligation-id>",
		Short: "Link a confirmation to an obligation by hand",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			eventID, err := parseID(args[0])
			if err != nil {
				return err
			}
			obligationID, err := parseID(args[1])
			if err != nil {
				return err
			}
			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)

			ctx := cmd.Context()
			res, err := p.matcher().ForceMatch(ctx, eventID, obligationID)
			if err != nil {
				return err
			}
			details := fmt.Sprintf("event %d score %.3f", eventID, res.Score)
			if res.Deferred {
				details += " adjustment deferred"
			}
			p.audit.Add("override", "match", res.Obligation.TrackingID, details)
			printf(cmd, "Matched event %d to %s (score %.3f)\n", eventID, res.Obligation.TrackingID, res.Score)
			p.commitAudit(ctx, fmt.Sprintf("override: match event %d to %s", eventID, res.Obligation.TrackingID))
			return nil
		},
	}
}

func newOverrideForegoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "forego <obligation-id>",
		Short: "Waive an open obligation",
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
			o, err := p.matcher().Forego(ctx, id)
			if err != nil {
				return err
			}
			p.audit.Add("override", "forego", o.TrackingID, o.OwedAmount.StringFixed(2))
			printf(cmd, "Obligation %s foregone\n", o.TrackingID)
			p.commitAudit(ctx, "override: forego "+o.TrackingID)
			return nil
		},
	}
}
