package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/rentbook/internal/classify"
	"github.com/cleared-dev/rentbook/internal/model"
	"github.com/cleared-dev/rentbook/internal/rules"
)

func newRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
	}
	cmd.AddCommand(newRulesListCommand(), newRulesAddCommand(), newRulesDeactivateCommand())
	return cmd
}

func newRulesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)

			active := p.rules.Sorted()
			var inactive []model.Rule
			for _, r := range p.rules.All() {
				if !r.Active {
					inactive = append(inactive, r)
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPRIORITY\tPATTERN\tACTION\tCATEGORY\tACTIVE")
			for _, r := range append(active, inactive...) {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%t\n", r.ID, r.Priority, r.Pattern, r.Action, r.Category, r.Active)
			}
			for _, err := range p.rules.Check(p.chart) {
				fmt.Fprintf(w, "warning: %v\n", err)
			}
			return w.Flush()
		},
	}
}

func newRulesAddCommand() *cobra.Command {
	var r model.Rule
	var action string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a classification rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			r.Action = model.Action(action)
			if _, err := classify.Compile(r.Pattern); err != nil {
				return fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
			}

			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)

			if r.Action == model.ActionCategorize && !p.chart.Exists(r.Category) {
				return fmt.Errorf("unknown category %q", r.Category)
			}
			added, err := p.rules.Add(r)
			if err != nil {
				return err
			}
			if err := p.rules.Save(p.root); err != nil {
				return err
			}

			ctx := cmd.Context()
			p.audit.Add("rules", "add", strconv.Itoa(added.ID), fmt.Sprintf("%s %s -> %s", added.Pattern, added.Action, added.Category))
			p.commitAudit(ctx, fmt.Sprintf("rules: add rule %d (%s)", added.ID, added.Pattern), rules.RelPath)
			printf(cmd, "Added rule %d\n", added.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&r.Pattern, "pattern", "", "regular expression matched against description and payee (required)")
	cmd.Flags().StringVar(&r.Category, "category", "", "target category for categorize rules")
	cmd.Flags().StringVar(&action, "action", string(model.ActionCategorize), "categorize or exclude")
	cmd.Flags().IntVar(&r.Priority, "priority", 50, "evaluation priority, highest first")
	cmd.Flags().StringVar(&r.Description, "description", "", "free-text note")
	_ = cmd.MarkFlagRequired("pattern")

	return cmd
}

func newRulesDeactivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <rule-id>",
		Short: "Deactivate a rule (rules are never deleted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}
			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)

			if err := p.rules.SetActive(id, false); err != nil {
				return err
			}
			if err := p.rules.Save(p.root); err != nil {
				return err
			}
			p.audit.Add("rules", "deactivate", strconv.Itoa(id), "")
			p.commitAudit(cmd.Context(), fmt.Sprintf("rules: deactivate rule %d", id), rules.RelPath)
			printf(cmd, "Deactivated rule %d\n", id)
			return nil
		},
	}
}
