package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPartiesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parties",
		Short: "Inspect the parties sharing split bills",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List parties and their shares",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer p.closeInto(&err)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSHARE\tOWNER\tALIASES")
			for _, party := range p.cfg.Parties {
				fmt.Fprintf(w, "%s\t%d\t%t\t%s\n", party.Name, party.Share, party.Owner, strings.Join(party.Aliases, ", "))
			}
			return w.Flush()
		},
	})
	return cmd
}
