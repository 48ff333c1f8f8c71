package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewFeedsCmd creates the feeds command
func NewFeedsCmd(get Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feeds <group>",
		Short: "List the feeds of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			list, err := c.Feeds.Feeds(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if len(list) == 0 {
				fmt.Fprintf(c.Out, "No feeds in group '%s'.\n", args[0])
				return nil
			}

			w := tabwriter.NewWriter(c.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTITLE")
			fmt.Fprintln(w, "────\t─────")
			for _, f := range list {
				fmt.Fprintf(w, "%s\t%s\n", f.Name, f.Title)
			}
			return w.Flush()
		},
	}

	return withRoute(cmd, "/management/{0}")
}
