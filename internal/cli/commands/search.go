package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command
func NewSearchCmd(get Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <keyword>...",
		Short: "Find feeds and groups by keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			found, err := c.Feeds.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "GROUP\tNAME\tTITLE")
			fmt.Fprintln(w, "─────\t────\t─────")
			for _, f := range found {
				fmt.Fprintf(w, "%s\t%s\t%s\n", f.GroupName, f.Name, f.Title)
			}
			return w.Flush()
		},
	}

	return withRoute(cmd, "/search")
}

// NewSearchSiteCmd creates the search-site command
func NewSearchSiteCmd(get Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search-site <keyword>",
		Short: "Search the configured source sites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			matches, err := c.Feeds.SearchSite(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SITE\tURL")
			fmt.Fprintln(w, "────\t───")
			for _, m := range matches {
				fmt.Fprintf(w, "%s\t%s\n", m.Name, m.URL)
			}
			return w.Flush()
		},
	}

	return withRoute(cmd, "/search")
}
