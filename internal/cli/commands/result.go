package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewResultCmd creates the result command
func NewResultCmd(get Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result",
		Short: "Show the log of the last full run",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			result, err := c.Feeds.ExecResult(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get exec result: %w", err)
			}
			fmt.Fprintln(c.Out, strings.TrimRight(result, "\n"))
			return nil
		},
	}

	return withRoute(cmd, "/result")
}
