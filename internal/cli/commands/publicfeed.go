package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPublicFeedCmd creates the public-feed command
func NewPublicFeedCmd(get Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "public-feed",
		Short: "Manage published feed files",
	}

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete <feed>",
		Short: "Delete a published feed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			if err := confirm(c, fmt.Sprintf("Delete public feed '%s'", args[0]), yes); err != nil {
				return err
			}
			if err := c.Feeds.RemovePublicFeed(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete public feed: %w", err)
			}
			fmt.Fprintf(c.Out, "Public feed '%s' deleted.\n", args[0])
			return nil
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	cmd.AddCommand(withRoute(deleteCmd, "/problems"))
	return cmd
}
