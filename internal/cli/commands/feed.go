package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terzeron/feedmaker-console/internal/cli/console"
)

const feedRoute = "/management/{0}/{1}"

// NewFeedCmd creates the feed command and its subcommands
func NewFeedCmd(get Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Inspect and operate a single feed",
	}

	cmd.AddCommand(
		newFeedShowCmd(get),
		newFeedSaveCmd(get),
		newFeedRunCmd(get),
		newFeedStatusCmd(get),
		newFeedToggleCmd(get),
		newFeedDeleteCmd(get),
		newFeedResetListCmd(get),
		newFeedRemoveHTMLsCmd(get),
	)
	return cmd
}

// feedAction builds a "<verb> <group> <feed>" subcommand
func feedAction(use, short string, run func(cmd *cobra.Command, c *console.Console, group, feed string) error, get Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <group> <feed>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, get(), args[0], args[1])
		},
	}
	return withRoute(cmd, feedRoute)
}

func newFeedShowCmd(get Provider) *cobra.Command {
	return feedAction("show", "Show a feed's configuration and status",
		func(cmd *cobra.Command, c *console.Console, group, feed string) error {
			info, err := c.Feeds.FeedInfo(cmd.Context(), group, feed)
			if err != nil {
				return err
			}
			return printJSON(c.Out, info)
		}, get)
}

func newFeedSaveCmd(get Provider) *cobra.Command {
	var file string

	cmd := feedAction("save", "Create or replace a feed's configuration",
		func(cmd *cobra.Command, c *console.Console, group, feed string) error {
			configuration, err := readJSONFile(file, c.In)
			if err != nil {
				return err
			}
			if err := c.Feeds.SaveFeed(cmd.Context(), group, feed, configuration); err != nil {
				return fmt.Errorf("failed to save feed: %w", err)
			}
			fmt.Fprintf(c.Out, "Feed '%s/%s' saved.\n", group, feed)
			return nil
		}, get)

	cmd.Flags().StringVarP(&file, "file", "f", "-", "Configuration JSON file ('-' for stdin)")
	return cmd
}

func newFeedRunCmd(get Provider) *cobra.Command {
	return feedAction("run", "Start a feed job on the server",
		func(cmd *cobra.Command, c *console.Console, group, feed string) error {
			if err := c.Feeds.Run(cmd.Context(), group, feed); err != nil {
				return fmt.Errorf("failed to run feed: %w", err)
			}
			fmt.Fprintf(c.Out, "Feed '%s/%s' started.\n", group, feed)
			return nil
		}, get)
}

func newFeedStatusCmd(get Provider) *cobra.Command {
	return feedAction("status", "Check whether a feed job is running",
		func(cmd *cobra.Command, c *console.Console, group, feed string) error {
			status, err := c.Feeds.CheckRunning(cmd.Context(), group, feed)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Out, "%s/%s running: %s\n", group, feed, status)
			return nil
		}, get)
}

func newFeedToggleCmd(get Provider) *cobra.Command {
	return feedAction("toggle", "Enable or disable a feed",
		func(cmd *cobra.Command, c *console.Console, group, feed string) error {
			newName, err := c.Feeds.ToggleFeed(cmd.Context(), group, feed)
			if err != nil {
				return fmt.Errorf("failed to toggle feed: %w", err)
			}
			fmt.Fprintf(c.Out, "Feed '%s' is now '%s'.\n", feed, newName)
			return nil
		}, get)
}

func newFeedDeleteCmd(get Provider) *cobra.Command {
	var yes bool

	cmd := feedAction("delete", "Delete a feed",
		func(cmd *cobra.Command, c *console.Console, group, feed string) error {
			if err := confirm(c, fmt.Sprintf("Delete feed '%s/%s'", group, feed), yes); err != nil {
				return err
			}
			if err := c.Feeds.RemoveFeed(cmd.Context(), group, feed); err != nil {
				return fmt.Errorf("failed to delete feed: %w", err)
			}
			fmt.Fprintf(c.Out, "Feed '%s/%s' deleted.\n", group, feed)
			return nil
		}, get)

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newFeedResetListCmd(get Provider) *cobra.Command {
	return feedAction("reset-list", "Clear the collected item list of a feed",
		func(cmd *cobra.Command, c *console.Console, group, feed string) error {
			if err := c.Feeds.RemoveList(cmd.Context(), group, feed); err != nil {
				return fmt.Errorf("failed to reset list: %w", err)
			}
			fmt.Fprintf(c.Out, "List of '%s/%s' cleared.\n", group, feed)
			return nil
		}, get)
}

func newFeedRemoveHTMLsCmd(get Provider) *cobra.Command {
	var file string

	cmd := feedAction("remove-htmls", "Delete cached HTML files of a feed",
		func(cmd *cobra.Command, c *console.Console, group, feed string) error {
			var err error
			if file != "" {
				err = c.Feeds.RemoveHTMLFile(cmd.Context(), group, feed, file)
			} else {
				err = c.Feeds.RemoveHTMLs(cmd.Context(), group, feed)
			}
			if err != nil {
				return fmt.Errorf("failed to remove html files: %w", err)
			}
			fmt.Fprintf(c.Out, "HTML files of '%s/%s' removed.\n", group, feed)
			return nil
		}, get)

	cmd.Flags().StringVar(&file, "file", "", "Remove only this file")
	return cmd
}
