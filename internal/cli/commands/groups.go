package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/terzeron/feedmaker-console/internal/cli/console"
)

// NewGroupsCmd creates the groups command
func NewGroupsCmd(get Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "groups",
		Aliases: []string{"ls"},
		Short:   "List feed groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			groups, err := c.Feeds.Groups(cmd.Context())
			if err != nil {
				return err
			}

			if len(groups) == 0 {
				fmt.Fprintln(c.Out, "No groups found.")
				return nil
			}

			w := tabwriter.NewWriter(c.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tFEEDS")
			fmt.Fprintln(w, "────\t─────")
			for _, g := range groups {
				fmt.Fprintf(w, "%s\t%d\n", g.Name, g.NumFeeds)
			}
			return w.Flush()
		},
	}

	return withRoute(cmd, "/management")
}

// NewGroupCmd creates the group command and its subcommands
func NewGroupCmd(get Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage a feed group",
	}

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete <group>",
		Short: "Delete a group and all of its feeds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			if err := confirm(c, fmt.Sprintf("Delete group '%s'", args[0]), yes); err != nil {
				return err
			}
			if err := c.Feeds.RemoveGroup(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete group: %w", err)
			}
			fmt.Fprintf(c.Out, "Group '%s' deleted.\n", args[0])
			return nil
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	toggleCmd := &cobra.Command{
		Use:   "toggle <group>",
		Short: "Enable or disable a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			newName, err := c.Feeds.ToggleGroup(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to toggle group: %w", err)
			}
			fmt.Fprintf(c.Out, "Group '%s' is now '%s'.\n", args[0], newName)
			return nil
		},
	}

	cmd.AddCommand(withRoute(deleteCmd, "/management/{0}"))
	cmd.AddCommand(withRoute(toggleCmd, "/management/{0}"))
	return cmd
}

// confirm asks before a destructive action unless yes is set
func confirm(c *console.Console, label string, yes bool) error {
	if yes {
		return nil
	}
	if !interactive(c.In) {
		return fmt.Errorf("confirmation required in non-interactive mode (use --yes)")
	}

	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		return fmt.Errorf("cancelled")
	}
	return nil
}
