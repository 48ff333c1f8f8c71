package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewSiteConfigCmd creates the site-config command and its subcommands
func NewSiteConfigCmd(get Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site-config",
		Short: "Read or replace a group's site configuration",
	}

	getCmd := &cobra.Command{
		Use:   "get <group>",
		Short: "Print the site configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			cfg, err := c.Feeds.SiteConfig(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode site config: %w", err)
			}
			fmt.Fprintln(c.Out, string(data))
			return nil
		},
	}

	var file string
	setCmd := &cobra.Command{
		Use:   "set <group>",
		Short: "Replace the site configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			raw, err := readJSONFile(file, c.In)
			if err != nil {
				return err
			}
			var cfg map[string]any
			if err := json.Unmarshal(raw, &cfg); err != nil {
				return fmt.Errorf("site config must be a JSON object: %w", err)
			}
			if err := c.Feeds.SaveSiteConfig(cmd.Context(), args[0], cfg); err != nil {
				return fmt.Errorf("failed to save site config: %w", err)
			}
			fmt.Fprintf(c.Out, "Site config of '%s' saved.\n", args[0])
			return nil
		},
	}
	setCmd.Flags().StringVarP(&file, "file", "f", "-", "Site config JSON file ('-' for stdin)")

	cmd.AddCommand(withRoute(getCmd, "/management/{0}"))
	cmd.AddCommand(withRoute(setCmd, "/management/{0}"))
	return cmd
}
