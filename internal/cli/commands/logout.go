package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terzeron/feedmaker-console/internal/guard"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(get Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			c.Session.Logout(cmd.Context())
			fmt.Fprintln(c.Out, "Logged out.")
			return nil
		},
	}

	return withRoute(cmd, guard.LogoutPath)
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(get Provider) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the server thinks you are",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			if !c.Session.CheckAuth(cmd.Context()) {
				fmt.Fprintln(c.Out, "Not logged in.")
				fmt.Fprintln(c.Out, "\nLog in with: feedmaker login")
				return nil
			}
			fmt.Fprintf(c.Out, "Logged in as %s\n", c.Session.Session().UserName())
			return nil
		},
	}
}
