package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/terzeron/feedmaker-console/internal/cli/console"
	"github.com/terzeron/feedmaker-console/internal/guard"
	"github.com/terzeron/feedmaker-console/internal/session"
)

// NewLoginCmd creates the login command
func NewLoginCmd(get Provider) *cobra.Command {
	var email, name, token, redirect string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a Facebook access token",
		Long: `Log in to the FeedMaker API with an access token issued by the
Facebook login flow. The server answers with a session cookie that is
kept in the console's storage for later commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, get(), email, name, token, redirect)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address of the Facebook account")
	cmd.Flags().StringVar(&name, "name", "", "Display name of the Facebook account")
	cmd.Flags().StringVar(&token, "token", "", "Access token (or set FEEDMAKER_ACCESS_TOKEN, will prompt if not provided)")
	cmd.Flags().StringVar(&redirect, "redirect", "", "Page to continue with after logging in")

	return withRoute(cmd, guard.LoginPath)
}

func runLogin(cmd *cobra.Command, c *console.Console, email, name, token, redirect string) error {
	ctx := cmd.Context()

	// Check for environment variables (useful for CI/CD)
	if token == "" {
		token = os.Getenv("FEEDMAKER_ACCESS_TOKEN")
	}

	// Prompt for the token if not provided via flag or env var
	if token == "" {
		if !interactive(c.In) {
			return fmt.Errorf("access token is required in non-interactive mode (use --token flag or FEEDMAKER_ACCESS_TOKEN env var)")
		}
		fmt.Fprint(c.Out, "Access token: ")
		byteToken, err := term.ReadPassword(int(c.In.(*os.File).Fd()))
		if err != nil {
			return fmt.Errorf("failed to read access token: %w", err)
		}
		token = string(byteToken)
		fmt.Fprintln(c.Out) // New line after token input
	}

	fmt.Fprintf(c.Out, "Logging in to %s...\n", c.Config.API.BaseURL)

	err := c.Session.Login(ctx, session.LoginRequest{
		Email:       email,
		Name:        name,
		AccessToken: token,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(c.Out, "✓ Login successful!")
	fmt.Fprintf(c.Out, "  User: %s\n", c.Session.Session().UserName())

	if redirect != "" {
		next := guard.ReturnPath(guard.LoginRedirect(redirect))
		fmt.Fprintf(c.Out, "  Continue with: %s\n", next)
	}
	return nil
}
