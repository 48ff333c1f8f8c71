package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/terzeron/feedmaker-console/internal/cli/commands"
	"github.com/terzeron/feedmaker-console/internal/cli/console"
	"github.com/terzeron/feedmaker-console/internal/config"
	"github.com/terzeron/feedmaker-console/internal/logger"
)

var version = "dev" // Will be set during build

// app holds the console shared by the commands of one invocation
type app struct {
	console *console.Console
	owned   bool
}

func (a *app) get() *console.Console {
	return a.console
}

// open builds the console from the environment unless one was injected
func (a *app) open(ctx context.Context, cmd *cobra.Command) error {
	if a.console != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	c, err := console.Open(ctx, cfg,
		console.WithLogger(log),
		console.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
		console.WithInput(cmd.InOrStdin()),
	)
	if err != nil {
		return err
	}
	a.console = c
	a.owned = true
	return nil
}

func (a *app) close() {
	if a.owned && a.console != nil {
		a.console.Close()
	}
}

// Option configures the root command
type Option func(*app)

// WithConsole runs the commands against c instead of one built from the environment
func WithConsole(c *console.Console) Option {
	return func(a *app) {
		a.console = c
	}
}

// NewRootCmd builds the command tree
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{}
	for _, opt := range opts {
		opt(a)
	}
	return a.command()
}

func (a *app) command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "feedmaker",
		Short: "FeedMaker admin console",
		Long: `FeedMaker admin console - Inspect and operate your feeds from the terminal.

Every page checks your session with the FeedMaker API before it runs.
Log in once with 'feedmaker login'; the session is kept between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// No console needed for the version and help commands
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}

			if err := a.open(cmd.Context(), cmd); err != nil {
				return err
			}

			route, guarded := commands.RouteFor(cmd, args)
			if !guarded {
				return nil
			}
			decision := a.console.Guard.Navigate(cmd.Context(), route)
			return commands.NavigationError(decision)
		},
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "feedmaker version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(a.get))
	rootCmd.AddCommand(commands.NewLogoutCmd(a.get))
	rootCmd.AddCommand(commands.NewWhoamiCmd(a.get))
	rootCmd.AddCommand(commands.NewResultCmd(a.get))
	rootCmd.AddCommand(commands.NewProblemsCmd(a.get))
	rootCmd.AddCommand(commands.NewGroupsCmd(a.get))
	rootCmd.AddCommand(commands.NewGroupCmd(a.get))
	rootCmd.AddCommand(commands.NewFeedsCmd(a.get))
	rootCmd.AddCommand(commands.NewFeedCmd(a.get))
	rootCmd.AddCommand(commands.NewSiteConfigCmd(a.get))
	rootCmd.AddCommand(commands.NewSearchCmd(a.get))
	rootCmd.AddCommand(commands.NewSearchSiteCmd(a.get))
	rootCmd.AddCommand(commands.NewPublicFeedCmd(a.get))
	rootCmd.AddCommand(commands.NewWatchCmd(a.get))

	return rootCmd
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	a := &app{}
	defer a.close()

	rootCmd := a.command()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// SetVersion is called by main with the build version
func SetVersion(v string) {
	version = v
}
