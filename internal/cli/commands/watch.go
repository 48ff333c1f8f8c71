package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terzeron/feedmaker-console/internal/cli/console"
	"github.com/terzeron/feedmaker-console/internal/watch"
)

const watchRoute = "/watch"

// NewWatchCmd creates the watch command
func NewWatchCmd(get Provider) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch [<group> <feed>]",
		Short: "Poll the run log, or a feed's job state, on a schedule",
		Long: `Poll the server on a cron schedule until interrupted.

Without arguments the run log is printed whenever it changes. With a
group and feed, the feed's job state is printed on every round.

The session is re-checked on every round; the watch stops when it ends.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts no arguments or <group> <feed>, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			if schedule == "" {
				schedule = c.Config.WatchSchedule
			}
			scheduler, err := watch.New(schedule, c.Logger)
			if err != nil {
				return err
			}

			var job watch.Job
			if len(args) == 2 {
				job = feedStateJob(c, args[0], args[1])
			} else {
				job = execResultJob(c)
			}
			return scheduler.Run(cmd.Context(), guarded(c, job))
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron schedule (default from WATCH_SCHEDULE)")

	return withRoute(cmd, watchRoute)
}

// guarded re-runs the navigation check before each round after the
// first, which the root pre-run has already checked.
func guarded(c *console.Console, job watch.Job) watch.Job {
	first := true
	return func(ctx context.Context) error {
		if first {
			first = false
			return job(ctx)
		}
		decision := c.Guard.Navigate(ctx, watchRoute)
		if err := decision.Err(); err != nil {
			return watch.Stop(NavigationError(decision))
		}
		return job(ctx)
	}
}

func execResultJob(c *console.Console) watch.Job {
	var last string
	return func(ctx context.Context) error {
		result, err := c.Feeds.ExecResult(ctx)
		if err != nil {
			return err
		}
		if result == last {
			return nil
		}
		last = result
		fmt.Fprintf(c.Out, "── %s ──\n%s\n", time.Now().Format(time.RFC3339), result)
		return nil
	}
}

func feedStateJob(c *console.Console, group, feed string) watch.Job {
	return func(ctx context.Context) error {
		status, err := c.Feeds.CheckRunning(ctx, group, feed)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "%s %s/%s running: %s\n", time.Now().Format(time.RFC3339), group, feed, status)
		return nil
	}
}
