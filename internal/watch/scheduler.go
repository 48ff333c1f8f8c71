// Package watch runs a job now and then again on a cron schedule.
package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one polling round
type Job func(ctx context.Context) error

type stopError struct {
	err error
}

func (e *stopError) Error() string { return e.err.Error() }
func (e *stopError) Unwrap() error { return e.err }

// Stop marks a job error as final. Other job errors are logged and the
// schedule continues.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &stopError{err: err}
}

// Parse accepts the standard 5-field format and descriptors like "@every 1m"
func Parse(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return schedule, nil
}

type Scheduler struct {
	expr     string
	schedule cron.Schedule
	logger   zerolog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func New(expr string, logger zerolog.Logger) (*Scheduler, error) {
	schedule, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		expr:     expr,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
		after:    time.After,
	}, nil
}

// NextRun returns the first activation after from
func (s *Scheduler) NextRun(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// Run executes job immediately, then at every activation until ctx is
// done or job returns an error wrapped with Stop.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	round := 0
	for {
		round++
		if err := s.runOnce(ctx, job, round); err != nil {
			return err
		}

		next := s.NextRun(s.now())
		s.logger.Debug().
			Str("schedule", s.expr).
			Time("next_run_at", next).
			Msg("Waiting for next round")

		select {
		case <-ctx.Done():
			return nil
		case <-s.after(next.Sub(s.now())):
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job, round int) error {
	if ctx.Err() != nil {
		return nil
	}

	err := job(ctx)
	if err == nil {
		return nil
	}

	var stop *stopError
	if errors.As(err, &stop) {
		return stop.err
	}

	s.logger.Warn().Err(err).Int("round", round).Msg("Watch round failed")
	return nil
}
