package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yuukiLike/cc-catch-news/internal/logging"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
)

// CronScheduler runs a job immediately on Start and then on every cron tick.
type CronScheduler struct {
	spec     string
	location *time.Location
	logger   *slog.Logger
	cron     *cron.Cron
	initial  sync.WaitGroup
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler configured via a standard 5-field cron expression.
func NewCronScheduler(spec string, location *time.Location, logger *slog.Logger) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CronScheduler{spec: spec, location: location, logger: logger.With("component", "cron")}
}

// Start runs job once right away, then registers it on the cron schedule.
// The schedule stops when ctx is cancelled or Stop is called.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	if c.cron != nil {
		return nil
	}

	cr := cron.New(
		cron.WithLocation(c.location),
		cron.WithLogger(logging.CronLogger(c.logger)),
		cron.WithChain(cron.Recover(logging.CronLogger(c.logger))),
	)
	if _, err := cr.AddFunc(c.spec, func() { job(time.Now()) }); err != nil {
		return fmt.Errorf("schedule %q: %w", c.spec, err)
	}
	c.cron = cr

	c.initial.Add(1)
	go func() {
		defer c.initial.Done()
		job(time.Now())
	}()
	cr.Start()
	c.logger.Info("scheduler started", "schedule", c.spec, "timezone", c.location.String())

	go func() {
		<-ctx.Done()
		cr.Stop()
	}()

	return nil
}

// Stop halts the schedule and waits for running jobs, including the one
// started by Start, until ctx expires.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.cron == nil {
		return nil
	}
	cronDone := c.cron.Stop()
	c.cron = nil

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		c.initial.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
