package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (domain.RunReport, error)
}

// Scheduler wires the cron driver with the pipeline use case. At most one run
// is active; a trigger that fires while a run is in progress is skipped.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline Runner
	metrics  Metrics
	logger   *slog.Logger
	running  atomic.Bool
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline Runner, metrics Metrics, logger *slog.Logger) *Scheduler {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		driver:   driver,
		pipeline: pipeline,
		metrics:  metrics,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.Trigger(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Trigger runs the pipeline unless a run is already active. It reports whether
// a run was started. Run failures are logged; the schedule continues.
func (s *Scheduler) Trigger(ctx context.Context, trigger time.Time) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("run already in progress, skipping trigger", "trigger", trigger)
		s.metrics.TriggerSkipped()
		return false
	}
	defer s.running.Store(false)

	s.logger.Info("pipeline run triggered", "trigger", trigger)
	report, err := s.pipeline.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled pipeline run failed", "run_id", report.RunID, "error", err)
		return true
	}
	s.logger.Info("scheduled pipeline run done", "run_id", report.RunID, "status", report.Status)
	return true
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
