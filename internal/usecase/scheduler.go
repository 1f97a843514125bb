package usecase

import (
	"context"
	"time"

	"NewsMerger/internal/ports"
)

// Scheduler wires the cron driver with the full pipeline run.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline}
}

// Start registers RunAll with the provided scheduler. Failures are logged and reported,
// never fatal to the schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.pipeline.info("scheduled run", "trigger", trigger.Format(time.RFC3339))
		if _, err := s.pipeline.RunAll(ctx); err != nil && s.pipeline.logger != nil {
			s.pipeline.logger.Error("scheduled run failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
