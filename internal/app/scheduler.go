package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Scheduler re-runs a job on a cron schedule. A run still in progress
// when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	run     func(ctx context.Context)
	timeout time.Duration
	logger  arbor.ILogger
}

// NewScheduler creates a scheduler for run; each run gets timeout.
func NewScheduler(run func(ctx context.Context), timeout time.Duration, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		run:     run,
		timeout: timeout,
		logger:  logger,
	}
}

// ValidateSchedule checks a standard five-field cron expression or descriptor
func ValidateSchedule(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return nil
}

// Start registers the job and starts the cron loop
func (s *Scheduler) Start(schedule string) error {
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(schedule, s.RunNow); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", schedule).Msg("Refresh scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Refresh scheduler stopped")
}

// RunNow runs the job once in the calling goroutine
func (s *Scheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	s.run(ctx)
	s.logger.Debug().Str("elapsed", time.Since(start).String()).Msg("Scheduled refresh complete")
}
