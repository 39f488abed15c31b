// Package scheduler triggers reminder runs on a cron cadence when the
// dispatcher runs as a daemon. One-shot invocations bypass it entirely.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RunFunc executes one reminder run.
type RunFunc func(ctx context.Context)

// Scheduler manages the cron entry driving periodic runs.
type Scheduler struct {
	schedule string
	run      RunFunc
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
	entryID  cron.EntryID
	logger   *slog.Logger
}

// New creates a scheduler for the given cron expression, evaluated in the
// named timezone. An invalid timezone falls back to UTC with a warning.
func New(schedule, timezone string, run RunFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("invalid timezone, using UTC", "timezone", timezone, "error", err)
		loc = time.UTC
	}

	return &Scheduler{
		schedule: schedule,
		run:      run,
		cron:     cron.New(cron.WithLocation(loc)),
		logger:   logger,
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.run(ctx)
	})
	if err != nil {
		return err
	}

	s.entryID = entryID
	s.cron.Start()
	s.running = true

	nextRun := s.cron.Entry(s.entryID).Next

	s.logger.Info("reminder scheduler started",
		"schedule", s.schedule,
		"next_run", nextRun,
	)

	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.running = false

	s.logger.Info("reminder scheduler stopped")
}

// NextRun returns the time of the next scheduled run.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}
