// Package scheduler runs the cron-based safety-net drain. The online
// transition is the primary sync trigger; the schedule exists so a missed
// transition (daemon restarted while online, flapping link) cannot strand
// queued sales indefinitely.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron runner for periodic jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates an empty scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{cron: cron.New(), logger: logger}
}

// Add registers fn on a cron expression (standard 5 fields or @every 5m).
func (s *Scheduler) Add(schedule string, fn func()) error {
	_, err := s.cron.AddFunc(schedule, fn)
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", schedule, err)
	}
	s.logger.Info("job scheduled", "schedule", schedule)
	return nil
}

// Start runs the scheduler until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("scheduler started")

	<-ctx.Done()
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}
