package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"barrio-etl/internal/domain"
)

// Scheduler triggers pipeline runs on a cron expression. Ticks are
// serialized with a mutex: the store tolerates no overlapping
// truncate/load windows, so an overrunning invocation delays the next one.
type Scheduler struct {
	cron   *cron.Cron
	svc    *Service
	logger *slog.Logger
	mu     sync.Mutex
}

// NewScheduler creates a scheduler around the pipeline service.
func NewScheduler(svc *Service, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		svc:    svc,
		logger: logger,
	}
}

// Start registers the schedule and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		ctx := context.Background()
		run, err := s.svc.Run(ctx, domain.TriggerTypeScheduled)
		if err != nil {
			// The failure is already registered in the run record; the
			// scheduler just surfaces it and waits for the next tick.
			s.logger.Warn("scheduled run failed", "error", err)
			return
		}
		s.logger.Info("scheduled run finished", "run_id", run.RunID, "status", run.Status)
	})
	if err != nil {
		return domain.ErrValidation("invalid cron schedule %q: %v", schedule, err)
	}

	s.cron.Start()
	s.logger.Info("pipeline scheduler started", "schedule", schedule)
	return nil
}

// Stop gracefully stops the cron loop, waiting for a running tick.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("pipeline scheduler stopped")
}
