package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Pruner on its PruneSchedule, a standard five-field
// cron expression such as "0 3 * * *".
type Scheduler struct {
	pruner *Pruner
	logger *slog.Logger

	mu    sync.Mutex
	cron  *cron.Cron
	entry cron.EntryID
}

// NewScheduler returns a stopped scheduler for p.
func NewScheduler(p *Pruner) *Scheduler {
	return &Scheduler{pruner: p, logger: p.logger}
}

// Start schedules pruning until ctx ends or Stop is called. It is a no-op
// when no schedule or retention period is set, or when already running.
func (s *Scheduler) Start(ctx context.Context) error {
	cfg := s.pruner.config
	if cfg.PruneSchedule == "" || cfg.RetentionDays <= 0 {
		s.logger.Info("retention not configured, skipping scheduler")
		return nil
	}

	sched, err := cron.ParseStandard(cfg.PruneSchedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", cfg.PruneSchedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	s.entry = c.Schedule(sched, cron.FuncJob(func() { s.prune(ctx) }))
	c.Start()
	s.cron = c

	s.logger.Info("retention scheduler started",
		"schedule", cfg.PruneSchedule,
		"retention_days", cfg.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) prune(ctx context.Context) {
	s.logger.Debug("starting scheduled evidence pruning")
	if _, err := s.pruner.Prune(ctx); err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
	}
}

// Stop cancels the schedule and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("retention scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// NextRun is the time of the next scheduled prune, nil when stopped.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	c, id := s.cron, s.entry
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	next := c.Entry(id).Next
	if next.IsZero() {
		return nil
	}
	return &next
}
