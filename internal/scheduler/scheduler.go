package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"regwatch.co/sentinel/internal/model"
)

// Runner is satisfied by the monitor. Declared here to avoid importing
// the monitor package for one method.
type Runner interface {
	RunOnce(ctx context.Context) model.RunSummary
}

// Scheduler fires the monitor on a fixed interval. An external cron
// hitting the run endpoint works the same way; this exists for
// deployments without one. Overlapping runs are skipped, not queued.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	running  atomic.Bool

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(runner Runner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:    runner,
		interval:  interval,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.stoppedCh)

	slog.InfoContext(ctx, "scheduler started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			slog.InfoContext(ctx, "scheduler stopping")
			return nil
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.stoppedCh
}

// Running reports whether a run is currently in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// TryRunNow fires a run immediately unless one is already in flight.
// Returns the summary, or nil if the run was skipped.
func (s *Scheduler) TryRunNow(ctx context.Context) *model.RunSummary {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	defer s.running.Store(false)

	summary := s.runner.RunOnce(ctx)
	return &summary
}

func (s *Scheduler) fire(ctx context.Context) {
	if summary := s.TryRunNow(ctx); summary == nil {
		slog.WarnContext(ctx, "previous run still in flight, skipping tick")
	}
}
