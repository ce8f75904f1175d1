package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/internradar/internradar/internal/model"
	"github.com/internradar/internradar/internal/poller"
)

// Runner executes one pipeline cycle.
type Runner interface {
	Run(ctx context.Context) (poller.Report, error)
}

// Scheduler owns the main loop: it runs a cycle, then sleeps for the poll
// interval on success or for a linear backoff on failure.
type Scheduler struct {
	cycle       Runner
	interval    time.Duration
	baseBackoff time.Duration
	onPhase     func(poller.Phase)
	logger      *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewScheduler creates a scheduler. onPhase may be nil.
func NewScheduler(cycle Runner, interval, baseBackoff time.Duration, onPhase func(poller.Phase), logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cycle:       cycle,
		interval:    interval,
		baseBackoff: baseBackoff,
		onPhase:     onPhase,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

// Backoff returns the wait after the n-th consecutive failure: base*n,
// capped at the poll interval.
func (s *Scheduler) Backoff(failures int) time.Duration {
	return min(s.baseBackoff*time.Duration(failures), s.interval)
}

// Run starts the polling loop. It runs one immediate cycle and returns nil
// once ctx is cancelled, at any point of the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler",
		"interval", s.interval.String(),
		"base_backoff", s.baseBackoff.String(),
	)

	failures := 0
	for {
		_, err := s.runOnce(ctx)
		if ctx.Err() != nil {
			s.logger.Info("shutting down scheduler")
			return nil
		}

		var wait time.Duration
		if err != nil {
			failures++
			wait = s.Backoff(failures)
			s.setPhase(poller.PhaseRecoveringFromError)
			s.logger.Error("cycle failed",
				"error", err,
				"consecutive_failures", failures,
				"retry_in", wait.String(),
			)
		} else {
			failures = 0
			wait = s.interval
			s.setPhase(poller.PhaseSleeping)
			s.logger.Info("sleeping until next cycle", "next_in", wait.String())
		}

		if err := s.sleep(ctx, wait); err != nil {
			s.logger.Info("shutting down scheduler")
			return nil
		}
	}
}

// runOnce runs a cycle and turns a panic into a CycleError so the loop
// survives it.
func (s *Scheduler) runOnce(ctx context.Context) (report poller.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &model.CycleError{Phase: "unknown", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return s.cycle.Run(ctx)
}

func (s *Scheduler) setPhase(p poller.Phase) {
	if s.onPhase != nil {
		s.onPhase(p)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
