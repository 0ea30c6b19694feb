package reporter

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

// Rand is the jitter source. *math/rand.Rand satisfies it.
type Rand interface {
	Int63n(n int64) int64
}

// Runner is one schedulable iteration; *Cycle implements it.
type Runner interface {
	Run(ctx context.Context) Outcome
}

// Scheduler drives a Runner forever at a fixed interval.
type Scheduler struct {
	runner   Runner
	toggle   Toggle
	interval time.Duration
	rand     Rand
	sleepFn  func(ctx context.Context, d time.Duration) error // injectable for tests
}

// NewScheduler returns a Scheduler. interval is both the steady-state delay
// and the exclusive upper bound of the startup jitter.
func NewScheduler(r Runner, toggle Toggle, interval time.Duration, rnd Rand) *Scheduler {
	return &Scheduler{
		runner:   r,
		toggle:   toggle,
		interval: interval,
		rand:     rnd,
		sleepFn:  sleepCtx,
	}
}

// Run blocks until ctx is cancelled. If reporting is disabled when Run is
// called it logs that once and returns immediately.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.toggle.Enabled() {
		slog.Info("reporter: usage reporting is disabled")
		return
	}
	slog.Info("reporter: usage reporting is enabled", "interval", s.interval)

	s.runOnce(ctx)

	jitter := s.Jitter()
	slog.Debug("reporter: delaying periodic reports", "jitter", jitter)
	if s.sleepFn(ctx, jitter) != nil {
		return
	}

	for {
		s.runOnce(ctx)
		if s.sleepFn(ctx, s.interval) != nil {
			return
		}
	}
}

// Jitter samples the startup delay uniformly from [0, interval) at
// one-second granularity.
func (s *Scheduler) Jitter() time.Duration {
	secs := int64(s.interval / time.Second)
	if secs <= 0 {
		return 0
	}
	return time.Duration(s.rand.Int63n(secs)) * time.Second
}

func (s *Scheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("reporter: cycle panicked",
				"panic", r, "stack", string(debug.Stack()))
		}
	}()
	out := s.runner.Run(ctx)
	slog.Debug("reporter: cycle finished", "outcome", out.String())
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
