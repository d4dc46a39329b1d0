package assistant

import (
	"context"
	"log/slog"
	"time"
)

// Clock abstracts timer creation so delayed delivery can be driven
// deterministically in tests instead of racing wall-clock timers.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Scheduler holds an assistant message for the shop's configured response
// delay before handing it to the delivery function. Callers block until
// delivery, which keeps per-conversation ordering intact; other
// conversations run on their own goroutines and are unaffected.
type Scheduler struct {
	clock  Clock
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	return NewSchedulerWithClock(realClock{}, logger)
}

func NewSchedulerWithClock(clock Clock, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{clock: clock, logger: logger}
}

// Deliver waits out the delay, then runs deliver. A cancelled context
// drops the delivery and returns the context error; the caller decides
// whether that counts as a failure (at shutdown it does not).
func (s *Scheduler) Deliver(ctx context.Context, delay time.Duration, deliver func()) error {
	if delay <= 0 {
		deliver()
		return nil
	}
	select {
	case <-s.clock.After(delay):
		deliver()
		return nil
	case <-ctx.Done():
		s.logger.Debug("scheduled delivery dropped", "reason", ctx.Err())
		return ctx.Err()
	}
}
