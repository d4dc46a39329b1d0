package assistant

import (
	"context"
	"testing"
	"time"
)

// fakeClock hands out a controllable timer channel.
type fakeClock struct {
	ch chan time.Time
}

func (f *fakeClock) After(time.Duration) <-chan time.Time { return f.ch }

func TestScheduler_ZeroDelayDeliversInline(t *testing.T) {
	s := NewSchedulerWithClock(&fakeClock{}, testLogger())

	delivered := false
	if err := s.Deliver(context.Background(), 0, func() { delivered = true }); err != nil {
		t.Fatal(err)
	}
	if !delivered {
		t.Fatal("zero delay should deliver immediately")
	}
}

func TestScheduler_DeliversAfterTick(t *testing.T) {
	clock := &fakeClock{ch: make(chan time.Time, 1)}
	s := NewSchedulerWithClock(clock, testLogger())

	done := make(chan error, 1)
	delivered := make(chan struct{}, 1)
	go func() {
		done <- s.Deliver(context.Background(), time.Second, func() { delivered <- struct{}{} })
	}()

	select {
	case <-delivered:
		t.Fatal("delivered before the clock fired")
	case <-time.After(10 * time.Millisecond):
	}

	clock.ch <- time.Now()
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("never delivered after the clock fired")
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestScheduler_CancelledContextDrops(t *testing.T) {
	clock := &fakeClock{ch: make(chan time.Time)}
	s := NewSchedulerWithClock(clock, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Deliver(ctx, time.Second, func() { t.Error("must not deliver after cancel") })
	if err == nil {
		t.Fatal("expected a context error")
	}
}
