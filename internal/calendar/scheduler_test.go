package calendar

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingSyncer struct {
	calls int32
}

func (c *countingSyncer) SyncCalendar() error {
	atomic.AddInt32(&c.calls, 1)
	return nil
}

func TestNextCronDuration_ValidExpression(t *testing.T) {
	// "0 6 * * *" = daily at 06:00. Duration should be positive and < 24h.
	d := NextCronDuration("0 6 * * *")
	if d <= 0 {
		t.Fatalf("expected positive duration, got %v", d)
	}
	if d > 24*time.Hour {
		t.Fatalf("expected duration < 24h, got %v", d)
	}
}

func TestNextCronDuration_InvalidExpression(t *testing.T) {
	if d := NextCronDuration("not a cron expr"); d != 0 {
		t.Fatalf("expected 0 for invalid expression, got %v", d)
	}
}

func TestScheduler_SyncsImmediately(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, "0 6 * * *")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&syncer.calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("startup sync never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestScheduler_InvalidCronStopsAfterInitialPass(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, "bogus")

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for an invalid expression")
	}
	if got := atomic.LoadInt32(&syncer.calls); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}
