package router

import (
	"context"
	"testing"
	"time"

	"github.com/yapyap/node/internal/store"
)

func TestBackoffCapsAtConfiguredCeiling(t *testing.T) {
	base := time.Second
	ceiling := 60 * time.Second
	if got := backoff(0, base, ceiling); got != base {
		t.Fatalf("attempt 0: got %v", got)
	}
	if got := backoff(1, base, ceiling); got != 2*time.Second {
		t.Fatalf("attempt 1: got %v", got)
	}
	if got := backoff(10, base, ceiling); got != ceiling {
		t.Fatalf("expected cap at high attempt count, got %v", got)
	}
}

func TestRetryTickMarksMaxAttemptsFailed(t *testing.T) {
	r, _ := newLoopbackRouter(t)
	r.cfg.MaxAttempts = 1

	id := "m-exhausted"
	if err := r.store.QueueOutbound(id, "peerZ", []byte{}, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("queue: %v", err)
	}
	if err := r.store.ScheduleRetry(id, time.Now().Add(-time.Second), "x"); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	// The row was written straight to the store, so index it the way
	// Send does; RetryTick skips the store when nothing is tracked as due.
	r.schedule.track(id, time.Now().Add(-time.Second))

	if err := r.RetryTick(context.Background()); err != nil {
		t.Fatalf("retry tick: %v", err)
	}
	pending, err := r.store.GetPending(id)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if pending.Status != store.StatusFailed {
		t.Fatalf("expected failed status, got %s", pending.Status)
	}
}
