package router

import (
	"context"
	"fmt"
	"time"

	"github.com/yapyap/node/internal/codec"
	"github.com/yapyap/node/internal/events"
	"github.com/yapyap/node/internal/store"
	"github.com/yapyap/node/internal/wire"
)

// RetryTick implements the retry scheduler: for every row
// due for retry, either fail it terminally past the attempt budget or
// attempt retransmission, escalating to relay store-and-forward after
// EscalateAfterAttempts failures, then sweeps expired state via
// store.Cleanup.
func (r *Router) RetryTick(ctx context.Context) error {
	if !r.schedule.dueBefore(time.Now()) {
		if _, err := r.store.Cleanup(r.cfg.ProcessedRetention); err != nil {
			r.log.WithError(err).Warn("cleanup")
		}
		return nil
	}

	due, err := r.store.GetRetryable(256)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFault, err)
	}
	for _, p := range due {
		r.retryOne(ctx, p)
	}
	if _, err := r.store.Cleanup(r.cfg.ProcessedRetention); err != nil {
		r.log.WithError(err).Warn("cleanup")
	}
	return nil
}

func (r *Router) retryOne(ctx context.Context, p store.PendingMessage) {
	if p.Attempts >= r.cfg.MaxAttempts {
		_ = r.store.MarkFailed(p.MessageID, "max-retries-exceeded")
		r.markReplicasFailed(p.MessageID)
		r.schedule.untrack(p.MessageID)
		r.events.Emit(events.Event{Type: events.Failed, MessageID: p.MessageID, Peer: p.TargetPeerID, Reason: "max-retries-exceeded"})
		return
	}

	v, _, err := codec.Decode(p.Serialized)
	if err != nil {
		_ = r.store.MarkFailed(p.MessageID, "decode-error")
		return
	}
	msg, ok := wire.MessageFromValue(v)
	if !ok {
		_ = r.store.MarkFailed(p.MessageID, "decode-error")
		return
	}

	err = r.transmit(ctx, msg)
	if err == nil {
		// transmit already marked the row delivered, untracked the
		// schedule entry, and emitted Sent/Delivered.
		return
	}

	reason := err.Error()
	if p.Attempts+1 >= r.cfg.EscalateAfterAttempts {
		if escalated := r.escalateToRelays(ctx, msg); escalated {
			reason = "fallback-routed:" + reason
		}
	}
	delay := backoff(p.Attempts, r.cfg.BackoffBase, r.cfg.BackoffCap)
	if delay > r.cfg.BackoffCap {
		delay = r.cfg.BackoffCap
	}
	nextDue := time.Now().Add(delay)
	if err := r.store.ScheduleRetry(p.MessageID, nextDue, reason); err != nil {
		r.log.WithError(err).Warn("schedule retry")
		return
	}
	r.schedule.track(p.MessageID, nextDue)
}

func (r *Router) markReplicasFailed(messageID string) {
	replicas, err := r.store.GetMessageReplicas(messageID)
	if err != nil {
		return
	}
	for _, rep := range replicas {
		_ = r.store.UpdateReplicaStatus(messageID, rep.RelayPeerID, store.ReplicaFailed)
	}
}
