package router

import (
	"context"
	"fmt"
	"time"

	"github.com/yapyap/node/internal/codec"
	"github.com/yapyap/node/internal/cryptoprim"
	"github.com/yapyap/node/internal/events"
	"github.com/yapyap/node/internal/wire"
)

// Send implements the send pipeline: stamp vector-clock and
// sequence bookkeeping, persist durably, emit queued, encrypt the
// payload if the recipient's static key is known, then transmit with
// bounded retries within the call. transmit itself marks the queue
// entry delivered on a successful handoff; an inbound ack additionally
// confirms custody for any relay replicas holding the message.
func (r *Router) Send(ctx context.Context, m wire.Message) error {
	if m.ID == "" {
		m.ID = newMessageID()
	}
	if m.Timestamp == 0 {
		m.Timestamp = nowMillis()
	}
	if m.TTLMillis == nil {
		ttl := r.cfg.DefaultTTL.Milliseconds()
		m.TTLMillis = &ttl
	}

	selfID := r.SelfID()
	selfCounter, err := r.store.IncrementVectorClock(selfID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFault, err)
	}
	if m.SequenceNumber == nil {
		seq := selfCounter
		m.SequenceNumber = &seq
	}
	for peer, counter := range m.VectorClock {
		if err := r.store.UpdateVectorClock(peer, counter); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreFault, err)
		}
	}
	fullClock, err := r.store.AllVectorClocks()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFault, err)
	}
	m.VectorClock = fullClock

	serialized, err := codec.Encode(m.ToValue())
	if err != nil {
		return fmt.Errorf("router: encode message: %w", err)
	}
	deadline := time.UnixMilli(m.Timestamp).Add(time.Duration(*m.TTLMillis) * time.Millisecond)
	if err := r.store.QueueOutbound(m.ID, m.To, serialized, deadline); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFault, err)
	}
	r.events.Emit(events.Event{Type: events.Queued, MessageID: m.ID, Peer: m.To})
	r.schedule.track(m.ID, time.Now())

	if !m.Payload.IsNull() {
		if staticKey, ok := r.peerStaticKey(m.To); ok {
			env, err := cryptoprim.EncryptPayload(m.Payload, r.identity, staticKey)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCryptoFailure, err)
			}
			m.Payload = env.ToValue()
		}
	}

	return r.transmit(ctx, m)
}

// transmit performs the dial/send/close phase with up to
// ReconnectAttempts retries within the same call. On failure it never
// mutates queue state: that is resolved later by the retry scheduler.
// On success it marks the queue row delivered and untracks the retry
// schedule entry itself, since every caller (Send, the retry
// scheduler, and opportunistic flush) needs the same handoff.
func (r *Router) transmit(ctx context.Context, m wire.Message) error {
	if err := r.store.MarkInflight(m.ID); err != nil {
		r.log.WithError(err).Warn("mark inflight")
	}
	var lastErr error
	for attempt := 0; attempt <= r.cfg.ReconnectAttempts; attempt++ {
		err := r.dialAndSend(ctx, m.To, m.ToValue())
		if err == nil {
			r.events.Emit(events.Event{Type: events.Sent, MessageID: m.ID, Peer: m.To})
			if err := r.store.MarkDelivered(m.ID); err != nil {
				r.log.WithError(err).Warn("mark delivered")
			}
			r.schedule.untrack(m.ID)
			r.events.Emit(events.Event{Type: events.Delivered, MessageID: m.ID, Peer: m.To})
			return nil
		}
		lastErr = err
		r.hangUp(m.To)
	}
	return lastErr
}

// hangUp is best-effort: on send failure the adapter is asked to hang
// up the target before the next attempt.
func (r *Router) hangUp(peer string) {
	addr, ok := r.resolveAddress(peer)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.CloseTimeout)
	defer cancel()
	conn, err := r.transport.DialProtocol(ctx, addr)
	if err != nil {
		return
	}
	_ = conn.HangUp()
}
