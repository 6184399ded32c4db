package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yapyap/node/internal/codec"
	"github.com/yapyap/node/internal/cryptoprim"
	"github.com/yapyap/node/internal/events"
	"github.com/yapyap/node/internal/store"
	"github.com/yapyap/node/internal/wire"
)

// Receive implements the receive pipeline: rate gates,
// opportunistic handover, ack/nak shortcut, timestamp skew, relay
// envelope validation, dedup, sequence validation, vector-clock
// validation, atomic persistence, and reorder-buffer drain. Each step
// short-circuits the rest on rejection.
func (r *Router) Receive(ctx context.Context, m wire.Message) error {
	originKey := r.originKeyOf(m)
	if !r.originBuckets.Allow(originKey) {
		r.reputation.Adjust(m.From, -2)
		return nil
	}
	if !r.senderBuckets.Allow(m.From) {
		r.reputation.Adjust(m.From, -2)
		return nil
	}

	if m.From != r.SelfID() {
		go r.flushPendingFor(context.Background(), m.From)
	}

	switch m.Type {
	case wire.KindAck:
		return r.handleAck(m)
	case wire.KindNak:
		return r.handleNak(m)
	}

	if abs64(nowMillis()-m.Timestamp) > r.cfg.TimestampSkewWindow.Milliseconds() {
		r.reputation.Adjust(m.From, -2)
		return nil
	}

	if m.Type == wire.KindRelayEnvelope {
		return r.handleRelayEnvelope(ctx, m)
	}

	return r.acceptAfterDedup(ctx, m)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// handleAck processes an acknowledgement for a previously sent message.
func (r *Router) handleAck(m wire.Message) error {
	if err := r.store.MarkDelivered(m.ID); err != nil {
		r.log.WithError(err).Warn("mark delivered")
	}
	r.schedule.untrack(m.ID)
	replicas, err := r.store.GetMessageReplicas(m.ID)
	if err == nil {
		for _, rep := range replicas {
			_ = r.store.UpdateReplicaStatus(m.ID, rep.RelayPeerID, store.ReplicaDelivered)
		}
	}
	r.events.Emit(events.Event{Type: events.Delivered, MessageID: m.ID, Peer: m.From})
	r.events.Emit(events.Event{Type: events.AckReceived, MessageID: m.ID, Peer: m.From})
	return nil
}

// handleNak processes a negative acknowledgement, scheduling a retry
// sooner than the periodic scheduler would.
func (r *Router) handleNak(m wire.Message) error {
	pending, err := r.store.GetPending(m.ID)
	if err != nil {
		return nil // nothing to retry; the row may already be gone
	}
	delay := backoff(pending.Attempts, r.cfg.BackoffBase, r.cfg.BackoffCap)
	dueAt := time.Now().Add(delay)
	if err := r.store.ScheduleRetry(m.ID, dueAt, m.NakReason); err != nil {
		r.log.WithError(err).Warn("schedule retry after nak")
	} else {
		r.schedule.track(m.ID, dueAt)
	}
	r.events.Emit(events.Event{Type: events.NakReceived, MessageID: m.ID, Peer: m.From, Reason: m.NakReason})
	return nil
}

// handleRelayEnvelope validates and processes an inbound store-and-
// forward wrapper.
func (r *Router) handleRelayEnvelope(ctx context.Context, m wire.Message) error {
	payload, ok := wire.RelayEnvelopePayloadFromValue(m.Payload)
	if !ok {
		r.reputation.Adjust(m.From, -5)
		return nil
	}
	expectedHash, err := canonicalHash(payload.Original)
	if err != nil || !bytesEqual(expectedHash, payload.IntegrityHash) {
		r.reputation.Adjust(m.From, -5)
		return ErrIntegrityFailure
	}
	signingPayload, err := payload.SigningPayload()
	if err != nil {
		r.reputation.Adjust(m.From, -5)
		return ErrIntegrityFailure
	}
	signerKey, ok := r.peerSigningKey(m.From)
	if !ok {
		r.reputation.Adjust(m.From, -5)
		return ErrIntegrityFailure
	}
	if err := cryptoprim.Verify(signerKey, signingPayload, payload.Signature); err != nil {
		r.reputation.Adjust(m.From, -5)
		return ErrIntegrityFailure
	}

	if payload.Target == r.SelfID() {
		return r.Receive(ctx, payload.Original)
	}

	deadline := time.Now().Add(time.Hour)
	if payload.Original.TTLMillis != nil {
		deadline = time.UnixMilli(payload.Original.Timestamp).Add(time.Duration(*payload.Original.TTLMillis) * time.Millisecond)
	}
	if err := r.store.AssignReplica(payload.Original.ID, payload.Target, m.From, r.SelfID(), deadline); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFault, err)
	}
	serialized, err := codec.Encode(payload.Original.ToValue())
	if err != nil {
		return err
	}
	if err := r.store.QueueOutbound(payload.Original.ID, payload.Target, serialized, deadline); err != nil {
		return err
	}
	r.schedule.track(payload.Original.ID, time.Now())
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// acceptAfterDedup implements steps 7-11: dedup check, sequence
// validation, vector-clock validation, atomic persistence, callback,
// and reorder-buffer drain.
func (r *Router) acceptAfterDedup(ctx context.Context, m wire.Message) error {
	if r.dedup.Contains(m.ID) {
		return r.acceptDuplicate(ctx, m)
	}
	processed, err := r.store.IsProcessed(m.ID)
	if err != nil {
		return ErrStoreFault
	}
	if processed {
		return r.acceptDuplicate(ctx, m)
	}

	if m.SequenceNumber != nil {
		last, err := r.store.LastSequence(m.From)
		if err != nil {
			return ErrStoreFault
		}
		switch {
		case *m.SequenceNumber <= last:
			r.reputation.Adjust(m.From, -3)
			return nil
		case *m.SequenceNumber > last+1:
			buf := r.reorderBufferFor(m.From)
			buf.Put(*m.SequenceNumber, m)
			return nil
		}
	}

	if m.VectorClock != nil {
		if remoteView, ok := m.VectorClock[m.From]; ok {
			localView, err := r.store.VectorClockFor(m.From)
			if err != nil {
				return ErrStoreFault
			}
			if remoteView < localView {
				r.reputation.Adjust(m.From, -3)
				return ErrVectorClockStale
			}
		}
	}

	if err := r.persistAndDeliver(ctx, m); err != nil {
		return err
	}
	return r.drainReorderBuffer(ctx, m.From)
}

func (r *Router) acceptDuplicate(ctx context.Context, m wire.Message) error {
	r.events.Emit(events.Event{Type: events.Received, MessageID: m.ID, Peer: m.From, WasDuplicate: true})
	if m.Type == wire.KindData {
		r.sendAck(ctx, m)
	}
	r.reputation.Adjust(m.From, -1)
	return nil
}

func (r *Router) persistAndDeliver(ctx context.Context, m wire.Message) error {
	serialized, err := codec.Encode(m.ToValue())
	if err != nil {
		return err
	}
	err = r.store.PersistIncomingAtomically(m.ID, m.From, m.SequenceNumber, m.To, serialized)
	if errors.Is(err, store.ErrAlreadyProcessed) {
		return r.acceptDuplicate(ctx, m)
	}
	if err != nil {
		return ErrStoreFault
	}
	for peer, counter := range m.VectorClock {
		_ = r.store.UpdateVectorClock(peer, counter)
	}
	r.dedup.Add(m.ID)
	r.events.Emit(events.Event{Type: events.Received, MessageID: m.ID, Peer: m.From})
	if m.Type == wire.KindData {
		r.sendAck(ctx, m)
	}
	r.onMessage(m)
	return nil
}

func (r *Router) sendAck(ctx context.Context, m wire.Message) {
	ack := wire.Message{
		ID:        m.ID,
		Type:      wire.KindAck,
		From:      r.SelfID(),
		To:        m.From,
		Payload:   codec.Null(),
		Timestamp: nowMillis(),
	}
	if err := r.Send(ctx, ack); err != nil {
		r.log.WithError(err).WithField("message", m.ID).Debug("send ack")
	}
}

// drainReorderBuffer re-runs acceptance for every consecutively
// buffered sequence number following the one just accepted.
func (r *Router) drainReorderBuffer(ctx context.Context, sender string) error {
	buf := r.reorderBufferFor(sender)
	for {
		last, err := r.store.LastSequence(sender)
		if err != nil {
			return ErrStoreFault
		}
		next, ok := buf.Pop(last + 1)
		if !ok {
			return nil
		}
		if err := r.persistAndDeliver(ctx, next); err != nil {
			return err
		}
	}
}

// flushPendingFor opportunistically re-attempts delivery of any
// outbound messages already queued for a peer that just contacted us.
func (r *Router) flushPendingFor(ctx context.Context, peer string) {
	pending, err := r.store.GetPendingForPeer(peer)
	if err != nil {
		return
	}
	for _, p := range pending {
		v, _, err := codec.Decode(p.Serialized)
		if err != nil {
			continue
		}
		msg, ok := wire.MessageFromValue(v)
		if !ok {
			continue
		}
		if err := r.transmit(ctx, msg); err == nil {
			r.events.Emit(events.Event{Type: events.Sent, MessageID: msg.ID, Peer: peer})
		}
	}
}
