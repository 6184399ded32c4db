package router

import (
	"time"

	"github.com/yapyap/node/internal/codec"
	"github.com/yapyap/node/internal/wire"
)

// DeltaSyncPayload is the structured exchange defined in 
// delta sync: processed ids and pending messages accumulated since a
// timestamp, plus the sender's full vector clock.
type DeltaSyncPayload struct {
	Origin          string
	SinceTimestamp  int64
	Now             int64
	ProcessedIDs    []string
	PendingMessages []wire.Message
	VectorClock     map[string]int64
}

// CreateDeltaSyncPayload builds the recovery payload to send to a peer
// reuniting after a partition.
func (r *Router) CreateDeltaSyncPayload(since time.Time) (DeltaSyncPayload, error) {
	processedIDs, err := r.store.ProcessedIdsSince(since)
	if err != nil {
		return DeltaSyncPayload{}, ErrStoreFault
	}
	pendingRows, err := r.store.PendingSince(since)
	if err != nil {
		return DeltaSyncPayload{}, ErrStoreFault
	}
	var pending []wire.Message
	for _, p := range pendingRows {
		v, _, err := codec.Decode(p.Serialized)
		if err != nil {
			continue
		}
		if msg, ok := wire.MessageFromValue(v); ok {
			pending = append(pending, msg)
		}
	}
	clock, err := r.store.AllVectorClocks()
	if err != nil {
		return DeltaSyncPayload{}, ErrStoreFault
	}

	return DeltaSyncPayload{
		Origin:          r.SelfID(),
		SinceTimestamp:  since.UnixMilli(),
		Now:             nowMillis(),
		ProcessedIDs:    processedIDs,
		PendingMessages: pending,
		VectorClock:     clock,
	}, nil
}

// ApplyDeltaSyncPayload merges a peer's delta-sync payload into local
// state: vector-clock entries move forward monotonically, and every
// pending message not already processed is (re)queued.
func (r *Router) ApplyDeltaSyncPayload(p DeltaSyncPayload) error {
	for peer, counter := range p.VectorClock {
		if err := r.store.UpdateVectorClock(peer, counter); err != nil {
			return ErrStoreFault
		}
	}
	for _, m := range p.PendingMessages {
		processed, err := r.store.IsProcessed(m.ID)
		if err != nil {
			return ErrStoreFault
		}
		if processed {
			continue
		}
		serialized, err := codec.Encode(m.ToValue())
		if err != nil {
			continue
		}
		deadline := time.Now().Add(time.Hour)
		if m.TTLMillis != nil {
			deadline = time.UnixMilli(m.Timestamp).Add(time.Duration(*m.TTLMillis) * time.Millisecond)
		}
		if err := r.store.QueueOutbound(m.ID, m.To, serialized, deadline); err != nil {
			return ErrStoreFault
		}
		r.schedule.track(m.ID, time.Now())
	}
	return nil
}
