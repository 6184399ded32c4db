package router

import (
	"fmt"

	"github.com/yapyap/node/internal/codec"
	"github.com/yapyap/node/internal/wire"
)

// Inbox decodes the most recent accepted inbound messages addressed to
// this node, newest first, for the control plane.
func (r *Router) Inbox(limit int) ([]wire.Message, error) {
	entries, err := r.store.ListProcessedFor(r.SelfID(), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFault, err)
	}
	out := make([]wire.Message, 0, len(entries))
	for _, e := range entries {
		v, _, err := codec.Decode(e.Serialized)
		if err != nil {
			continue
		}
		if m, ok := wire.MessageFromValue(v); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// Outbox decodes every undelivered queued message regardless of
// target, newest first, for the control plane.
func (r *Router) Outbox(limit int) ([]wire.Message, error) {
	rows, err := r.store.ListOutbox(limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFault, err)
	}
	out := make([]wire.Message, 0, len(rows))
	for _, p := range rows {
		v, _, err := codec.Decode(p.Serialized)
		if err != nil {
			continue
		}
		if m, ok := wire.MessageFromValue(v); ok {
			out = append(out, m)
		}
	}
	return out, nil
}
