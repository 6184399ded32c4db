// Package reorder implements the per-sender out-of-order buffer from
// /: a size-capped store keyed by sequence number that
// evicts the oldest sequence when full.
package reorder

import "github.com/yapyap/node/internal/wire"

// DefaultCapacity is the default per-sender buffer size.
const DefaultCapacity = 512

// Buffer holds out-of-order messages for a single sender, keyed by
// sequence number, bounded to capacity entries.
type Buffer struct {
	capacity int
	entries  map[int64]wire.Message
	order    []int64 // insertion order, oldest first, for FIFO eviction
}

// New constructs a Buffer with the given capacity (DefaultCapacity if <= 0).
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity, entries: make(map[int64]wire.Message)}
}

// Put stores m under its sequence number, evicting the oldest buffered
// sequence if the buffer is at capacity (spec "ReorderBufferFull" policy:
// evict oldest sequence; continue).
func (b *Buffer) Put(seq int64, m wire.Message) (evictedSeq int64, evicted bool) {
	if _, exists := b.entries[seq]; exists {
		b.entries[seq] = m
		return 0, false
	}
	if len(b.entries) >= b.capacity {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.entries, oldest)
		evictedSeq, evicted = oldest, true
	}
	b.entries[seq] = m
	b.order = append(b.order, seq)
	return evictedSeq, evicted
}

// Pop removes and returns the message buffered at seq, if any.
func (b *Buffer) Pop(seq int64) (wire.Message, bool) {
	m, ok := b.entries[seq]
	if !ok {
		return wire.Message{}, false
	}
	delete(b.entries, seq)
	for i, s := range b.order {
		if s == seq {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return m, true
}

// Has reports whether seq is currently buffered.
func (b *Buffer) Has(seq int64) bool {
	_, ok := b.entries[seq]
	return ok
}

// Len returns the number of buffered messages.
func (b *Buffer) Len() int { return len(b.entries) }
