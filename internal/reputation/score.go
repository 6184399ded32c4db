// Package reputation tracks a clamped per-peer integer score used to gate relay selection.
package reputation

import "sync"

const (
	// Min and Max bound every peer's score.
	Min = -100
	Max = 100
)

// Table is a concurrency-safe map of peer id to reputation score.
type Table struct {
	mu     sync.Mutex
	scores map[string]int
}

// NewTable constructs an empty reputation Table.
func NewTable() *Table {
	return &Table{scores: make(map[string]int)}
}

// Adjust applies delta to peer's score, clamping to [Min, Max], and
// returns the resulting score. Unknown peers start at 0.
func (t *Table) Adjust(peer string, delta int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	score := t.scores[peer] + delta
	if score > Max {
		score = Max
	}
	if score < Min {
		score = Min
	}
	t.scores[peer] = score
	return score
}

// Score returns peer's current score (0 if unknown).
func (t *Table) Score(peer string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scores[peer]
}
