package router

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/yapyap/node/internal/store"
)

// scheduleItem is one btree entry: a pending message's next-due time,
// tie-broken by id so entries with equal timestamps stay distinct.
type scheduleItem struct {
	dueAt     time.Time
	messageID string
}

func (a scheduleItem) Less(other btree.Item) bool {
	b := other.(scheduleItem)
	if a.dueAt.Equal(b.dueAt) {
		return a.messageID < b.messageID
	}
	return a.dueAt.Before(b.dueAt)
}

// retrySchedule is an in-memory ordered index of outstanding retry due
// times: RetryTick consults it to skip a store round-trip when nothing
// is due rather than querying SQL on every tick. The btree is never
// the source of truth, only an index over it.
type retrySchedule struct {
	mu   sync.Mutex
	tree *btree.BTree
	byID map[string]time.Time
}

func newRetrySchedule() *retrySchedule {
	return &retrySchedule{tree: btree.New(32), byID: make(map[string]time.Time)}
}

// track records (or moves) messageID's next-due time.
func (s *retrySchedule) track(messageID string, dueAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[messageID]; ok {
		s.tree.Delete(scheduleItem{dueAt: old, messageID: messageID})
	}
	s.tree.ReplaceOrInsert(scheduleItem{dueAt: dueAt, messageID: messageID})
	s.byID[messageID] = dueAt
}

// untrack removes messageID once it reaches a terminal state.
func (s *retrySchedule) untrack(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[messageID]; ok {
		s.tree.Delete(scheduleItem{dueAt: old, messageID: messageID})
		delete(s.byID, messageID)
	}
}

// dueBefore reports whether any tracked item is due at or before now.
func (s *retrySchedule) dueBefore(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := false
	s.tree.AscendLessThan(scheduleItem{dueAt: now.Add(time.Nanosecond)}, func(btree.Item) bool {
		due = true
		return false
	})
	return due
}

// rehydrateSchedule seeds the index from the durable queue with every
// pending row still within its deadline, whether already due or due
// later, so a restarted node's RetryTick sees rows queued before the
// restart.
func (r *Router) rehydrateSchedule() {
	rows, err := r.store.ListOutbox(10000)
	if err != nil {
		r.log.WithError(err).Warn("rehydrate retry schedule")
		return
	}
	now := time.Now()
	for _, row := range rows {
		if row.Status == store.StatusPending && row.DeadlineAt.After(now) {
			r.schedule.track(row.MessageID, row.NextRetryAt)
		}
	}
}
