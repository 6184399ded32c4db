package store

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestQueueOutboundAndRetryable(t *testing.T) {
	s := newTestStore(t)
	deadline := time.Now().Add(time.Hour)
	if err := s.QueueOutbound("m1", "peerA", []byte("payload"), deadline); err != nil {
		t.Fatalf("queue outbound: %v", err)
	}
	got, err := s.GetRetryable(10)
	if err != nil {
		t.Fatalf("get retryable: %v", err)
	}
	if len(got) != 1 || got[0].MessageID != "m1" {
		t.Fatalf("expected m1 retryable, got %+v", got)
	}
	if err := s.MarkDelivered("m1"); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	got, err = s.GetRetryable(10)
	if err != nil {
		t.Fatalf("get retryable after delivered: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no retryable after delivery, got %+v", got)
	}
}

func TestScheduleRetryBumpsAttempts(t *testing.T) {
	s := newTestStore(t)
	deadline := time.Now().Add(time.Hour)
	if err := s.QueueOutbound("m2", "peerB", []byte("x"), deadline); err != nil {
		t.Fatalf("queue: %v", err)
	}
	if err := s.ScheduleRetry("m2", time.Now().Add(time.Minute), "transport-error"); err != nil {
		t.Fatalf("schedule retry: %v", err)
	}
	pending, err := s.GetPendingForPeer("peerB")
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Attempts != 1 {
		t.Fatalf("expected attempts=1, got %+v", pending)
	}
}

func TestPersistIncomingAtomicallyRejectsDuplicate(t *testing.T) {
	s := newTestStore(t)
	seq := int64(1)
	if err := s.PersistIncomingAtomically("msg1", "peerA", &seq, "me", []byte("body")); err != nil {
		t.Fatalf("first persist: %v", err)
	}
	err := s.PersistIncomingAtomically("msg1", "peerA", &seq, "me", []byte("body"))
	if err != ErrAlreadyProcessed {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	ok, err := s.IsProcessed("msg1")
	if err != nil || !ok {
		t.Fatalf("expected msg1 processed, ok=%v err=%v", ok, err)
	}
	last, err := s.LastSequence("peerA")
	if err != nil || last != 1 {
		t.Fatalf("expected last sequence 1, got %d err=%v", last, err)
	}
}

func TestVectorClockMonotoneMerge(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateVectorClock("peerA", 5); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.UpdateVectorClock("peerA", 2); err != nil {
		t.Fatalf("update lower: %v", err)
	}
	got, err := s.VectorClockFor("peerA")
	if err != nil || got != 5 {
		t.Fatalf("expected monotone max 5, got %d err=%v", got, err)
	}
}

func TestContactLWWDropsOlderWrite(t *testing.T) {
	s := newTestStore(t)
	newer := time.Now()
	older := newer.Add(-time.Hour)
	if err := s.UpsertContact(Contact{PeerID: "p1", Alias: "newer", LastSeen: newer, Metadata: "{}"}); err != nil {
		t.Fatalf("upsert newer: %v", err)
	}
	if err := s.UpsertContact(Contact{PeerID: "p1", Alias: "older", LastSeen: older, Metadata: "{}"}); err != nil {
		t.Fatalf("upsert older: %v", err)
	}
	c, err := s.GetContact("p1")
	if err != nil {
		t.Fatalf("get contact: %v", err)
	}
	if c.Alias != "newer" {
		t.Fatalf("expected LWW to keep newer alias, got %q", c.Alias)
	}
}

func TestAssignAndQueryReplica(t *testing.T) {
	s := newTestStore(t)
	deadline := time.Now().Add(time.Hour)
	if err := s.AssignReplica("m3", "peerC", "peerA", "relay1", deadline); err != nil {
		t.Fatalf("assign replica: %v", err)
	}
	replicas, err := s.GetMessageReplicas("m3")
	if err != nil || len(replicas) != 1 || replicas[0].RelayPeerID != "relay1" {
		t.Fatalf("unexpected replicas %+v err=%v", replicas, err)
	}
}

func TestCleanupRemovesStaleProcessed(t *testing.T) {
	s := newTestStore(t)
	seq := int64(1)
	if err := s.PersistIncomingAtomically("old1", "peerA", &seq, "me", []byte("x")); err != nil {
		t.Fatalf("persist: %v", err)
	}
	result, err := s.Cleanup(-time.Second) // negative retention: everything is "older" than cutoff
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if result.ProcessedRemoved != 1 {
		t.Fatalf("expected 1 processed removed, got %+v", result)
	}
}
