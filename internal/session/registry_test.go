package session

import (
	"testing"
	"time"

	"github.com/yapyap/node/internal/cryptoprim"
)

func TestGetOrCreateReturnsStableSession(t *testing.T) {
	r, err := New(nil, time.Hour, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	remote, err := cryptoprim.GenerateEphemeral()
	if err != nil {
		t.Fatalf("generate remote static: %v", err)
	}
	s1, err := r.GetOrCreate("peerA", remote.PublicKey)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	s2, err := r.GetOrCreate("peerA", remote.PublicKey)
	if err != nil {
		t.Fatalf("get or create again: %v", err)
	}
	if s1.ID != s2.ID {
		t.Fatalf("expected stable session id, got %s vs %s", s1.ID, s2.ID)
	}
}

func TestInvalidateRemovesSession(t *testing.T) {
	r, err := New(nil, time.Hour, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	remote, _ := cryptoprim.GenerateEphemeral()
	s, err := r.Create("peerB", remote.PublicKey)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.Invalidate(s.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok := r.GetByID(s.ID); ok {
		t.Fatal("expected session to be gone after invalidate")
	}
}

func TestCleanupExpiredRemovesPastExpiry(t *testing.T) {
	r, err := New(nil, -time.Second, nil) // negative expiry: sessions are born expired
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	remote, _ := cryptoprim.GenerateEphemeral()
	if _, err := r.Create("peerC", remote.PublicKey); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n := r.CleanupExpired(); n != 1 {
		t.Fatalf("expected 1 expired session removed, got %d", n)
	}
}
