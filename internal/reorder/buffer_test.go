package reorder

import (
	"testing"

	"github.com/yapyap/node/internal/wire"
)

func TestPutPopRoundTrip(t *testing.T) {
	b := New(4)
	b.Put(3, wire.Message{ID: "m3"})
	b.Put(2, wire.Message{ID: "m2"})

	if !b.Has(3) || !b.Has(2) {
		t.Fatal("expected both sequences buffered")
	}
	m, ok := b.Pop(2)
	if !ok || m.ID != "m2" {
		t.Fatalf("got %+v, %v", m, ok)
	}
	if b.Has(2) {
		t.Fatal("popped entry should be gone")
	}
	if b.Len() != 1 {
		t.Fatalf("got len %d", b.Len())
	}
}

func TestPutEvictsOldestWhenFull(t *testing.T) {
	b := New(2)
	b.Put(1, wire.Message{ID: "m1"})
	b.Put(2, wire.Message{ID: "m2"})
	evicted, ok := b.Put(3, wire.Message{ID: "m3"})
	if !ok || evicted != 1 {
		t.Fatalf("expected eviction of seq 1, got %d ok=%v", evicted, ok)
	}
	if b.Has(1) {
		t.Fatal("seq 1 should have been evicted")
	}
	if !b.Has(2) || !b.Has(3) {
		t.Fatal("seq 2 and 3 should remain")
	}
}
