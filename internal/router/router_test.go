package router

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/yapyap/node/internal/codec"
	"github.com/yapyap/node/internal/config"
	"github.com/yapyap/node/internal/cryptoprim"
	"github.com/yapyap/node/internal/framing"
	"github.com/yapyap/node/internal/ratelimit"
	"github.com/yapyap/node/internal/store"
	"github.com/yapyap/node/internal/transport"
	"github.com/yapyap/node/internal/wire"
)

// newLoopbackRouter builds a Router whose transport adapter dials a
// fresh net.Pipe per call (mirroring 's one-shot
// request-response stream) and whose address resolver always
// succeeds, for pipeline tests that do not need a real network. Each
// dial's server-side end is delivered on the returned channel.
func newLoopbackRouter(t *testing.T) (*Router, <-chan net.Conn) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	conns := make(chan net.Conn, 16)
	adapter := transport.New(time.Second, time.Second, time.Second, 1<<20, 5*time.Second,
		func(ctx context.Context, address string) (net.Conn, error) {
			clientSide, serverSide := net.Pipe()
			conns <- serverSide
			return clientSide, nil
		})

	identity, err := cryptoprim.GenerateIdentity()
	if err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	staticKey, err := cryptoprim.GenerateEphemeral()
	if err != nil {
		t.Fatalf("generate static key: %v", err)
	}

	cfg := config.Default()
	r := New(Deps{
		Config:         cfg,
		Store:          st,
		Transport:      adapter,
		Identity:       identity,
		StaticKey:      staticKey,
		ResolveAddress: func(string) (string, bool) { return "loopback", true },
	})
	t.Cleanup(r.Shutdown)
	return r, conns
}

func drainFrames(t *testing.T, conns <-chan net.Conn, n int) []wire.Message {
	t.Helper()
	var out []wire.Message
	for i := 0; i < n; i++ {
		select {
		case conn := <-conns:
			fr := framing.New(conn, 1<<20, 5*time.Second)
			v, err := fr.ReadValue()
			if err != nil {
				t.Fatalf("read frame %d: %v", i, err)
			}
			m, ok := wire.MessageFromValue(v)
			if !ok {
				t.Fatalf("bad message value: %v", v)
			}
			out = append(out, m)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}
	return out
}

func TestSendStampsSequenceAndPersistsPending(t *testing.T) {
	r, conns := newLoopbackRouter(t)
	go drainFrames(t, conns, 1)

	msg := wire.Message{ID: "m-send", From: r.SelfID(), To: "peerB", Payload: codec.String("hi")}
	if err := r.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	// The row stays in the durable queue; a successful handoff marks it
	// delivered rather than removing it.
	pending, err := r.store.GetPending(msg.ID)
	if err != nil {
		t.Fatalf("expected persisted row, got err=%v", err)
	}
	if pending.Status != store.StatusDelivered {
		t.Fatalf("expected delivered status after handoff, got %s", pending.Status)
	}
	v, _, err := codec.Decode(pending.Serialized)
	if err != nil {
		t.Fatalf("decode persisted message: %v", err)
	}
	persisted, ok := wire.MessageFromValue(v)
	if !ok || persisted.SequenceNumber == nil || *persisted.SequenceNumber != 1 {
		t.Fatalf("expected sequence number 1 stamped on the first send, got %+v", persisted.SequenceNumber)
	}
}

func TestReceiveHappyPathInvokesCallbackAndAcks(t *testing.T) {
	r, conns := newLoopbackRouter(t)

	var delivered []wire.Message
	r.onMessage = func(m wire.Message) { delivered = append(delivered, m) }

	seq := int64(1)
	in := wire.Message{
		ID: "m1", Type: wire.KindData, From: "A", To: r.SelfID(),
		Payload: codec.String("hi"), Timestamp: time.Now().UnixMilli(), SequenceNumber: &seq,
	}

	ackCh := make(chan []wire.Message, 1)
	go func() { ackCh <- drainFrames(t, conns, 1) }()

	if err := r.Receive(context.Background(), in); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(delivered) != 1 || delivered[0].ID != "m1" {
		t.Fatalf("expected callback invoked once with m1, got %+v", delivered)
	}

	select {
	case acks := <-ackCh:
		if len(acks) != 1 || acks[0].Type != wire.KindAck || acks[0].ID != "m1" {
			t.Fatalf("expected ack for m1, got %+v", acks)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for ack")
	}
}

func TestReceiveDuplicateDoesNotInvokeCallbackTwice(t *testing.T) {
	r, conns := newLoopbackRouter(t)
	go drainFrames(t, conns, 2)

	var count int
	r.onMessage = func(wire.Message) { count++ }

	seq := int64(1)
	in := wire.Message{
		ID: "m1", Type: wire.KindData, From: "A", To: r.SelfID(),
		Payload: codec.String("hi"), Timestamp: time.Now().UnixMilli(), SequenceNumber: &seq,
	}
	if err := r.Receive(context.Background(), in); err != nil {
		t.Fatalf("first receive: %v", err)
	}
	if err := r.Receive(context.Background(), in); err != nil {
		t.Fatalf("second receive: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if count != 1 {
		t.Fatalf("expected callback invoked exactly once, got %d", count)
	}
}

func TestReceiveOutOfOrderThenFillDeliversInSequence(t *testing.T) {
	r, conns := newLoopbackRouter(t)
	go drainFrames(t, conns, 3)

	var order []string
	r.onMessage = func(m wire.Message) { order = append(order, m.ID) }

	mk := func(id string, seq int64) wire.Message {
		s := seq
		return wire.Message{ID: id, Type: wire.KindData, From: "A", To: r.SelfID(),
			Payload: codec.String("x"), Timestamp: time.Now().UnixMilli(), SequenceNumber: &s}
	}

	ctx := context.Background()
	if err := r.Receive(ctx, mk("m3", 3)); err != nil {
		t.Fatalf("m3: %v", err)
	}
	if err := r.Receive(ctx, mk("m1", 1)); err != nil {
		t.Fatalf("m1: %v", err)
	}
	if err := r.Receive(ctx, mk("m2", 2)); err != nil {
		t.Fatalf("m2: %v", err)
	}

	if len(order) != 3 || order[0] != "m1" || order[1] != "m2" || order[2] != "m3" {
		t.Fatalf("expected m1,m2,m3 order, got %v", order)
	}
}

func TestReceiveRateLimitedFloodOnlyFirstProcessed(t *testing.T) {
	r, conns := newLoopbackRouter(t)
	go drainFrames(t, conns, 1)

	r.senderBuckets.Close()
	r.senderBuckets = ratelimit.New(1, 10*time.Second, 1)

	var count int
	r.onMessage = func(wire.Message) { count++ }

	mk := func(id string, seq int64) wire.Message {
		s := seq
		return wire.Message{ID: id, Type: wire.KindData, From: "A", To: r.SelfID(),
			Payload: codec.String("x"), Timestamp: time.Now().UnixMilli(), SequenceNumber: &s}
	}
	ctx := context.Background()
	if err := r.Receive(ctx, mk("m1", 1)); err != nil {
		t.Fatalf("m1: %v", err)
	}
	if err := r.Receive(ctx, mk("m2", 2)); err != nil {
		t.Fatalf("m2: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only first message processed, got count=%d", count)
	}
}
