package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/yapyap/node/internal/codec"
	"github.com/yapyap/node/internal/framing"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	adapter := New(time.Second, time.Second, time.Second, 1<<16, time.Second,
		func(ctx context.Context, address string) (net.Conn, error) { return clientSide, nil })

	conn, err := adapter.DialProtocol(context.Background(), "ignored")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	serverConn := &Conn{raw: serverSide, framer: framing.New(serverSide, 1<<16, time.Second), sendTimeout: time.Second, closeTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- conn.Send(codec.String("hello")) }()

	v, err := serverConn.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("send: %v", err)
	}
	if v.Str != "hello" {
		t.Fatalf("expected hello, got %v", v)
	}
}

func TestDialTimeoutIsClassified(t *testing.T) {
	adapter := New(10*time.Millisecond, time.Second, time.Second, 1<<16, time.Second,
		func(ctx context.Context, address string) (net.Conn, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	_, err := adapter.DialProtocol(context.Background(), "slow")
	if err == nil {
		t.Fatal("expected dial timeout error")
	}
	classified, ok := err.(*ClassifiedError)
	if !ok {
		t.Fatalf("expected *ClassifiedError, got %T", err)
	}
	if classified.Class != ClassTransportError && classified.Class != ClassDialTimeout {
		t.Fatalf("unexpected class %v", classified.Class)
	}
}
