package framing

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/yapyap/node/internal/codec"
)

type loopback struct {
	buf bytes.Buffer
}

func (l *loopback) Read(p []byte) (int, error)  { return l.buf.Read(p) }
func (l *loopback) Write(p []byte) (int, error) { return l.buf.Write(p) }

func TestWriteReadRoundTrip(t *testing.T) {
	lb := &loopback{}
	f := New(lb, 0, 0)

	in := codec.Map(map[string]codec.Value{
		"id":   codec.String("m1"),
		"seq":  codec.Int(7),
		"ack":  codec.Bool(true),
	})
	if err := f.WriteValue(in); err != nil {
		t.Fatal(err)
	}
	out, err := f.ReadValue()
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != codec.KindMap {
		t.Fatalf("got kind %v", out.Kind)
	}
	if s, _ := out.GetString("id"); s != "m1" {
		t.Fatalf("got id %q", s)
	}
}

func TestFrameTooLargeOnWrite(t *testing.T) {
	lb := &loopback{}
	f := New(lb, 8, 0)
	big := codec.Bytes(make([]byte, 100))
	if err := f.WriteValue(big); err != ErrFrameTooLarge {
		t.Fatalf("got %v, want ErrFrameTooLarge", err)
	}
}

func TestFrameTooLargeOnRead(t *testing.T) {
	lb := &loopback{}
	fWriter := New(lb, DefaultMaxFrameSize, 0)
	payload := codec.Bytes(make([]byte, 1000))
	if err := fWriter.WriteValue(payload); err != nil {
		t.Fatal(err)
	}

	fReader := New(lb, 8, 0)
	if _, err := fReader.ReadValue(); err != ErrFrameTooLarge {
		t.Fatalf("got %v, want ErrFrameTooLarge", err)
	}
}

func TestReadValuePartialFrameIdleTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	f := New(server, 0, 50*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := f.ReadValue()
		done <- err
	}()

	// Write only the length prefix, never the body: ReadValue must not
	// return until the idle timeout elapses.
	go func() {
		_, _ = client.Write([]byte{0, 0, 0, 10})
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error for a partial frame, got nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadValue did not return after idle timeout")
	}
}
