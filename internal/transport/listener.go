package transport

import (
	"context"
	"net"
	"time"

	"github.com/yapyap/node/internal/codec"
	"github.com/yapyap/node/internal/framing"
)

// Handler processes one inbound framed value. It is called
// synchronously from the accept loop's per-connection goroutine.
type Handler func(v codec.Value) error

// Listener accepts inbound one-shot streams and hands each decoded
// frame to a Handler, then closes the connection — the server side of
// the one-shot request-response stream model: one goroutine per
// socket, decode, dispatch, close.
type Listener struct {
	ln           net.Listener
	maxFrameSize int
	idleTimeout  time.Duration
	handler      Handler
}

// Listen binds a TCP listener at address and returns a Listener ready
// to Serve.
func Listen(address string, maxFrameSize int, idleTimeout time.Duration, handler Handler) (*Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, maxFrameSize: maxFrameSize, idleTimeout: idleTimeout, handler: handler}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve accepts connections until ctx is cancelled or the listener is
// closed, each handled in its own goroutine.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go l.handleConn(conn)
	}
}

func (l *Listener) handleConn(raw net.Conn) {
	defer raw.Close()
	c := &Conn{raw: raw, framer: framing.New(raw, l.maxFrameSize, l.idleTimeout), sendTimeout: l.idleTimeout, closeTimeout: l.idleTimeout}
	v, err := c.Receive()
	if err != nil {
		return
	}
	_ = l.handler(v)
}

// Close stops accepting new connections.
func (l *Listener) Close() error { return l.ln.Close() }
