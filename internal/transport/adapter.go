// Package transport implements the Transport Adapter: a
// framed, bidirectional stream to a peer with independent dial/send/
// close timeouts and typed error classification, grounded on the
// teacher's conn package (bind_std.go's net.Conn wrapping and its
// timeout-vs-hard-failure distinction) but generalized from a UDP
// datagram bind to an arbitrary dialable stream protocol.
package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/yapyap/node/internal/codec"
	"github.com/yapyap/node/internal/framing"
)

// DialFunc opens a raw stream to address. The default implementation
// dials TCP; tests substitute an in-memory pipe.
type DialFunc func(ctx context.Context, address string) (net.Conn, error)

// Adapter dials protocol streams to peers and wraps them in a Framer.
type Adapter struct {
	DialTimeout  time.Duration
	SendTimeout  time.Duration
	CloseTimeout time.Duration
	MaxFrameSize int
	IdleTimeout  time.Duration
	Dial         DialFunc
}

// New constructs an Adapter with the given timeouts; dial defaults to
// net.Dialer.DialContext over TCP if nil.
func New(dialTimeout, sendTimeout, closeTimeout time.Duration, maxFrameSize int, idleTimeout time.Duration, dial DialFunc) *Adapter {
	if dial == nil {
		dial = defaultDial
	}
	return &Adapter{
		DialTimeout:  dialTimeout,
		SendTimeout:  sendTimeout,
		CloseTimeout: closeTimeout,
		MaxFrameSize: maxFrameSize,
		IdleTimeout:  idleTimeout,
		Dial:         dial,
	}
}

func defaultDial(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", address)
}

// Conn is one framed bidirectional stream to a peer.
type Conn struct {
	raw          net.Conn
	framer       *framing.Framer
	sendTimeout  time.Duration
	closeTimeout time.Duration
}

// DialProtocol opens a new Conn to address, failing with
// ClassDialTimeout if DialTimeout elapses first.
func (a *Adapter) DialProtocol(ctx context.Context, address string) (*Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, a.DialTimeout)
	defer cancel()
	raw, err := a.Dial(ctx, address)
	if err != nil {
		return nil, classify("dial", err)
	}
	return &Conn{
		raw:          raw,
		framer:       framing.New(raw, a.MaxFrameSize, a.IdleTimeout),
		sendTimeout:  a.SendTimeout,
		closeTimeout: a.CloseTimeout,
	}, nil
}

// Send writes one framed value, enforcing the adapter's send timeout
// independently of the dial and close timeouts.
func (c *Conn) Send(v codec.Value) error {
	if err := c.raw.SetWriteDeadline(time.Now().Add(c.sendTimeout)); err != nil {
		return classify("send", err)
	}
	if err := c.framer.WriteValue(v); err != nil {
		return classify("send", err)
	}
	return nil
}

// Receive blocks for one framed value, subject to the Framer's idle
// timeout watchdog.
func (c *Conn) Receive() (codec.Value, error) {
	v, err := c.framer.ReadValue()
	if err != nil {
		return codec.Null(), classify("send", err)
	}
	return v, nil
}

// Close shuts down the underlying stream, enforcing CloseTimeout.
func (c *Conn) Close() error {
	if err := c.raw.SetDeadline(time.Now().Add(c.closeTimeout)); err != nil {
		return classify("close", err)
	}
	if err := c.raw.Close(); err != nil {
		return classify("close", err)
	}
	return nil
}

// HangUp is an explicit peer-initiated teardown, distinct from Close:
// it skips the close-timeout deadline because the caller already knows
// the remote is gone.
func (c *Conn) HangUp() error {
	return c.raw.Close()
}

// RemoteAddr reports the underlying stream's remote address, for logging.
func (c *Conn) RemoteAddr() string {
	if c.raw == nil {
		return ""
	}
	return fmt.Sprint(c.raw.RemoteAddr())
}
