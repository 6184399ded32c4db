// Package framing implements length-prefixed framing over any
// byte-oriented bidirectional stream, carrying codec.Value payloads.
package framing

import (
	"bufio"
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/yapyap/node/internal/codec"
)

const (
	// DefaultMaxFrameSize is the default cap on a single encoded frame.
	DefaultMaxFrameSize = 1 << 20 // 1 MiB
	// DefaultIdleTimeout closes a stream with no read progress.
	DefaultIdleTimeout = 30 * time.Second

	lengthPrefixSize = 4
	// backPressureThreshold is the fraction of the cap at which the
	// reader briefly pauses before accepting more bytes.
	backPressureThreshold = 0.75
	backPressurePause     = time.Millisecond
)

var framePool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 0, DefaultMaxFrameSize)
		return &buf
	},
}

// Framer reads and writes length-prefixed, codec-encoded frames over a
// stream. It is not safe for concurrent use by multiple goroutines on the
// same direction (read vs write may run concurrently).
type Framer struct {
	r   *bufio.Reader
	w   io.Writer
	dl  interface{ SetReadDeadline(time.Time) error }
	buf []byte

	maxFrameSize int
	idleTimeout  time.Duration
}

// deadlineSetter is implemented by net.Conn; streams that don't support
// deadlines (e.g. in-memory pipes in tests) simply skip the watchdog.
type deadlineSetter interface {
	SetReadDeadline(time.Time) error
}

// New constructs a Framer over rw with the given cap and idle timeout.
// Zero values select the package defaults.
func New(rw io.ReadWriter, maxFrameSize int, idleTimeout time.Duration) *Framer {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	f := &Framer{
		r:            bufio.NewReaderSize(rw, maxFrameSize/4),
		w:            rw,
		maxFrameSize: maxFrameSize,
		idleTimeout:  idleTimeout,
	}
	if ds, ok := rw.(deadlineSetter); ok {
		f.dl = ds
	}
	return f
}

// WriteValue encodes v, prepends a 4-byte big-endian length, and writes
// the frame. Returns ErrFrameTooLarge if the encoded payload exceeds the cap.
func (f *Framer) WriteValue(v codec.Value) error {
	encoded, err := codec.Encode(v)
	if err != nil {
		return err
	}
	if len(encoded) > f.maxFrameSize {
		return ErrFrameTooLarge
	}
	var prefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(encoded)))
	if _, err := f.w.Write(prefix[:]); err != nil {
		return err
	}
	_, err = f.w.Write(encoded)
	return err
}

// ReadValue blocks for one complete frame, decodes it, and returns the
// value. It sets the idle-timeout read deadline before reading the
// length prefix and again before reading the frame body, and enforces the frame-size cap before allocating the frame buffer.
func (f *Framer) ReadValue() (codec.Value, error) {
	if f.dl != nil {
		_ = f.dl.SetReadDeadline(time.Now().Add(f.idleTimeout))
	}

	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(f.r, prefix[:]); err != nil {
		return codec.Value{}, err
	}
	declared := binary.BigEndian.Uint32(prefix[:])
	if declared > uint32(f.maxFrameSize) {
		return codec.Value{}, ErrFrameTooLarge
	}

	bufPtr := framePool.Get().(*[]byte)
	buf := (*bufPtr)[:0]
	defer func() {
		*bufPtr = buf[:0]
		framePool.Put(bufPtr)
	}()

	if cap(buf) < int(declared) {
		buf = make([]byte, declared)
	} else {
		buf = buf[:declared]
	}

	if float64(declared) > backPressureThreshold*float64(f.maxFrameSize) {
		time.Sleep(backPressurePause)
	}

	if f.dl != nil {
		_ = f.dl.SetReadDeadline(time.Now().Add(f.idleTimeout))
	}
	if _, err := io.ReadFull(f.r, buf); err != nil {
		return codec.Value{}, err
	}

	v, n, err := codec.Decode(buf)
	if err != nil {
		return codec.Value{}, err
	}
	if n != len(buf) {
		// Trailing garbage after a declared-length payload is itself a
		// decode fault; treat it the same as BufferOverflow so the
		// stream is aborted rather than silently desynchronized.
		return codec.Value{}, ErrBufferOverflow
	}
	return v, nil
}
