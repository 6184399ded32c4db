package framing

import "errors"

// Fault policies from : a frame declaring more than the cap
// fails the whole stream; a frame whose payload does not decode to
// exactly its declared length does the same.
var (
	// ErrFrameTooLarge is returned when a declared or encoded frame length
	// exceeds the configured cap.
	ErrFrameTooLarge = errors.New("framing: frame too large")
	// ErrBufferOverflow is returned when a frame's decoded value ends
	// before the frame's declared length, leaving trailing bytes.
	ErrBufferOverflow = errors.New("framing: buffer overflow")
	// ErrIdleTimeout names the idle-timeout fault. ReadValue does not
	// return it: an idle stream surfaces as the stream's own read-deadline
	// error.
	ErrIdleTimeout = errors.New("framing: idle timeout")
)
