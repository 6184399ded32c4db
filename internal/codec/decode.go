package codec

import (
	"encoding/binary"
	"fmt"
)

// ErrTruncated is returned when the buffer ends before a complete value
// could be decoded.
var ErrTruncated = fmt.Errorf("codec: truncated input")

// Decode parses a single Value from the front of buf and returns it along
// with the number of bytes consumed.
func Decode(buf []byte) (Value, int, error) {
	return decodeValue(buf)
}

func decodeValue(buf []byte) (Value, int, error) {
	if len(buf) < 1 {
		return Value{}, 0, ErrTruncated
	}
	tag := buf[0]
	rest := buf[1:]
	switch tag {
	case tagNil:
		return Null(), 1, nil
	case tagFalse:
		return Bool(false), 1, nil
	case tagTrue:
		return Bool(true), 1, nil
	case tagInt64:
		if len(rest) < 8 {
			return Value{}, 0, ErrTruncated
		}
		n := int64(binary.BigEndian.Uint64(rest[:8]))
		return Int(n), 9, nil
	case tagStr32:
		n, consumed, err := readLen(rest)
		if err != nil {
			return Value{}, 0, err
		}
		body := rest[consumed:]
		if uint64(len(body)) < n {
			return Value{}, 0, ErrTruncated
		}
		return String(string(body[:n])), 1 + consumed + int(n), nil
	case tagBin32:
		n, consumed, err := readLen(rest)
		if err != nil {
			return Value{}, 0, err
		}
		body := rest[consumed:]
		if uint64(len(body)) < n {
			return Value{}, 0, ErrTruncated
		}
		out := make([]byte, n)
		copy(out, body[:n])
		return Bytes(out), 1 + consumed + int(n), nil
	case tagArray32:
		n, consumed, err := readLen(rest)
		if err != nil {
			return Value{}, 0, err
		}
		offset := 1 + consumed
		elems := make([]Value, 0, n)
		for i := uint64(0); i < n; i++ {
			elem, used, err := decodeValue(buf[offset:])
			if err != nil {
				return Value{}, 0, err
			}
			elems = append(elems, elem)
			offset += used
		}
		return Array(elems), offset, nil
	case tagMap32:
		n, consumed, err := readLen(rest)
		if err != nil {
			return Value{}, 0, err
		}
		offset := 1 + consumed
		m := make(map[string]Value, n)
		for i := uint64(0); i < n; i++ {
			key, used, err := decodeValue(buf[offset:])
			if err != nil {
				return Value{}, 0, err
			}
			offset += used
			if key.Kind != KindString {
				return Value{}, 0, fmt.Errorf("codec: map key must be string, got %v", key.Kind)
			}
			val, used, err := decodeValue(buf[offset:])
			if err != nil {
				return Value{}, 0, err
			}
			offset += used
			m[key.Str] = val
		}
		return Map(m), offset, nil
	default:
		return Value{}, 0, fmt.Errorf("codec: unknown tag 0x%02x", tag)
	}
}

func readLen(buf []byte) (uint64, int, error) {
	if len(buf) < 4 {
		return 0, 0, ErrTruncated
	}
	return uint64(binary.BigEndian.Uint32(buf[:4])), 4, nil
}
