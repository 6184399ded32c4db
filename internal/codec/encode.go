package codec

import (
	"encoding/binary"
	"errors"
	"sort"
)

// msgpack format tags used by this encoder. Only the subset needed to
// round-trip Value is implemented; it interoperates with any msgpack
// decoder for these tags.
const (
	tagNil     byte = 0xc0
	tagFalse   byte = 0xc2
	tagTrue    byte = 0xc3
	tagInt64   byte = 0xd3
	tagStr32   byte = 0xdb
	tagBin32   byte = 0xc6
	tagArray32 byte = 0xdd
	tagMap32   byte = 0xdf
)

// ErrUnsupportedKind is returned when encoding a Value with an invalid Kind tag.
var ErrUnsupportedKind = errors.New("codec: unsupported value kind")

// Encode serializes v into msgpack-compatible bytes.
func Encode(v Value) ([]byte, error) {
	buf := make([]byte, 0, 64)
	return appendValue(buf, v)
}

func appendValue(buf []byte, v Value) ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return append(buf, tagNil), nil
	case KindBool:
		if v.Bool {
			return append(buf, tagTrue), nil
		}
		return append(buf, tagFalse), nil
	case KindInt:
		buf = append(buf, tagInt64)
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(v.Int))
		return append(buf, tmp[:]...), nil
	case KindString:
		buf = append(buf, tagStr32)
		buf = appendUint32(buf, uint32(len(v.Str)))
		return append(buf, v.Str...), nil
	case KindBytes:
		buf = append(buf, tagBin32)
		buf = appendUint32(buf, uint32(len(v.Bytes)))
		return append(buf, v.Bytes...), nil
	case KindArray:
		buf = append(buf, tagArray32)
		buf = appendUint32(buf, uint32(len(v.Array)))
		var err error
		for _, elem := range v.Array {
			buf, err = appendValue(buf, elem)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case KindMap:
		buf = append(buf, tagMap32)
		buf = appendUint32(buf, uint32(len(v.Map)))
		// Keys are sorted so that encoding is canonical: the relay envelope
		// integrity hash is computed over this serialization,
		// and Go map iteration order is randomized.
		keys := make([]string, 0, len(v.Map))
		for key := range v.Map {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var err error
		for _, key := range keys {
			buf, err = appendValue(buf, String(key))
			if err != nil {
				return nil, err
			}
			buf, err = appendValue(buf, v.Map[key])
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	default:
		return nil, ErrUnsupportedKind
	}
}

func appendUint32(buf []byte, n uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], n)
	return append(buf, tmp[:]...)
}
