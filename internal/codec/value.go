// Package codec implements a small msgpack-compatible structured value
// model and binary encoder/decoder used to serialize router envelopes
// onto the wire.
package codec

import "fmt"

// Kind tags the dynamic type carried by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindString
	KindBytes
	KindArray
	KindMap
)

// Value is a tagged union mirroring msgpack's value model:
// null | bool | int | string | bytes | array | map. Messages transport
// a free-form Value as their payload.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Str   string
	Bytes []byte
	Array []Value
	Map   map[string]Value
}

func Null() Value                 { return Value{Kind: KindNull} }
func Bool(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value           { return Value{Kind: KindInt, Int: i} }
func String(s string) Value       { return Value{Kind: KindString, Str: s} }
func Bytes(b []byte) Value        { return Value{Kind: KindBytes, Bytes: b} }
func Array(v []Value) Value       { return Value{Kind: KindArray, Array: v} }
func Map(m map[string]Value) Value { return Value{Kind: KindMap, Map: m} }

// IsNull reports whether v carries the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Get returns the value at key in a KindMap value, or the zero Value and
// false if v is not a map or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindMap {
		return Value{}, false
	}
	val, ok := v.Map[key]
	return val, ok
}

// GetString is a convenience accessor for string-typed map fields.
func (v Value) GetString(key string) (string, bool) {
	val, ok := v.Get(key)
	if !ok || val.Kind != KindString {
		return "", false
	}
	return val.Str, true
}

// GetBytes is a convenience accessor for bytes-typed map fields.
func (v Value) GetBytes(key string) ([]byte, bool) {
	val, ok := v.Get(key)
	if !ok || val.Kind != KindBytes {
		return nil, false
	}
	return val.Bytes, true
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindString:
		return v.Str
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.Bytes))
	case KindArray:
		return fmt.Sprintf("array(%d)", len(v.Array))
	case KindMap:
		return fmt.Sprintf("map(%d)", len(v.Map))
	default:
		return "invalid"
	}
}
