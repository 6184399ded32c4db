package codec

import (
	"bytes"
	"reflect"
	"testing"
)

func TestRoundTripScalars(t *testing.T) {
	cases := []Value{
		Null(),
		Bool(true),
		Bool(false),
		Int(-42),
		Int(1<<40 + 7),
		String("hello yapyap"),
		Bytes([]byte{1, 2, 3, 4}),
	}
	for _, v := range cases {
		encoded, err := Encode(v)
		if err != nil {
			t.Fatalf("encode(%v): %v", v, err)
		}
		decoded, n, err := Decode(encoded)
		if err != nil {
			t.Fatalf("decode(%v): %v", v, err)
		}
		if n != len(encoded) {
			t.Fatalf("decode consumed %d, want %d", n, len(encoded))
		}
		if !reflect.DeepEqual(decoded, v) {
			t.Fatalf("round trip mismatch: got %+v want %+v", decoded, v)
		}
	}
}

func TestRoundTripNested(t *testing.T) {
	v := Map(map[string]Value{
		"id":   String("m1"),
		"from": String("A"),
		"seq":  Int(3),
		"tags": Array([]Value{String("a"), String("b"), Null()}),
		"payload": Map(map[string]Value{
			"encrypted": Bool(true),
			"ciphertext": Bytes([]byte("cipher")),
		}),
	})
	encoded, err := Encode(v)
	if err != nil {
		t.Fatal(err)
	}
	decoded, n, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(encoded) {
		t.Fatalf("consumed %d of %d bytes", n, len(encoded))
	}
	if !reflect.DeepEqual(decoded, v) {
		t.Fatalf("nested round trip mismatch: got %+v want %+v", decoded, v)
	}
}

func TestEncodeIsCanonicalForMaps(t *testing.T) {
	v := Map(map[string]Value{"z": Int(1), "a": Int(2), "m": Int(3)})
	var first []byte
	for i := 0; i < 5; i++ {
		encoded, err := Encode(v)
		if err != nil {
			t.Fatal(err)
		}
		if first == nil {
			first = encoded
			continue
		}
		if !bytes.Equal(first, encoded) {
			t.Fatalf("encoding not deterministic across runs")
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	encoded, _ := Encode(String("hello"))
	if _, _, err := Decode(encoded[:len(encoded)-2]); err == nil {
		t.Fatal("expected truncation error")
	}
}
