package kademlia

import "testing"

func TestDistanceXOR(t *testing.T) {
	d := Distance([]byte{0xff, 0x00}, []byte{0x0f, 0x0f})
	want := []byte{0xf0, 0x0f}
	for i := range want {
		if d[i] != want[i] {
			t.Fatalf("got %x want %x", d, want)
		}
	}
}

func TestLessOrdersCloserFirst(t *testing.T) {
	target := []byte{0x00, 0x00}
	a := []byte{0x00, 0x01} // distance 0x0001
	b := []byte{0x01, 0x00} // distance 0x0100, farther
	if !Less(Distance(target, a), Distance(target, b)) {
		t.Fatal("expected a to be closer than b")
	}
}

func TestCompareByDistancePadsShorter(t *testing.T) {
	target := []byte{0x10}
	a := []byte{0x10, 0x00}
	b := []byte{0x10}
	if CompareByDistance(target, a, b) != 0 {
		t.Fatal("expected equal distance after zero padding")
	}
}
