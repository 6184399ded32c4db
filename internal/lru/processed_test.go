package lru

import "testing"

func TestAddAndContains(t *testing.T) {
	c := New(2)
	c.Add("m1")
	if !c.Contains("m1") {
		t.Fatal("expected m1 present")
	}
	if c.Contains("m2") {
		t.Fatal("m2 should not be present")
	}
}

func TestEvictsOldestWhenOverCapacity(t *testing.T) {
	c := New(2)
	c.Add("m1")
	c.Add("m2")
	c.Add("m3")
	if c.Contains("m1") {
		t.Fatal("m1 should have been evicted")
	}
	if !c.Contains("m2") || !c.Contains("m3") {
		t.Fatal("m2 and m3 should remain")
	}
	if c.Len() != 2 {
		t.Fatalf("got len %d", c.Len())
	}
}

func TestReaddIsNoop(t *testing.T) {
	c := New(2)
	c.Add("m1")
	c.Add("m1")
	if c.Len() != 1 {
		t.Fatalf("got len %d", c.Len())
	}
}
