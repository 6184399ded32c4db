package ratelimit

import (
	"testing"
	"time"
)

func TestAllowRespectsBurst(t *testing.T) {
	l := New(1, 10*time.Second, 1)
	defer l.Close()

	if !l.Allow("sender-a") {
		t.Fatal("first message should be allowed")
	}
	if l.Allow("sender-a") {
		t.Fatal("second message within the same burst window should be denied")
	}
}

func TestAllowIsPerKey(t *testing.T) {
	l := New(1, 10*time.Second, 1)
	defer l.Close()

	if !l.Allow("a") {
		t.Fatal("a should be allowed")
	}
	if !l.Allow("b") {
		t.Fatal("b should be allowed independently of a")
	}
}

func TestAllowRefillsOverTime(t *testing.T) {
	l := New(100, time.Second, 1)
	defer l.Close()

	if !l.Allow("k") {
		t.Fatal("first should be allowed")
	}
	time.Sleep(20 * time.Millisecond)
	if !l.Allow("k") {
		t.Fatal("expected a token to have refilled")
	}
}
