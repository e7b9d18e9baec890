package ratelimit

import (
	"testing"
	"time"
)

func TestDisabledAllowsEverything(t *testing.T) {
	l := New(0, 1)
	for i := 0; i < 100; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatal("disabled limiter rejected a request")
		}
	}
	var nilLimiter *Limiter
	if !nilLimiter.Allow("x") {
		t.Fatal("nil limiter rejected a request")
	}
}

func TestBurstThenReject(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 2)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request within the same instant should be rejected")
	}
	if !l.Allow("b") {
		t.Fatal("other keys have their own bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("token should refill after one second")
	}
}

func TestCleanup(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(11 * time.Minute)
	l.Allow("fresh")

	if n := l.Cleanup(); n != 1 {
		t.Fatalf("Cleanup removed %d keys, want 1", n)
	}
	if _, ok := l.visitors["fresh"]; !ok {
		t.Error("fresh key was removed")
	}
}
