package server

import (
	"testing"
	"time"
)

func TestRateLimiter_PerClient(t *testing.T) {
	rl := newRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.allow("10.0.0.1") {
		t.Fatal("expected first request to be allowed")
	}
	if rl.allow("10.0.0.1") {
		t.Error("expected second immediate request to be limited")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("expected a different client to have its own bucket")
	}

	now = now.Add(time.Second)
	if !rl.allow("10.0.0.1") {
		t.Error("expected bucket to refill after one second")
	}
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := newRateLimiter(10, 10)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.allow("10.0.0.1")
	now = now.Add(2 * time.Minute)
	rl.allow("10.0.0.2")
	now = now.Add(2 * time.Minute)

	if removed := rl.evict(); removed != 1 {
		t.Errorf("expected 1 idle client evicted, got %d", removed)
	}
	if _, ok := rl.visitors["10.0.0.2"]; !ok {
		t.Error("expected recent client to be kept")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	if got := retryAfterSeconds(10); got != 1 {
		t.Errorf("expected 1 for fast limits, got %d", got)
	}
	if got := retryAfterSeconds(0.1); got != 10 {
		t.Errorf("expected 10 for 0.1 rps, got %d", got)
	}
}
