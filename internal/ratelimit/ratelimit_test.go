package ratelimit

import (
	"errors"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func neverSweep() float64 { return 1.0 }

func TestCheckFreshActorAllowed(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	l := New(NewMemoryStore(), WithClock(fixedClock(now)), WithRand(neverSweep))

	d := l.Check("user-1")
	if !d.Allowed {
		t.Fatalf("expected fresh actor allowed")
	}
	if d.Remaining != MaxAttempts {
		t.Fatalf("expected remaining %d, got %d", MaxAttempts, d.Remaining)
	}
	if !d.ResetAt.Equal(now.Add(Window)) {
		t.Fatalf("expected resetAt %v, got %v", now.Add(Window), d.ResetAt)
	}
}

func TestCheckIsReadOnly(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	l := New(store, WithClock(fixedClock(now)), WithRand(neverSweep))

	for i := 0; i < 10; i++ {
		l.Check("user-1")
	}
	if _, ok := store.Get("user-1"); ok {
		t.Fatalf("Check must not create entries")
	}
}

func TestDeniedAfterMaxAttempts(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	l := New(NewMemoryStore(), WithClock(fixedClock(now)), WithRand(neverSweep))

	for i := 0; i < MaxAttempts; i++ {
		l.Record("user-1")
	}

	d := l.Check("user-1")
	if d.Allowed {
		t.Fatalf("expected denied after %d attempts", MaxAttempts)
	}
	if d.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", d.Remaining)
	}
	if !d.ResetAt.Equal(now.Add(Window)) {
		t.Fatalf("expected resetAt anchored to first attempt")
	}
}

func TestGuardRaisesRateLimited(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	l := New(NewMemoryStore(), WithClock(fixedClock(now)), WithRand(neverSweep))

	for i := 0; i < MaxAttempts; i++ {
		if err := l.Guard("user-1"); err != nil {
			t.Fatalf("attempt %d unexpectedly limited: %v", i+1, err)
		}
	}

	err := l.Guard("user-1")
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if limited.MinutesRemaining < 1 {
		t.Fatalf("expected at least 1 minute remaining, got %d", limited.MinutesRemaining)
	}
	if !limited.ResetAt.Equal(now.Add(Window)) {
		t.Fatalf("expected resetAt %v, got %v", now.Add(Window), limited.ResetAt)
	}
}

func TestResetRestoresAllowance(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	l := New(NewMemoryStore(), WithClock(fixedClock(now)), WithRand(neverSweep))

	for i := 0; i < MaxAttempts; i++ {
		l.Record("user-1")
	}
	l.Reset("user-1")

	d := l.Check("user-1")
	if !d.Allowed || d.Remaining != MaxAttempts {
		t.Fatalf("expected full allowance after reset, got allowed=%v remaining=%d", d.Allowed, d.Remaining)
	}
}

func TestWindowExpiryRestoresAllowance(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	current := now
	l := New(NewMemoryStore(), WithClock(func() time.Time { return current }), WithRand(neverSweep))

	l.Record("user-1")

	current = now.Add(Window + time.Second)
	d := l.Check("user-1")
	if !d.Allowed || d.Remaining != MaxAttempts {
		t.Fatalf("expected window reset, got allowed=%v remaining=%d", d.Allowed, d.Remaining)
	}
}

func TestRecordAfterExpiryStartsNewWindow(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	current := now
	store := NewMemoryStore()
	l := New(store, WithClock(func() time.Time { return current }), WithRand(neverSweep))

	for i := 0; i < MaxAttempts; i++ {
		l.Record("user-1")
	}

	current = now.Add(Window + time.Minute)
	l.Record("user-1")

	entry, ok := store.Get("user-1")
	if !ok {
		t.Fatalf("expected entry")
	}
	if entry.Count != 1 {
		t.Fatalf("expected fresh window count 1, got %d", entry.Count)
	}
	if !entry.FirstAttempt.Equal(current) {
		t.Fatalf("expected firstAttempt %v, got %v", current, entry.FirstAttempt)
	}
}

func TestSweepEvictsExpiredEntries(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	current := now
	store := NewMemoryStore()
	l := New(store, WithClock(func() time.Time { return current }), WithRand(func() float64 { return 0.0 }))

	l.Record("stale-user")
	current = now.Add(Window + time.Second)

	l.Check("other-user")

	if _, ok := store.Get("stale-user"); ok {
		t.Fatalf("expected expired entry swept")
	}
}

func TestSweepSkippedAboveProbability(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	current := now
	store := NewMemoryStore()
	l := New(store, WithClock(func() time.Time { return current }), WithRand(neverSweep))

	l.Record("stale-user")
	current = now.Add(Window + time.Second)

	l.Check("other-user")

	if _, ok := store.Get("stale-user"); !ok {
		t.Fatalf("expected entry physically resident when sweep does not fire")
	}
	// Logically expired regardless of residency.
	if d := l.Check("stale-user"); !d.Allowed || d.Remaining != MaxAttempts {
		t.Fatalf("expected expired entry treated as absent")
	}
}

func TestWithLimitsOverride(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	l := New(NewMemoryStore(), WithClock(fixedClock(now)), WithRand(neverSweep), WithLimits(time.Minute, 2))

	l.Record("user-1")
	l.Record("user-1")
	if d := l.Check("user-1"); d.Allowed {
		t.Fatalf("expected denied with overridden budget of 2")
	}
}
