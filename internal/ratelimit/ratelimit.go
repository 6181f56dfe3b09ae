package ratelimit

import (
	"math/rand"
	"time"
)

const (
	// Window is the rolling span over which attempts are counted.
	Window = 15 * time.Minute
	// MaxAttempts is the number of attempts allowed per actor per window.
	MaxAttempts = 5

	sweepProbability = 0.1
)

// Entry tracks attempts for one actor inside the current window.
type Entry struct {
	Count        int
	FirstAttempt time.Time
}

// Store holds rate limit entries keyed by actor ID. Implementations must be
// safe for concurrent use; a shared external store can replace the in-memory
// one when the limiter must be exact across instances.
type Store interface {
	Get(actorID string) (Entry, bool)
	Put(actorID string, e Entry)
	Delete(actorID string)
	Keys() []string
}

// Decision is the outcome of a read-only limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter bounds attempts of a sensitive action per actor within a rolling
// window. Expired entries are treated as absent even before they are swept.
type Limiter struct {
	store  Store
	window time.Duration
	max    int
	now    func() time.Time
	rand   func() float64
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock injects a clock, used by tests to advance time.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithRand injects the random source driving the opportunistic sweep.
func WithRand(fn func() float64) Option {
	return func(l *Limiter) {
		if fn != nil {
			l.rand = fn
		}
	}
}

// WithLimits overrides the default window and attempt budget.
func WithLimits(window time.Duration, maxAttempts int) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
		if maxAttempts > 0 {
			l.max = maxAttempts
		}
	}
}

// New constructs a Limiter over the given store. A nil store gets the
// in-memory implementation.
func New(store Store, opts ...Option) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	l := &Limiter{
		store:  store,
		window: Window,
		max:    MaxAttempts,
		now:    time.Now,
		rand:   rand.Float64,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check reports whether the actor may attempt the action. It never mutates
// the entry; a fresh window is only materialized by Record.
func (l *Limiter) Check(actorID string) Decision {
	now := l.now()

	if l.rand() < sweepProbability {
		l.sweep(now)
	}

	entry, ok := l.store.Get(actorID)
	if !ok || l.expired(entry, now) {
		return Decision{
			Allowed:   true,
			Remaining: l.max,
			ResetAt:   now.Add(l.window),
		}
	}

	remaining := l.max - entry.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   entry.Count < l.max,
		Remaining: remaining,
		ResetAt:   entry.FirstAttempt.Add(l.window),
	}
}

// Record counts one attempt, starting a new window if the previous one
// expired or no entry exists.
func (l *Limiter) Record(actorID string) {
	now := l.now()
	entry, ok := l.store.Get(actorID)
	if !ok || l.expired(entry, now) {
		l.store.Put(actorID, Entry{Count: 1, FirstAttempt: now})
		return
	}
	entry.Count++
	l.store.Put(actorID, entry)
}

// Guard checks the limit and records the attempt in one call. When the
// actor is over budget it returns a *RateLimitedError carrying the reset
// time; callers translate that into a 429.
func (l *Limiter) Guard(actorID string) error {
	decision := l.Check(actorID)
	if !decision.Allowed {
		return &RateLimitedError{
			ResetAt:          decision.ResetAt,
			MinutesRemaining: minutesUntil(decision.ResetAt, l.now()),
		}
	}
	l.Record(actorID)
	return nil
}

// Reset clears the actor's entry. Called after the guarded action succeeds
// so a legitimate success restores the full allowance.
func (l *Limiter) Reset(actorID string) {
	l.store.Delete(actorID)
}

func (l *Limiter) expired(e Entry, now time.Time) bool {
	return now.Sub(e.FirstAttempt) > l.window
}

// sweep is a lazy TTL approximation: expired entries may stay resident for
// several calls, but are always treated as expired by Check and Record.
func (l *Limiter) sweep(now time.Time) {
	for _, key := range l.store.Keys() {
		if entry, ok := l.store.Get(key); ok && l.expired(entry, now) {
			l.store.Delete(key)
		}
	}
}

func minutesUntil(t, now time.Time) int {
	d := t.Sub(now)
	if d <= 0 {
		return 1
	}
	minutes := int((d + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
