package ratelimit

import (
	"fmt"
	"time"
)

// RateLimitedError signals that an actor exhausted the attempt budget for
// the current window.
type RateLimitedError struct {
	ResetAt          time.Time
	MinutesRemaining int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %d minute(s)", e.MinutesRemaining)
}

// RetryAfter returns the duration until the window resets, never negative.
func (e *RateLimitedError) RetryAfter(now time.Time) time.Duration {
	d := e.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
