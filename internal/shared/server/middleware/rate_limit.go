package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"synchro-backend/internal/ratelimit"
	"synchro-backend/internal/shared/server/respond"
)

// RateLimitConfig binds a sliding-window limiter to a predicate selecting
// the routes it guards.
type RateLimitConfig struct {
	Limiter *ratelimit.Limiter
	// AppliesTo selects the requests to guard; nil guards everything.
	AppliesTo func(*gin.Context) bool
}

// RateLimit enforces the attempt budget per authenticated principal (or
// client IP) on the selected routes, answering 429 with Retry-After when
// the budget is exhausted.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.New(nil)
	}
	return func(c *gin.Context) {
		if cfg.AppliesTo != nil && !cfg.AppliesTo(c) {
			c.Next()
			return
		}

		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = strings.TrimSpace(c.ClientIP())
		}

		if err := limiter.Guard(principal); err != nil {
			AbortRateLimited(c, err)
			return
		}
		c.Next()
	}
}

// AbortRateLimited writes the standardized 429 response for a
// *ratelimit.RateLimitedError; any other error becomes a 500.
func AbortRateLimited(c *gin.Context, err error) {
	var limited *ratelimit.RateLimitedError
	if !errors.As(err, &limited) {
		respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		return
	}

	retryAfter := limited.RetryAfter(time.Now())
	retryAfterSeconds := int(retryAfter / time.Second)
	if retryAfterSeconds <= 0 {
		retryAfterSeconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	respond.Error(c, http.StatusTooManyRequests, "rate_limited", limited.Error(), gin.H{
		"retryAfterMs":     int(retryAfter / time.Millisecond),
		"minutesRemaining": limited.MinutesRemaining,
	})
}
