// Package ratelimit throttles calls to remote embedding providers.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Defaults used when a provider is configured without limits.
const (
	DefaultRequestsPerSecond = 10.0
	DefaultBurstSize         = 10
	DefaultBackoff           = 30 * time.Second
)

// Config holds rate limiting configuration for one provider.
type Config struct {
	// RequestsPerSecond is the sustained rate limit. <= 0 uses the default.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size. <= 0 uses the default.
	BurstSize int
}

// Limiter is a token bucket with a backoff window set by 429 responses.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// New creates a limiter.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		now:     time.Now,
	}
}

// Wait blocks until a request may be sent, honouring any backoff window.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if wait := retryAt.Sub(l.now()); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may be sent right now without blocking.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if l.now().Before(retryAt) {
		return false
	}
	return l.limiter.Allow()
}

// Backoff opens a backoff window. Call it on a 429 response.
// A non-positive delay uses DefaultBackoff.
func (l *Limiter) Backoff(delay time.Duration) {
	if delay <= 0 {
		delay = DefaultBackoff
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if at := l.now().Add(delay); at.After(l.retryAt) {
		l.retryAt = at
	}
}

// RetryAfter reads a Retry-After header given in seconds.
// It returns 0 when the header is missing or not a number.
func RetryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
