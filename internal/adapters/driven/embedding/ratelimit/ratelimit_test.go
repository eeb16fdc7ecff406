package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	l := New(Config{})
	assert.InDelta(t, DefaultRequestsPerSecond, float64(l.limiter.Limit()), 0.0001)
	assert.Equal(t, DefaultBurstSize, l.limiter.Burst())
}

func TestAllow_RespectsBurst(t *testing.T) {
	l := New(Config{RequestsPerSecond: 0.001, BurstSize: 2})

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestBackoff_BlocksAllow(t *testing.T) {
	l := New(Config{RequestsPerSecond: 100, BurstSize: 10})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Backoff(10 * time.Second)
	assert.False(t, l.Allow())

	now = now.Add(11 * time.Second)
	assert.True(t, l.Allow())
}

func TestBackoff_KeepsLongerWindow(t *testing.T) {
	l := New(Config{})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Backoff(time.Minute)
	l.Backoff(time.Second)
	assert.Equal(t, now.Add(time.Minute), l.retryAt)

	l.Backoff(0)
	assert.Equal(t, now.Add(time.Minute), l.retryAt)
}

func TestWait_CancelledDuringBackoff(t *testing.T) {
	l := New(Config{})
	l.Backoff(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWait_PassesWithoutBackoff(t *testing.T) {
	l := New(Config{})
	require.NoError(t, l.Wait(context.Background()))
}

func TestRetryAfter(t *testing.T) {
	h := http.Header{}
	assert.Zero(t, RetryAfter(h))

	h.Set("Retry-After", "7")
	assert.Equal(t, 7*time.Second, RetryAfter(h))

	h.Set("Retry-After", "Wed, 21 Oct 2015 07:28:00 GMT")
	assert.Zero(t, RetryAfter(h))
}
