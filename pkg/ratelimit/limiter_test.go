package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterBurst(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter(3, 0.0, 0)

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "key")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i)
	}

	allowed, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.False(t, allowed, "request past capacity should be denied")
}

func TestMemoryLimiterKeysIndependent(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter(1, 0.0, 0)

	allowed, _ := limiter.Allow(ctx, "a")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "a")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow(ctx, "b")
	assert.True(t, allowed)
}

func TestMemoryLimiterRefill(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter(1, 100.0, 0)

	allowed, _ := limiter.Allow(ctx, "key")
	require.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "key")
	require.False(t, allowed)

	time.Sleep(20 * time.Millisecond)
	allowed, _ = limiter.Allow(ctx, "key")
	assert.True(t, allowed, "bucket should refill over time")
}

func TestMemoryLimiterReset(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter(1, 0.0, 0)

	limiter.Allow(ctx, "key")
	allowed, _ := limiter.Allow(ctx, "key")
	require.False(t, allowed)

	limiter.Reset("key")
	allowed, _ = limiter.Allow(ctx, "key")
	assert.True(t, allowed)
}

func TestMiddlewareBlocksWith429(t *testing.T) {
	limiter := NewMemoryLimiter(1, 0.0, 0)
	handler := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/devices/check", nil)
	req.RemoteAddr = "203.0.113.7:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"rateLimited":true`)
}

func TestMiddlewareKeysByForwardedFor(t *testing.T) {
	limiter := NewMemoryLimiter(1, 0.0, 0)
	handler := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest("POST", "/", nil)
	first.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest("POST", "/", nil)
	second.Header.Set("X-Forwarded-For", "198.51.100.2, 10.0.0.1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusOK, rec.Code, "different client IPs should not share a bucket")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.9:4321"
	assert.Equal(t, "192.0.2.9", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.5")
	assert.Equal(t, "198.51.100.5", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.1, 198.51.100.5")
	assert.Equal(t, "203.0.113.1", clientIP(req))
}
