package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a keyed request may proceed. Implementations are
// safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// tokenBucket tracks one key's remaining budget.
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

func (b *tokenBucket) take(capacity int, refillRate float64, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(float64(capacity), b.tokens+elapsed*refillRate)
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}

// MemoryLimiter is an in-process token bucket limiter, one bucket per key.
// Suitable for single-instance deployments; multi-instance deployments
// should use the Redis limiter so limits hold across replicas.
type MemoryLimiter struct {
	buckets    map[string]*tokenBucket
	capacity   int
	refillRate float64
	ttl        time.Duration
	mu         sync.Mutex
}

// NewMemoryLimiter creates a limiter allowing bursts of capacity requests
// refilled at refillRate per second. Buckets idle longer than ttl are
// dropped; a zero ttl keeps them forever.
func NewMemoryLimiter(capacity int, refillRate float64, ttl time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		buckets:    make(map[string]*tokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
		ttl:        ttl,
	}
	if ttl > 0 {
		go l.cleanup()
	}
	return l
}

// Allow reports whether the request keyed by key may proceed.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = &tokenBucket{tokens: float64(l.capacity), lastRefill: now}
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.take(l.capacity, l.refillRate, now), nil
}

// Reset restores a key's full budget.
func (l *MemoryLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

func (l *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		l.mu.Lock()
		for key, bucket := range l.buckets {
			bucket.mu.Lock()
			idle := now.Sub(bucket.lastRefill)
			bucket.mu.Unlock()
			if idle > l.ttl {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}
