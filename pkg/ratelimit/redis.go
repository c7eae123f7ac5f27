package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements a sliding window limiter backed by Redis sorted
// sets, so the limit holds across service replicas. Each attempt is stored
// as a member scored by its timestamp; Allow counts members inside the
// trailing window and trims older ones.
type RedisLimiter struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
}

// NewRedisLimiter creates a limiter allowing limit requests per key within
// the trailing window.
func NewRedisLimiter(client *redis.Client, keyPrefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
	}
}

// Allow records the attempt and reports whether it fits the window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	redisKey := l.keyPrefix + ":" + key
	windowStart := fmt.Sprintf("%d", now.Add(-l.window).UnixNano())

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", windowStart)
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to count attempts: %w", err)
	}

	if countCmd.Val() >= int64(l.limit) {
		return false, nil
	}

	member := redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()}
	pipe = l.client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, member)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to record attempt: %w", err)
	}
	return true, nil
}
