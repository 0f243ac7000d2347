package pkg

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a fixed-window counter per key, stored in Redis.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisRateLimiter returns nil when client is nil or limit is not positive,
// which callers treat as "no limit".
func NewRedisRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	if client == nil || limit <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisRateLimiter{client: client, prefix: prefix, limit: int64(limit), window: window}
}

// RateDecision is the outcome of one Allow call.
type RateDecision struct {
	Allowed    bool
	Count      int64
	Limit      int64
	RetryAfter time.Duration
}

// Allow counts one hit for key. The key is hashed before it reaches Redis.
// INCR and EXPIRE NX go out in one transaction that outlives a cancelled
// request, so a counter never stays without a TTL.
func (slf *RedisRateLimiter) Allow(ctx context.Context, key string) (RateDecision, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	redisKey := slf.redisKey(key)
	pipe := slf.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, slf.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateDecision{}, fmt.Errorf("rate limit incr: %w", err)
	}
	count := incr.Val()

	decision := RateDecision{Allowed: count <= slf.limit, Count: count, Limit: slf.limit}
	if !decision.Allowed {
		ttl, err := slf.client.TTL(ctx, redisKey).Result()
		if err != nil && !IsRedisNil(err) {
			return RateDecision{}, fmt.Errorf("rate limit ttl: %w", err)
		}
		if ttl == -1 {
			if err := slf.client.Expire(ctx, redisKey, slf.window).Err(); err != nil {
				return RateDecision{}, fmt.Errorf("rate limit expire: %w", err)
			}
		}
		if ttl <= 0 {
			ttl = slf.window
		}
		decision.RetryAfter = ttl
	}
	return decision, nil
}

func (slf *RedisRateLimiter) redisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s:%s", slf.prefix, hex.EncodeToString(sum[:16]))
}

// IsRedisNil returns true if the error is a redis key-not-found error.
func IsRedisNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
