package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "medibook:rl:"

// RedisLimiter implements a fixed window: the hit that finds the key without
// a TTL sets it to the window and later hits only increment.
type RedisLimiter struct {
	rdb redis.UniversalClient
}

func NewRedisLimiter(rdb redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, rule Rule) (Decision, error) {
	k := keyPrefix + key

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		ttl = p.TTL(ctx, k)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// A key without a TTL is a new window, or one whose EXPIRE was lost.
	retryAfter := ttl.Val()
	if retryAfter < 0 {
		if err := l.rdb.Expire(ctx, k, rule.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		retryAfter = rule.Window
	}

	if incr.Val() <= int64(rule.Limit) {
		return Decision{Allowed: true}, nil
	}
	return Decision{RetryAfter: retryAfter}, nil
}

// Ping checks connectivity at startup.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	if err := l.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
