// Package ratelimit counts requests per key against a Rule. The in-process
// limiter serves a single instance; the Redis limiter is shared by every
// instance pointed at the same server.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps backend failures. Callers may choose to fail open.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Rule admits Limit requests per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one Allow call. RetryAfter is set when the
// request was refused.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (Decision, error)
}
