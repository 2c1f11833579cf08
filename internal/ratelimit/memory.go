package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const pruneEvery = 1024

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
	window   time.Duration
}

// MemoryLimiter keeps one token bucket per key, refilled at Limit per
// Window with a burst of Limit.
type MemoryLimiter struct {
	mu    sync.Mutex
	keys  map[string]*entry
	calls int
	now   func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{keys: make(map[string]*entry), now: time.Now}
}

// WithClock replaces time.Now.
func (m *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	m.now = now
	return m
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, rule Rule) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.calls++
	if m.calls%pruneEvery == 0 {
		m.prune(now)
	}

	e, ok := m.keys[key]
	if !ok {
		every := rule.Window / time.Duration(rule.Limit)
		e = &entry{lim: rate.NewLimiter(rate.Every(every), rule.Limit), window: rule.Window}
		m.keys[key] = e
	}
	e.lastSeen = now

	r := e.lim.ReserveN(now, 1)
	if !r.OK() {
		return Decision{RetryAfter: rule.Window}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{RetryAfter: delay}, nil
	}
	return Decision{Allowed: true}, nil
}

// prune drops buckets idle for longer than their window; such a bucket is
// full again and equivalent to a fresh one.
func (m *MemoryLimiter) prune(now time.Time) {
	for k, e := range m.keys {
		if now.Sub(e.lastSeen) > e.window {
			delete(m.keys, k)
		}
	}
}
