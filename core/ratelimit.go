package core

import (
	"sync"
	"time"
)

type (
	// RateDecision is the outcome of a rate limit check.
	RateDecision struct {
		Allowed    bool
		RetryAfter time.Duration
	}

	// RateLimiter caps the number of hits per key within a rolling window.
	// Implementations must be safe for concurrent use. A production
	// deployment with more than one instance needs a shared keyed store
	// behind this interface; the bundled in-memory limiter only protects a
	// single process.
	RateLimiter interface {
		Check(key string, max int, window time.Duration) RateDecision
	}
)

type (
	memoryRateLimiter struct {
		mu      sync.Mutex
		buckets map[string]*rateBucket
		nowFunc func() time.Time
	}

	rateBucket struct {
		count       int
		windowStart time.Time
	}
)

var _ RateLimiter = (*memoryRateLimiter)(nil)

func NewMemoryRateLimiter() *memoryRateLimiter {
	return &memoryRateLimiter{
		buckets: make(map[string]*rateBucket),
		nowFunc: time.Now,
	}
}

func (rl *memoryRateLimiter) Check(key string, max int, window time.Duration) RateDecision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.nowFunc()
	rl.prune(now, window)

	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.windowStart) >= window {
		rl.buckets[key] = &rateBucket{count: 1, windowStart: now}
		return RateDecision{Allowed: true}
	}

	b.count++
	if b.count > max {
		return RateDecision{RetryAfter: b.windowStart.Add(window).Sub(now)}
	}
	return RateDecision{Allowed: true}
}

// prune drops expired buckets so the map does not grow unbounded.
func (rl *memoryRateLimiter) prune(now time.Time, window time.Duration) {
	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) >= window {
			delete(rl.buckets, key)
		}
	}
}
