package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter checks whether another attempt identified by key is allowed.
// Implementations return ErrTooManyRequests when the key is over its limit.
type RateLimiter interface {
	Allow(ctx context.Context, key string) error
}

// InProcessLimiter is a fixed-window rate limiter that tracks attempt
// counts per key in memory. It suits single-instance deployments.
type InProcessLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	counters  map[string]*counter
	lastPrune time.Time
}

type counter struct {
	count    int
	windowAt time.Time
}

// NewInProcessLimiter creates a limiter allowing limit attempts per key in
// each window. A limit of zero or less disables limiting.
func NewInProcessLimiter(limit int, window time.Duration) *InProcessLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &InProcessLimiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		counters: make(map[string]*counter),
	}
}

// Allow checks if the attempt is within the rate limit.
func (l *InProcessLimiter) Allow(_ context.Context, key string) error {
	if l.limit <= 0 {
		return nil // no limit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	c, ok := l.counters[key]
	if !ok || now.Sub(c.windowAt) >= l.window {
		// New window.
		l.counters[key] = &counter{count: 1, windowAt: now}
		return nil
	}

	c.count++
	if c.count > l.limit {
		return ErrTooManyRequests
	}

	return nil
}

// prune drops expired windows at most once per window.
// Must be called with the lock held.
func (l *InProcessLimiter) prune(now time.Time) {
	if now.Sub(l.lastPrune) < l.window {
		return
	}
	for key, c := range l.counters {
		if now.Sub(c.windowAt) >= l.window {
			delete(l.counters, key)
		}
	}
	l.lastPrune = now
}

// Len returns the number of tracked keys.
func (l *InProcessLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}
