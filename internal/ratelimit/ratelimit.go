// Package ratelimit implements an in-memory sliding-window attempt limiter
// keyed by an arbitrary string. State is process-local and resets on restart;
// the limiter throttles credential attempts, it is not a security control.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks attempts per key inside a sliding window.
type Limiter struct {
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	attempts    map[string][]time.Time
	now         func() time.Time
}

// New constructs a limiter allowing maxAttempts per window for each key.
func New(maxAttempts int, window time.Duration) *Limiter {
	return &Limiter{
		maxAttempts: maxAttempts,
		window:      window,
		attempts:    make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Allow prunes attempts older than the window for key, then either records a
// new attempt and returns true, or returns false without recording when the
// window is full. The check and the record are a single critical section so
// near-simultaneous callers cannot both pass on the last slot.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := l.prune(key, now)
	if len(kept) >= l.maxAttempts {
		return false
	}
	l.attempts[key] = append(kept, now)
	return true
}

// RetryAfter returns the time until the oldest in-window attempt for key
// expires, or zero when the key is not currently blocked.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := l.prune(key, now)
	l.attempts[key] = kept
	if len(kept) < l.maxAttempts {
		return 0
	}
	return kept[0].Add(l.window).Sub(now)
}

// prune drops expired timestamps for key. Caller holds the lock.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	ts := l.attempts[key]
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
