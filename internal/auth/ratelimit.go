package auth

import (
	"sync"
	"time"
)

// RateLimiter is a sliding-window in-memory limiter keyed by caller
// identity (typically the client IP), used to throttle registration.
type RateLimiter struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	requests  map[string][]time.Time
	now       func() time.Time
	lastSweep time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:      max,
		window:   window,
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow records a request for key and reports whether it fit in the window.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweepLocked(now)
	}
	rl.pruneLocked(key)
	if len(rl.requests[key]) >= rl.max {
		return false
	}
	rl.requests[key] = append(rl.requests[key], now)
	return true
}

// Remaining reports how many requests key has left in the current window.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.pruneLocked(key)
	if n := rl.max - len(rl.requests[key]); n > 0 {
		return n
	}
	return 0
}

// Reset clears all tracking.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.requests = make(map[string][]time.Time)
}

// sweepLocked drops every key whose requests have all aged out of the
// window. pruneLocked only trims the key being touched, so without the
// sweep a stream of one-off keys would grow the map without bound.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-rl.window)
	for key, times := range rl.requests {
		kept := times[:0]
		for _, ts := range times {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = kept
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) pruneLocked(key string) {
	cutoff := rl.now().Add(-rl.window)
	kept := rl.requests[key][:0]
	for _, ts := range rl.requests[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(rl.requests, key)
		return
	}
	rl.requests[key] = kept
}
