package ratelimiter

import (
	"sync"
	"time"
)

// FixedWindowCounter implements RateLimiter by counting requests inside a
// fixed time window and resetting the count when the window rolls over.
type FixedWindowCounter struct {
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
	mutex       sync.Mutex
}

// NewFixedWindowCounter creates a counter allowing limit requests per window.
func NewFixedWindowCounter(limit int, window time.Duration) *FixedWindowCounter {
	return &FixedWindowCounter{
		limit:       limit,
		window:      window,
		windowStart: time.Now(),
	}
}

// Allow reports whether the current window still has room, starting a fresh
// window first if the previous one has expired.
func (fwc *FixedWindowCounter) Allow() bool {
	fwc.mutex.Lock()
	defer fwc.mutex.Unlock()

	now := time.Now()
	if now.After(fwc.windowStart.Add(fwc.window)) {
		fwc.windowStart = now
		fwc.count = 0
	}

	if fwc.count < fwc.limit {
		fwc.count++
		return true
	}
	return false
}
