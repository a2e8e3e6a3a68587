package tools

import (
	"fmt"
	"sync"
	"time"
)

// ToolRateLimiter caps tool executions per session with a sliding window.
// A runaway tool-calling loop burns provider quota fast; the limiter cuts
// it off per session rather than globally.
type ToolRateLimiter struct {
	mu       sync.Mutex
	windows  map[string][]time.Time
	maxPerHr int
	window   time.Duration
}

// NewToolRateLimiter creates a rate limiter with the given max actions per hour.
// Pass 0 to disable rate limiting.
func NewToolRateLimiter(maxPerHour int) *ToolRateLimiter {
	if maxPerHour <= 0 {
		return nil
	}
	return &ToolRateLimiter{
		windows:  make(map[string][]time.Time),
		maxPerHr: maxPerHour,
		window:   time.Hour,
	}
}

// Allow records one execution for key, or returns an error once the window
// is full. Expired timestamps are pruned on the way in, so the window slides
// without a background ticker.
func (rl *ToolRateLimiter) Allow(key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entries := pruneExpired(rl.windows[key], now.Add(-rl.window))

	if len(entries) >= rl.maxPerHr {
		return fmt.Errorf("tool rate limit exceeded: %d executions/hour for session %s", rl.maxPerHr, key)
	}

	rl.windows[key] = append(entries, now)
	return nil
}

// Cleanup drops sessions whose window has fully expired. Allow only prunes
// keys it touches, so idle sessions need this sweep to release memory.
func (rl *ToolRateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.window)
	for key, entries := range rl.windows {
		kept := pruneExpired(entries, cutoff)
		if len(kept) == 0 {
			delete(rl.windows, key)
		} else {
			rl.windows[key] = kept
		}
	}
}

func pruneExpired(entries []time.Time, cutoff time.Time) []time.Time {
	start := 0
	for start < len(entries) && entries[start].Before(cutoff) {
		start++
	}
	return entries[start:]
}
