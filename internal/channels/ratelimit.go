package channels

import (
	"sync"
	"time"
)

const (
	// maxTrackedSenders caps the number of tracked senders to prevent
	// memory exhaustion from rotating accounts.
	maxTrackedSenders = 4096

	// floodWindow is the sliding window duration for rate counting.
	floodWindow = 60 * time.Second

	// floodMaxHits is the max inbound updates per sender within a window.
	floodMaxHits = 30
)

type floodEntry struct {
	windowStart time.Time
	count       int
}

// FloodLimiter throttles inbound updates per sender so one spammy account
// cannot starve the bot. Safe for concurrent use.
type FloodLimiter struct {
	mu      sync.Mutex
	entries map[int64]*floodEntry
}

// NewFloodLimiter creates a bounded per-sender flood limiter.
func NewFloodLimiter() *FloodLimiter {
	return &FloodLimiter{entries: make(map[int64]*floodEntry)}
}

// Allow returns true if the sender is within rate limits.
// Automatically prunes stale entries and enforces a hard cap on tracked
// senders.
func (r *FloodLimiter) Allow(senderID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	// Prune stale entries when approaching the cap
	if len(r.entries) >= maxTrackedSenders {
		for k, e := range r.entries {
			if now.Sub(e.windowStart) >= floodWindow {
				delete(r.entries, k)
			}
		}
		// Hard eviction if still at cap (FIFO-ish via map iteration)
		for len(r.entries) >= maxTrackedSenders {
			for k := range r.entries {
				delete(r.entries, k)
				break
			}
		}
	}

	e, ok := r.entries[senderID]
	if !ok || now.Sub(e.windowStart) >= floodWindow {
		r.entries[senderID] = &floodEntry{windowStart: now, count: 1}
		return true
	}

	e.count++
	return e.count <= floodMaxHits
}
