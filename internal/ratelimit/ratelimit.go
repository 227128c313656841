package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultMax is the number of engagements allowed per conversation
	// within the window when no explicit cap is configured.
	DefaultMax = 3

	// defaultWindow is the sliding window duration.
	defaultWindow = 10 * time.Second
)

// Limiter enforces a per-conversation sliding-window rate limit.
//
// It holds the engagement timestamps for each conversation within the
// current window and prunes stale entries on every Allow call, keeping
// memory bounded to O(max) entries per active conversation.
//
// Limiter is safe for concurrent use from multiple goroutines.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	hits   map[string][]time.Time // conversation id → timestamps in window
	now    func() time.Time
}

// New returns a Limiter that allows at most max engagements per
// conversation within window. Non-positive arguments select the defaults.
func New(max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = DefaultMax
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &Limiter{
		max:    max,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow reports whether the conversation may engage the model now, and
// records the attempt when it may. A rejected call records nothing.
func (l *Limiter) Allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	// Prune timestamps that have fallen outside the window.
	existing := l.hits[id]
	valid := existing[:0] // reuse backing array
	for _, t := range existing {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= l.max {
		l.hits[id] = valid
		return false
	}

	l.hits[id] = append(valid, now)
	return true
}
