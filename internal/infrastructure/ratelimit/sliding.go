// Package ratelimit implements per-key sliding-window admission control.
// Windows live only in process memory; entries expire by time and are pruned
// lazily on each check.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewSlidingWindow builds a limiter that admits at most limit requests per
// key within the trailing window. A non-positive window is a configuration
// error; limit 0 rejects everything.
func NewSlidingWindow(limit int, window time.Duration) (*SlidingWindow, error) {
	if window <= 0 {
		return nil, errors.New("ratelimit: window must be positive")
	}
	if limit < 0 {
		return nil, errors.New("ratelimit: limit must not be negative")
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}, nil
}

// Allow prunes expired entries for key and admits the call if the remaining
// count is under the limit, recording the current instant. The
// prune-then-record step is atomic with respect to concurrent callers.
func (l *SlidingWindow) Allow(key string) bool {
	now := l.now()
	windowStart := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.hits[key][:0:0]
	for _, t := range l.hits[key] {
		if !t.Before(windowStart) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= l.limit {
		l.hits[key] = recent
		return false
	}
	l.hits[key] = append(recent, now)
	return true
}
