package ratelimit

import (
	"sync"
	"time"
)

// MemoryLimiter is an in-memory sliding-window limiter. Each key maps to the
// ordered timestamps of its admitted requests within the trailing window;
// stale timestamps are pruned lazily on every Allow. A single mutex guards
// the whole table, which is sufficient at the expected request rates and
// rules out two concurrent admits both observing a stale under-ceiling count.
// A background goroutine evicts keys that have gone idle.
type MemoryLimiter struct {
	limit           int
	cleanupInterval time.Duration
	now             func() time.Time

	mu     sync.Mutex
	hits   map[string][]time.Time
	done   chan struct{}
	closed bool
}

// Option configures optional MemoryLimiter behavior.
type Option func(*MemoryLimiter)

// WithClock replaces the limiter's time source. Used by tests to move the
// window without sleeping.
func WithClock(now func() time.Time) Option {
	return func(m *MemoryLimiter) {
		m.now = now
	}
}

// NewMemoryLimiter creates a sliding-window limiter admitting at most
// requestsPerMinute requests per key per trailing minute. It starts a
// background goroutine that evicts idle keys every cleanupInterval.
func NewMemoryLimiter(requestsPerMinute int, cleanupInterval time.Duration, opts ...Option) *MemoryLimiter {
	m := &MemoryLimiter{
		limit:           requestsPerMinute,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		hits:            make(map[string][]time.Time),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.cleanup()
	return m
}

// Allow checks whether a request from the given key should be admitted.
func (m *MemoryLimiter) Allow(key string) (bool, Info) {
	now := m.now()
	cutoff := now.Add(-Window)

	m.mu.Lock()
	defer m.mu.Unlock()

	window := pruneBefore(m.hits[key], cutoff)

	info := Info{
		Limit:     m.limit,
		Remaining: m.limit - len(window),
	}

	if len(window) >= m.limit {
		m.hits[key] = window
		info.Remaining = 0
		info.ResetAt = window[0].Add(Window)
		info.RetryAfter = Window
		return false, info
	}

	window = append(window, now)
	m.hits[key] = window

	info.Remaining = m.limit - len(window)
	info.ResetAt = window[0].Add(Window)
	return true, info
}

// pruneBefore drops timestamps older than cutoff, preserving order.
func pruneBefore(window []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(window) && !window[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return window
	}
	return append(window[:0:0], window[idx:]...)
}

// Close stops the background cleanup goroutine.
func (m *MemoryLimiter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// cleanup periodically evicts keys whose entire window has gone stale,
// bounding table growth under address churn.
func (m *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictStale()
		}
	}
}

func (m *MemoryLimiter) evictStale() {
	cutoff := m.now().Add(-Window)
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, window := range m.hits {
		if len(window) == 0 || !window[len(window)-1].After(cutoff) {
			delete(m.hits, key)
		}
	}
}
