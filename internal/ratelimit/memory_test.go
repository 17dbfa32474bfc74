package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source for driving the window in tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewMemoryLimiter(t *testing.T) {
	limiter := NewMemoryLimiter(100, 5*time.Minute)
	defer limiter.Close()

	assert.NotNil(t, limiter)
}

func TestMemoryLimiter_Allow_UnderLimit(t *testing.T) {
	limiter := NewMemoryLimiter(100, 5*time.Minute)
	defer limiter.Close()

	allowed, info := limiter.Allow("192.168.1.1")
	assert.True(t, allowed)
	assert.Equal(t, 100, info.Limit)
	assert.Equal(t, 99, info.Remaining)
	assert.False(t, info.ResetAt.IsZero())
}

func TestMemoryLimiter_Allow_Ceiling(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewMemoryLimiter(5, 5*time.Minute, WithClock(clock.Now))
	defer limiter.Close()

	key := "192.168.1.1"

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow(key)
		require.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, info := limiter.Allow(key)
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, Window, info.RetryAfter)
}

func TestMemoryLimiter_Allow_DifferentKeys(t *testing.T) {
	limiter := NewMemoryLimiter(2, 5*time.Minute)
	defer limiter.Close()

	for i := 0; i < 2; i++ {
		limiter.Allow("key1")
	}
	allowed1, _ := limiter.Allow("key1")
	assert.False(t, allowed1, "key1 should be denied")

	// key2 has its own window
	allowed2, _ := limiter.Allow("key2")
	assert.True(t, allowed2, "key2 should be allowed")
}

func TestMemoryLimiter_Allow_WindowSlides(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewMemoryLimiter(3, 5*time.Minute, WithClock(clock.Now))
	defer limiter.Close()

	key := "10.0.0.1"

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow(key)
		require.True(t, allowed)
	}
	allowed, _ := limiter.Allow(key)
	require.False(t, allowed)

	// Still inside the window: denied
	clock.Advance(30 * time.Second)
	allowed, _ = limiter.Allow(key)
	assert.False(t, allowed)

	// Once the earliest hits age out, capacity returns
	clock.Advance(31 * time.Second)
	allowed, info := limiter.Allow(key)
	assert.True(t, allowed)
	assert.Equal(t, 2, info.Remaining)
}

func TestMemoryLimiter_Allow_RejectedNotRecorded(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewMemoryLimiter(2, 5*time.Minute, WithClock(clock.Now))
	defer limiter.Close()

	key := "10.0.0.2"

	limiter.Allow(key)
	limiter.Allow(key)

	// Hammer the ceiling. None of these should extend the window.
	for i := 0; i < 50; i++ {
		clock.Advance(time.Second)
		allowed, _ := limiter.Allow(key)
		require.False(t, allowed)
	}

	// 61s after the first admitted hit both admitted entries have aged out,
	// despite the continuous stream of rejected attempts in between.
	clock.Advance(11 * time.Second)
	allowed, _ := limiter.Allow(key)
	assert.True(t, allowed)
}

func TestMemoryLimiter_Allow_RetryAfterFixed(t *testing.T) {
	limiter := NewMemoryLimiter(1, 5*time.Minute)
	defer limiter.Close()

	limiter.Allow("k")
	allowed, info := limiter.Allow("k")
	require.False(t, allowed)
	assert.Equal(t, 60*time.Second, info.RetryAfter)
}

func TestMemoryLimiter_Allow_Concurrent(t *testing.T) {
	limiter := NewMemoryLimiter(50, 5*time.Minute)
	defer limiter.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := limiter.Allow("shared"); allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Exactly the ceiling gets through, never more
	assert.Equal(t, 50, admitted)
}

func TestMemoryLimiter_Allow_ConcurrentDistinctKeys(t *testing.T) {
	limiter := NewMemoryLimiter(10, 5*time.Minute)
	defer limiter.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("client-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				allowed, _ := limiter.Allow(key)
				assert.True(t, allowed)
			}
		}()
	}
	wg.Wait()
}

func TestMemoryLimiter_EvictStale(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewMemoryLimiter(10, time.Hour, WithClock(clock.Now))
	defer limiter.Close()

	limiter.Allow("a")
	limiter.Allow("b")

	clock.Advance(2 * Window)
	limiter.evictStale()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.hits)
}

func TestMemoryLimiter_Close_Idempotent(t *testing.T) {
	limiter := NewMemoryLimiter(10, 5*time.Minute)

	require.NoError(t, limiter.Close())
	require.NoError(t, limiter.Close())
}
