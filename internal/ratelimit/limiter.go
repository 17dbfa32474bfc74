// Package ratelimit provides per-client-address admission control using a
// 60-second sliding window of request timestamps. It ships an in-memory
// implementation for single-process deployments, a PostgreSQL-backed one for
// multi-process deployments, and HTTP middleware that sets standard rate
// limit response headers.
package ratelimit

import "time"

// Window is the trailing interval over which requests are counted.
const Window = time.Minute

// Limiter defines the admission contract. Implementations must be safe for
// concurrent use.
type Limiter interface {
	// Allow checks whether a request identified by key should be admitted.
	// Admitted requests are recorded; rejected ones are not, so a client
	// hammering a closed window does not push its reset further out.
	Allow(key string) (allowed bool, info Info)

	// Close stops background work and releases resources.
	Close() error
}

// Info contains rate limit state for populating response headers.
type Info struct {
	Limit      int           // Maximum requests per window
	Remaining  int           // Admissions left in the current window
	ResetAt    time.Time     // When the oldest recorded request leaves the window
	RetryAfter time.Duration // How long to wait (meaningful only when denied)
}
