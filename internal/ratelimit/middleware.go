package ratelimit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"authd/internal/models"
)

// Middleware returns HTTP middleware that enforces a per-client-address rate
// limit on every request passing through it. Requests rejected at the ceiling
// receive a 429 with a Retry-After header and a retry_after field in the body;
// they are not counted against the window. The optional onReject callback is
// invoked with the client key on each rejection, used to feed metrics (pass
// nil to skip).
func Middleware(limiter Limiter, onReject func(key string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := getClientIP(r)

			allowed, info := limiter.Allow(key)

			// Always set rate limit headers
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
			if !info.ResetAt.IsZero() {
				w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetAt.Unix()))
			}

			if !allowed {
				retryAfterSecs := int(info.RetryAfter.Seconds())
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				errorResp := models.NewErrorResponse("Rate limit exceeded", models.ErrorCodeRateLimited)
				errorResp.RetryAfter = retryAfterSecs
				json.NewEncoder(w).Encode(errorResp)

				slog.Warn("Rate limit exceeded",
					"client", key,
					"path", r.URL.Path,
					"retry_after", retryAfterSecs,
				)
				if onReject != nil {
					onReject(key)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client address, checking proxy headers first so
// deployments behind a load balancer limit real clients rather than the
// balancer itself.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if ip := strings.TrimSpace(ips[0]); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
