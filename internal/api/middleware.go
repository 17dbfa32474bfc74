package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"authd/internal/auth"
	"authd/internal/models"
)

type contextKey string

// identityKey is the request context key holding the resolved account.
const identityKey contextKey = "identity"

// GetIdentity returns the account resolved by the auth middleware, or nil on
// unauthenticated routes.
func GetIdentity(r *http.Request) *models.User {
	if user, ok := r.Context().Value(identityKey).(*models.User); ok {
		return user
	}
	return nil
}

// authMiddleware resolves the bearer token on every request and stores the
// account in the request context. Requests without a valid token are refused;
// the response never says what was wrong with the credential, but the
// internal reason is logged at WARN and counted per reason.
func (h *Handlers) authMiddleware(resolver *auth.Resolver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				h.rejectRequest(r, "missing_token")
				writeMiddlewareError(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Authorization required")
				return
			}

			user, err := resolver.Resolve(r.Context(), raw)
			if err != nil {
				var tokenErr *auth.TokenError
				switch {
				case errors.As(err, &tokenErr):
					h.rejectRequest(r, tokenErr.Reason)
					writeMiddlewareError(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Invalid credentials")
				case errors.Is(err, auth.ErrUnauthenticated):
					h.rejectRequest(r, "unauthenticated")
					writeMiddlewareError(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Invalid credentials")
				case errors.Is(err, auth.ErrForbidden):
					h.rejectRequest(r, "deactivated")
					writeMiddlewareError(w, http.StatusForbidden, models.ErrorCodeForbidden, "Account is deactivated")
				default:
					slog.Error("Identity resolution failed", "error", err)
					writeMiddlewareError(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
				}
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rejectRequest records a refused credential. The reason stays internal.
func (h *Handlers) rejectRequest(r *http.Request, reason string) {
	slog.Warn("Rejected credential",
		"reason", reason,
		"method", r.Method,
		"path", r.URL.Path)
	h.recordAuthFailure(r, reason)
}

// RequireRole creates middleware that passes only accounts the gate admits.
// It must run after authMiddleware.
func (h *Handlers) RequireRole(gate *auth.RoleGate) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetIdentity(r)
			if user == nil {
				h.rejectRequest(r, "missing_token")
				writeMiddlewareError(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Authorization required")
				return
			}
			if err := gate.Check(user); err != nil {
				h.rejectRequest(r, "forbidden")
				writeMiddlewareError(w, http.StatusForbidden, models.ErrorCodeForbidden, "Insufficient permissions for this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := header[len(prefix):]
	return token, token != ""
}

func writeMiddlewareError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.NewErrorResponse(message, errorCode))
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware handles panics
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic recovered", "error", err, "path", r.URL.Path)
				writeMiddlewareError(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
