// Package api exposes the identity service over HTTP: registration, login,
// the authenticated account surface, and the admin endpoints, glued together
// by middleware that resolves bearer tokens into account records.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"authd/internal/auth"
	"authd/internal/models"
	"authd/internal/observability"
	"authd/internal/storage"
)

// Handlers contains the HTTP handlers for the authd API.
type Handlers struct {
	service *auth.Service
	storage storage.Storage
	version string
	metrics *observability.AuthMetrics
}

// NewHandlers creates a handlers instance.
func NewHandlers(service *auth.Service, store storage.Storage, version string) *Handlers {
	return &Handlers{
		service: service,
		storage: store,
		version: version,
	}
}

// WithMetrics attaches auth instruments to the handlers. Without it the
// handlers serve requests unrecorded.
func (h *Handlers) WithMetrics(metrics *observability.AuthMetrics) *Handlers {
	h.metrics = metrics
	return h
}

// HealthCheck reports service and component health.
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = h.version
	response.AddComponent("api", models.StatusHealthy, "API is operational")

	status := http.StatusOK
	if err := h.storage.Ping(r.Context()); err != nil {
		response.Status = models.StatusDegraded
		response.AddComponent("storage", models.StatusUnhealthy, err.Error())
		status = http.StatusServiceUnavailable
	} else {
		response.AddComponent("storage", models.StatusHealthy, "Storage is operational")
	}

	h.writeJSONResponse(w, status, response)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing more to send the client.
		slog.Error("Error encoding JSON response", "error", err)
	}
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	h.writeJSONResponse(w, statusCode, models.NewErrorResponse(message, errorCode))
}

// writeAuthError maps an auth layer error onto the wire. Credential failures
// stay deliberately vague; only errors the service cannot attribute to the
// caller surface as 500s.
func (h *Handlers) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidCredentials):
		h.recordAuthFailure(r, "unauthenticated")
		h.writeErrorResponse(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrForbidden):
		h.recordAuthFailure(r, "forbidden")
		h.writeErrorResponse(w, http.StatusForbidden, models.ErrorCodeForbidden, "Access denied")
	case errors.Is(err, auth.ErrEmailTaken):
		h.writeErrorResponse(w, http.StatusConflict, models.ErrorCodeConflict, "Email already registered")
	case errors.Is(err, auth.ErrNotEligible):
		h.writeErrorResponse(w, http.StatusForbidden, models.ErrorCodeForbidden, "Access denied")
	case errors.Is(err, storage.ErrNotFound):
		h.writeErrorResponse(w, http.StatusNotFound, models.ErrorCodeNotFound, "Not found")
	default:
		slog.Error("Internal error", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
	}
}

func (h *Handlers) recordLogin(r *http.Request, kind string) {
	if h.metrics != nil {
		h.metrics.RecordLogin(r.Context(), kind)
	}
}

func (h *Handlers) recordAuthFailure(r *http.Request, reason string) {
	if h.metrics != nil {
		h.metrics.RecordAuthFailure(r.Context(), reason)
	}
}

// decodeBody parses a JSON request body, writing a 400 on malformed input.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, "Invalid JSON body")
		return false
	}
	return true
}
