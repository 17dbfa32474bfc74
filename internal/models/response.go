package models

import (
	"time"
)

// Standard machine-readable error codes. Auth failures are deliberately
// coarse on the wire: the code distinguishes 401 from 403 but never expired
// from forged from malformed.
const (
	ErrorCodeUnauthorized     = "UNAUTHORIZED"        // 401: no or invalid credentials
	ErrorCodeForbidden        = "FORBIDDEN"           // 403: valid identity, insufficient rights
	ErrorCodeRateLimited      = "RATE_LIMIT_EXCEEDED" // 429: window ceiling exceeded
	ErrorCodeNotFound         = "NOT_FOUND"           // 404: resource doesn't exist
	ErrorCodeInvalidRequest   = "INVALID_REQUEST"     // 400: malformed request data
	ErrorCodeValidation       = "VALIDATION_ERROR"    // 422: input validation failed
	ErrorCodeConflict         = "CONFLICT"            // 409: resource conflict
	ErrorCodeInternalError    = "INTERNAL_ERROR"      // 500: server-side error
	ErrorCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"  // 405: wrong HTTP method
)

// ErrorResponse is the error envelope used by every endpoint.
type ErrorResponse struct {
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	RetryAfter int       `json:"retry_after,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error envelope with the current timestamp.
func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// UserResponse is the public view of an account record. Credentials and
// provider subjects are never exposed.
type UserResponse struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	IsAdmin    bool      `json:"is_admin"`
	IsVerified bool      `json:"is_verified"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewUserResponse builds the public view of a user record.
func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		IsAdmin:    u.IsAdmin,
		IsVerified: u.IsVerified,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
}

// TokenResponse is returned on successful authentication.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        UserResponse `json:"user"`
}

// NewTokenResponse builds a bearer token envelope.
func NewTokenResponse(token string, ttl time.Duration, u *User) *TokenResponse {
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(ttl.Seconds()),
		User:        NewUserResponse(u),
	}
}

// StatsResponse summarizes the account population for the admin dashboard.
type StatsResponse struct {
	TotalUsers  int `json:"total_users"`
	ActiveUsers int `json:"active_users"`
	AdminUsers  int `json:"admin_users"`
}

// ListUsersResponse wraps the admin user listing.
type ListUsersResponse struct {
	Users      []UserResponse `json:"users"`
	TotalCount int            `json:"total_count"`
}

// Health status constants.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// HealthCheckResponse reports component-level service health.
type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHealthCheckResponse creates a health envelope with the given status.
func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
}

// AddComponent records the health of a single component.
func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}
