package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"authd/internal/auth"
	"authd/internal/models"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/v1/health" &&
					r.URL.Path != "/metrics"
			}),
		))
	}
}

// WithRateLimiter adds rate limiting middleware to the router. It runs before
// authentication so rejected requests never cost a token verification or a
// storage lookup.
func WithRateLimiter(middleware func(http.Handler) http.Handler) RouteOption {
	return func(r *mux.Router) {
		r.Use(middleware)
	}
}

// SetupRoutes configures the HTTP routes for the API. Middleware layering per
// request is rate limit, then token resolution, then role gate, then handler;
// a request rejected by an outer layer never reaches an inner one.
func SetupRoutes(handlers *Handlers, resolver *auth.Resolver, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	for _, opt := range opts {
		opt(router)
	}

	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.HandleFunc("/api/v1/health", handlers.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Anonymous surface: account creation and the login variants.
	api.HandleFunc("/auth/register", handlers.Register).Methods("POST")
	api.HandleFunc("/auth/login", handlers.Login).Methods("POST")
	api.HandleFunc("/admin/login", handlers.AdminLogin).Methods("POST")

	// Authenticated surface: any active account.
	authAPI := api.PathPrefix("").Subrouter()
	authAPI.Use(handlers.authMiddleware(resolver))
	authAPI.HandleFunc("/users/me", handlers.Me).Methods("GET")
	authAPI.HandleFunc("/auth/password", handlers.ChangePassword).Methods("POST")
	authAPI.HandleFunc("/setup/make-me-admin", handlers.MakeMeAdmin).Methods("POST")

	// Admin surface: role-gated on top of authentication.
	adminAPI := api.PathPrefix("/admin").Subrouter()
	adminAPI.Use(handlers.authMiddleware(resolver))
	adminAPI.Use(handlers.RequireRole(auth.NewRoleGate(models.RoleAdmin)))
	adminAPI.HandleFunc("/stats", handlers.AdminStats).Methods("GET")
	adminAPI.HandleFunc("/users", handlers.AdminListUsers).Methods("GET")
	adminAPI.HandleFunc("/users/{user_id}/deactivate", handlers.AdminDeactivateUser).Methods("POST")
	adminAPI.HandleFunc("/users/{user_id}/activate", handlers.AdminActivateUser).Methods("POST")
	adminAPI.HandleFunc("/users/{user_id}", handlers.AdminDeleteUser).Methods("DELETE")

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		errorResp := models.NewErrorResponse("Method not allowed", models.ErrorCodeMethodNotAllowed)
		json.NewEncoder(w).Encode(errorResp)
	})

	return router
}
