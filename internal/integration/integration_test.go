package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authd/internal/api"
	"authd/internal/auth"
	"authd/internal/models"
	"authd/internal/ratelimit"
	"authd/internal/storage"
	"authd/internal/token"
)

// Integration tests that exercise the entire system end-to-end over real HTTP.

const signingSecret = "integration-signing-secret-0123456789"

func newServer(t *testing.T, policy models.SecurityConfig, routeOpts ...api.RouteOption) *httptest.Server {
	t.Helper()

	dbFile := filepath.Join(t.TempDir(), "authd_test.db")
	store, err := storage.NewSQLiteStorage(storage.Config{
		Type:             models.StorageTypeSQLite,
		ConnectionString: dbFile,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if policy.TokenTTLMinutes == 0 {
		policy.TokenTTLMinutes = 15
	}

	codec := token.NewCodec([]byte(signingSecret), policy.TokenTTL())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := auth.NewService(store, codec, policy, logger)
	resolver := auth.NewResolver(codec, store)
	handlers := api.NewHandlers(service, store, "integration-test")

	server := httptest.NewServer(api.SetupRoutes(handlers, resolver, routeOpts...))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, client *http.Client, url, bearer string, body interface{}) *http.Response {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, client *http.Client, url, bearer string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestIntegration_FullAccountFlow(t *testing.T) {
	server := newServer(t, models.SecurityConfig{
		AdminEmails:          []string{"root@example.com"},
		AdminMasterPassword:  "integration-master-password",
		AdminBootstrapSecret: "integration-bootstrap-secret",
	})
	client := server.Client()

	// Step 1: register an account and receive a bearer token
	resp := postJSON(t, client, server.URL+"/api/v1/auth/register", "", &models.RegisterRequest{
		Email: "alice@example.com", Name: "Alice", Password: "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var registered models.TokenResponse
	decode(t, resp, &registered)
	require.NotEmpty(t, registered.AccessToken)

	// Step 2: the token resolves to the account
	resp = getJSON(t, client, server.URL+"/api/v1/users/me", registered.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me models.UserResponse
	decode(t, resp, &me)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Equal(t, models.RoleUser, me.Role)

	// Step 3: the admin surface is closed to regular accounts
	resp = getJSON(t, client, server.URL+"/api/v1/admin/stats", registered.AccessToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Step 4: an operator signs in with the master password
	resp = postJSON(t, client, server.URL+"/api/v1/admin/login", "", &models.AdminLoginRequest{
		Email: "root@example.com", Password: "integration-master-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var admin models.TokenResponse
	decode(t, resp, &admin)
	assert.Equal(t, models.RoleAdmin, admin.User.Role)

	// Step 5: the admin sees both accounts in the stats
	resp = getJSON(t, client, server.URL+"/api/v1/admin/stats", admin.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats models.StatsResponse
	decode(t, resp, &stats)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.AdminUsers)

	// Step 6: deactivating the account kills its live token
	resp = postJSON(t, client,
		fmt.Sprintf("%s/api/v1/admin/users/%d/deactivate", server.URL, registered.User.ID),
		admin.AccessToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = getJSON(t, client, server.URL+"/api/v1/users/me", registered.AccessToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Step 7: reactivation restores the same token
	resp = postJSON(t, client,
		fmt.Sprintf("%s/api/v1/admin/users/%d/activate", server.URL, registered.User.ID),
		admin.AccessToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = getJSON(t, client, server.URL+"/api/v1/users/me", registered.AccessToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntegration_BootstrapPromotion(t *testing.T) {
	server := newServer(t, models.SecurityConfig{
		AdminBootstrapSecret: "integration-bootstrap-secret",
	})
	client := server.Client()

	resp := postJSON(t, client, server.URL+"/api/v1/auth/register", "", &models.RegisterRequest{
		Email: "first@example.com", Name: "First", Password: "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var registered models.TokenResponse
	decode(t, resp, &registered)

	// Promotion with the bootstrap secret
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/setup/make-me-admin", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+registered.AccessToken)
	req.Header.Set("X-Admin-Secret", "integration-bootstrap-secret")

	promote, err := client.Do(req)
	require.NoError(t, err)
	promote.Body.Close()
	require.Equal(t, http.StatusOK, promote.StatusCode)

	// A fresh login carries the admin role
	resp = postJSON(t, client, server.URL+"/api/v1/auth/login", "", &models.LoginRequest{
		Email: "first@example.com", Password: "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fresh models.TokenResponse
	decode(t, resp, &fresh)

	stats := getJSON(t, client, server.URL+"/api/v1/admin/stats", fresh.AccessToken)
	stats.Body.Close()
	assert.Equal(t, http.StatusOK, stats.StatusCode)
}

func TestIntegration_RateLimitCeiling(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(5, 5*time.Minute)
	t.Cleanup(func() { limiter.Close() })

	server := newServer(t, models.SecurityConfig{},
		api.WithRateLimiter(ratelimit.Middleware(limiter, nil)))
	client := server.Client()

	// Every request from this client shares one window
	for i := 0; i < 5; i++ {
		resp := getJSON(t, client, server.URL+"/health", "")
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i+1)
	}

	resp := getJSON(t, client, server.URL+"/health", "")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	var body models.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, models.ErrorCodeRateLimited, body.Code)
	assert.Equal(t, 60, body.RetryAfter)
}

func TestIntegration_SQLitePersistence(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "persist.db")

	open := func() *storage.SQLiteStorage {
		store, err := storage.NewSQLiteStorage(storage.Config{
			Type:             models.StorageTypeSQLite,
			ConnectionString: dbFile,
		})
		require.NoError(t, err)
		return store
	}

	store := open()
	user := models.NewUser("persist@example.com", "Persist")
	created, err := store.CreateUser(t.Context(), user)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopen the same file and find the account again
	store = open()
	defer store.Close()
	found, err := store.GetUserByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "persist@example.com", found.Email)
}
