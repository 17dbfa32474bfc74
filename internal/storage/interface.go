// Package storage persists user account records behind a backend-agnostic
// interface. Implementations exist for memory (tests, development), SQLite,
// and PostgreSQL.
package storage

import (
	"context"

	"authd/internal/models"
)

// Storage defines the user-account persistence contract. Implementations must
// be safe for concurrent use and must return values the caller can mutate
// without affecting stored state.
type Storage interface {
	// GetUserByEmail retrieves a user by its normalized email address.
	// Returns ErrNotFound when no such account exists.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by its numeric ID.
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	// CreateUser stores a new account and returns it with the assigned ID.
	// Returns ErrDuplicateEmail when the address is already registered.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)

	// UpdateUser replaces the stored record matched by user.ID.
	UpdateUser(ctx context.Context, user *models.User) error

	// DeleteUser removes an account.
	DeleteUser(ctx context.Context, id int64) error

	// ListUsers returns all accounts ordered by creation time, newest first.
	ListUsers(ctx context.Context) ([]*models.User, error)

	// CountUsers returns population stats for the admin dashboard.
	CountUsers(ctx context.Context) (UserCounts, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// UserCounts summarizes the account population.
type UserCounts struct {
	Total  int
	Active int
	Admins int
}

// Config holds configuration for storage backends.
type Config struct {
	// Type selects the backend (memory, sqlite, postgres).
	Type string

	// ConnectionString is used by database backends.
	ConnectionString string

	// MaxOpenConns caps the database connection pool (0 means driver default).
	MaxOpenConns int
}
