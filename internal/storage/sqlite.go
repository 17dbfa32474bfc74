package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"authd/internal/models"

	_ "modernc.org/sqlite"
)

// SQLiteStorage implements the Storage interface using a local SQLite file.
// Suitable for single-node deployments that want persistence without running
// a database server.
type SQLiteStorage struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	provider_subject TEXT NOT NULL DEFAULT '',
	credential TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'user',
	is_admin INTEGER NOT NULL DEFAULT 0,
	is_verified INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// NewSQLiteStorage creates a SQLite storage instance and ensures the schema
// exists.
func NewSQLiteStorage(config Config) (*SQLiteStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writes; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func scanUserRow(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.ProviderSubject, &u.Credential,
		&u.Role, &u.IsAdmin, &u.IsVerified, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func isUniqueErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetUserByEmail retrieves a user by its normalized email address.
func (ss *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := ss.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`,
		models.NormalizeEmail(email))
	return scanUserRow(row)
}

// GetUserByID retrieves a user by its numeric ID.
func (ss *SQLiteStorage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := ss.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUserRow(row)
}

// CreateUser stores a new account and returns it with the assigned ID.
func (ss *SQLiteStorage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	stored := user.Clone()
	stored.Email = models.NormalizeEmail(stored.Email)

	res, err := ss.db.ExecContext(ctx,
		`INSERT INTO users (email, name, provider_subject, credential, role,
			is_admin, is_verified, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.Email, stored.Name, stored.ProviderSubject, stored.Credential,
		stored.Role, stored.IsAdmin, stored.IsVerified, stored.IsActive,
		stored.CreatedAt, stored.UpdatedAt)
	if err != nil {
		if isUniqueErr(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	stored.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read inserted id: %w", err)
	}
	return stored, nil
}

// UpdateUser replaces the stored record matched by user.ID.
func (ss *SQLiteStorage) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := ss.db.ExecContext(ctx,
		`UPDATE users SET email = ?, name = ?, provider_subject = ?,
			credential = ?, role = ?, is_admin = ?, is_verified = ?,
			is_active = ?, updated_at = ?
		 WHERE id = ?`,
		models.NormalizeEmail(user.Email), user.Name, user.ProviderSubject,
		user.Credential, user.Role, user.IsAdmin, user.IsVerified, user.IsActive,
		user.UpdatedAt, user.ID)
	if err != nil {
		if isUniqueErr(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes an account.
func (ss *SQLiteStorage) DeleteUser(ctx context.Context, id int64) error {
	res, err := ss.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns all accounts, newest first.
func (ss *SQLiteStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := ss.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountUsers returns population stats.
func (ss *SQLiteStorage) CountUsers(ctx context.Context) (UserCounts, error) {
	var counts UserCounts
	err := ss.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(is_active), 0),
			COALESCE(SUM(is_admin), 0)
		 FROM users`).Scan(&counts.Total, &counts.Active, &counts.Admins)
	if err != nil {
		return UserCounts{}, fmt.Errorf("count users: %w", err)
	}
	return counts, nil
}

// Ping verifies database connectivity.
func (ss *SQLiteStorage) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// Close releases the database handle.
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}
