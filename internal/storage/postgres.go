package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"authd/internal/models"
	"authd/internal/storage/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// PostgresStorage implements the Storage interface using PostgreSQL via pgx.
// Schema migrations are embedded and applied with goose on startup.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a PostgreSQL storage instance, runs pending
// migrations, and verifies connectivity.
func NewPostgresStorage(config Config) (*PostgresStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	if err := runMigrations(config.ConnectionString); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if config.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(config.MaxOpenConns)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// runMigrations applies the embedded goose migrations through a short-lived
// database/sql connection.
func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

const userColumns = `id, email, name, provider_subject, credential, role,
	is_admin, is_verified, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.ProviderSubject, &u.Credential,
		&u.Role, &u.IsAdmin, &u.IsVerified, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by its normalized email address.
func (ps *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		models.NormalizeEmail(email))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by its numeric ID.
func (ps *PostgresStorage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// CreateUser stores a new account and returns it with the assigned ID.
func (ps *PostgresStorage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	stored := user.Clone()
	stored.Email = models.NormalizeEmail(stored.Email)

	err := ps.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, provider_subject, credential, role,
			is_admin, is_verified, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		stored.Email, stored.Name, stored.ProviderSubject, stored.Credential,
		stored.Role, stored.IsAdmin, stored.IsVerified, stored.IsActive,
		stored.CreatedAt, stored.UpdatedAt,
	).Scan(&stored.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return stored, nil
}

// UpdateUser replaces the stored record matched by user.ID.
func (ps *PostgresStorage) UpdateUser(ctx context.Context, user *models.User) error {
	tag, err := ps.pool.Exec(ctx,
		`UPDATE users SET email = $2, name = $3, provider_subject = $4,
			credential = $5, role = $6, is_admin = $7, is_verified = $8,
			is_active = $9, updated_at = $10
		 WHERE id = $1`,
		user.ID, models.NormalizeEmail(user.Email), user.Name, user.ProviderSubject,
		user.Credential, user.Role, user.IsAdmin, user.IsVerified, user.IsActive,
		user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes an account.
func (ps *PostgresStorage) DeleteUser(ctx context.Context, id int64) error {
	tag, err := ps.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns all accounts, newest first.
func (ps *PostgresStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := ps.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountUsers returns population stats.
func (ps *PostgresStorage) CountUsers(ctx context.Context) (UserCounts, error) {
	var counts UserCounts
	err := ps.pool.QueryRow(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE is_admin)
		 FROM users`).Scan(&counts.Total, &counts.Active, &counts.Admins)
	if err != nil {
		return UserCounts{}, fmt.Errorf("count users: %w", err)
	}
	return counts, nil
}

// Ping verifies database connectivity.
func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close releases the connection pool.
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}
