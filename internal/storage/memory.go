package storage

import (
	"context"
	"sort"
	"sync"

	"authd/internal/models"
)

// MemoryStorage implements the Storage interface using in-memory maps. Data
// is lost on restart; intended for development and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	users   map[int64]*models.User
	byEmail map[string]int64
	nextID  int64
}

// NewMemoryStorage creates a new memory-based storage instance.
func NewMemoryStorage(config Config) (*MemoryStorage, error) {
	return &MemoryStorage{
		users:   make(map[int64]*models.User),
		byEmail: make(map[string]int64),
		nextID:  1,
	}, nil
}

// GetUserByEmail retrieves a user by its normalized email address.
func (m *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return m.users[id].Clone(), nil
}

// GetUserByID retrieves a user by its numeric ID.
func (m *MemoryStorage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return user.Clone(), nil
}

// CreateUser stores a new account and assigns it an ID.
func (m *MemoryStorage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := models.NormalizeEmail(user.Email)
	if _, exists := m.byEmail[email]; exists {
		return nil, ErrDuplicateEmail
	}

	stored := user.Clone()
	stored.ID = m.nextID
	stored.Email = email
	m.nextID++

	m.users[stored.ID] = stored
	m.byEmail[email] = stored.ID

	return stored.Clone(), nil
}

// UpdateUser replaces the stored record matched by user.ID.
func (m *MemoryStorage) UpdateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return ErrNotFound
	}

	stored := user.Clone()
	stored.Email = models.NormalizeEmail(stored.Email)
	if stored.Email != existing.Email {
		if _, taken := m.byEmail[stored.Email]; taken {
			return ErrDuplicateEmail
		}
		delete(m.byEmail, existing.Email)
		m.byEmail[stored.Email] = stored.ID
	}

	m.users[stored.ID] = stored
	return nil
}

// DeleteUser removes an account.
func (m *MemoryStorage) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}

	delete(m.byEmail, user.Email)
	delete(m.users, id)
	return nil
}

// ListUsers returns all accounts, newest first.
func (m *MemoryStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID > users[j].ID
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// CountUsers returns population stats.
func (m *MemoryStorage) CountUsers(ctx context.Context) (UserCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := UserCounts{Total: len(m.users)}
	for _, u := range m.users {
		if u.IsActive {
			counts.Active++
		}
		if u.IsAdmin {
			counts.Admins++
		}
	}
	return counts, nil
}

// Ping always succeeds for memory storage.
func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for memory storage.
func (m *MemoryStorage) Close() error {
	return nil
}
