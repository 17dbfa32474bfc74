package storage

import (
	"context"
	"path/filepath"
	"testing"

	"authd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(Config{
		Type:             models.StorageTypeSQLite,
		ConnectionString: filepath.Join(t.TempDir(), "authd.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorage_RoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	created, err := store.CreateUser(ctx, models.NewUser("A@X.Com", "Alice"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "a@x.com", created.Email)

	got, err := store.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Alice", got.Name)
	assert.True(t, got.IsActive)
}

func TestSQLiteStorage_DuplicateEmail(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, models.NewUser("a@x.com", "Alice"))
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, models.NewUser("a@x.com", "Alice II"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestSQLiteStorage_UpdateAndCounts(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	created, err := store.CreateUser(ctx, models.NewUser("a@x.com", "Alice"))
	require.NoError(t, err)

	created.SetRole(models.RoleAdmin)
	created.IsActive = false
	require.NoError(t, store.UpdateUser(ctx, created))

	got, err := store.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
	assert.False(t, got.IsActive)

	counts, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, UserCounts{Total: 1, Active: 0, Admins: 1}, counts)
}

func TestSQLiteStorage_DeleteAndList(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	first, err := store.CreateUser(ctx, models.NewUser("a@x.com", "Alice"))
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, models.NewUser("b@x.com", "Bob"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteUser(ctx, first.ID))
	assert.ErrorIs(t, store.DeleteUser(ctx, first.ID), ErrNotFound)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "b@x.com", users[0].Email)
}

func TestSQLiteStorage_GetMissing(t *testing.T) {
	store := newSQLiteStore(t)

	_, err := store.GetUserByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
