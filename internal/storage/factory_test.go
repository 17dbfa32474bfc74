package storage

import (
	"context"
	"path/filepath"
	"testing"

	"authd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_CreateMemory(t *testing.T) {
	store, err := NewFactory().Create(models.StorageConfig{Type: models.StorageTypeMemory})
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &MemoryStorage{}, store)
}

func TestFactory_CreateSQLite(t *testing.T) {
	cfg := models.StorageConfig{Type: models.StorageTypeSQLite}
	cfg.Database.DSN = filepath.Join(t.TempDir(), "authd.db")

	store, err := NewFactory().Create(cfg)
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &SQLiteStorage{}, store)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestFactory_CreateSQLiteFromPath(t *testing.T) {
	cfg := models.StorageConfig{
		Type: models.StorageTypeSQLite,
		Path: filepath.Join(t.TempDir(), "authd.db"),
	}

	store, err := NewFactory().Create(cfg)
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Ping(context.Background()))
}

func TestFactory_CreateUnsupported(t *testing.T) {
	_, err := NewFactory().Create(models.StorageConfig{Type: "cassandra"})
	assert.Error(t, err)
}

func TestFactory_SQLiteRequiresDSN(t *testing.T) {
	_, err := NewFactory().Create(models.StorageConfig{Type: models.StorageTypeSQLite})
	assert.Error(t, err)
}

func TestFactory_GetSupportedProviders(t *testing.T) {
	providers := NewFactory().GetSupportedProviders()
	assert.ElementsMatch(t,
		[]string{models.StorageTypeMemory, models.StorageTypeSQLite, models.StorageTypePostgres},
		providers)
}
