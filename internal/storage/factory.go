package storage

import (
	"fmt"

	"authd/internal/models"
)

// Factory creates storage instances based on configuration.
type Factory struct{}

// NewFactory creates a new storage factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create instantiates a storage backend for the given configuration.
// Supported backends:
//   - memory: in-memory maps (testing/development)
//   - sqlite: local SQLite file
//   - postgres: PostgreSQL with embedded migrations (production)
func (f *Factory) Create(config models.StorageConfig) (Storage, error) {
	storageConfig := Config{
		Type:             config.Type,
		ConnectionString: config.Database.DSN,
		MaxOpenConns:     config.Database.MaxOpenConns,
	}
	// SQLite is configured with a file path rather than a DSN.
	if config.Type == models.StorageTypeSQLite && storageConfig.ConnectionString == "" {
		storageConfig.ConnectionString = config.Path
	}

	switch config.Type {
	case models.StorageTypeMemory:
		return NewMemoryStorage(storageConfig)
	case models.StorageTypeSQLite:
		return NewSQLiteStorage(storageConfig)
	case models.StorageTypePostgres:
		return NewPostgresStorage(storageConfig)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}

// GetSupportedProviders returns all supported storage backend types.
func (f *Factory) GetSupportedProviders() []string {
	return []string{models.StorageTypeMemory, models.StorageTypeSQLite, models.StorageTypePostgres}
}
