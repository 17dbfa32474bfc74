package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Security.SigningSecret = strings.Repeat("s", MinSigningSecretLength)
	cfg.Security.AdminBootstrapSecret = strings.Repeat("b", MinBootstrapSecretLength)
	return cfg
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageTypeMemory, cfg.Storage.Type)
	assert.Equal(t, 15, cfg.Security.TokenTTLMinutes)
	assert.Equal(t, 100, cfg.Security.RateLimit.RequestsPerMinute)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.Empty(t, cfg.Security.SigningSecret, "secrets must not have defaults")
	assert.Empty(t, cfg.Security.AdminBootstrapSecret, "secrets must not have defaults")
}

func TestConfig_Validate_OK(t *testing.T) {
	require.NoError(t, validTestConfig().Validate())
}

func TestConfig_Validate_FailsClosedOnSecrets(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing signing secret", func(c *Config) { c.Security.SigningSecret = "" }},
		{"short signing secret", func(c *Config) { c.Security.SigningSecret = "short" }},
		{"missing bootstrap secret", func(c *Config) { c.Security.AdminBootstrapSecret = "" }},
		{"short bootstrap secret", func(c *Config) { c.Security.AdminBootstrapSecret = "weak" }},
		{"bootstrap secret equals signing secret", func(c *Config) {
			c.Security.AdminBootstrapSecret = c.Security.SigningSecret
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_Validate_DefaultsNeverPassWithoutSecrets(t *testing.T) {
	// There is no knob that makes secret validation optional. A default
	// config without injected secrets must be rejected outright.
	assert.Error(t, NewDefaultConfig().Validate())
}

func TestConfig_Validate_InvalidPort(t *testing.T) {
	cfg := validTestConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = validTestConfig()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_Storage(t *testing.T) {
	cfg := validTestConfig()
	cfg.Storage.Type = "cassandra"
	assert.Error(t, cfg.Validate())

	cfg = validTestConfig()
	cfg.Storage.Type = StorageTypePostgres
	cfg.Storage.Database.DSN = ""
	assert.Error(t, cfg.Validate())

	cfg.Storage.Database.DSN = "postgres://localhost/authd"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_RateLimit(t *testing.T) {
	cfg := validTestConfig()
	cfg.Security.RateLimit.RequestsPerMinute = 0
	assert.Error(t, cfg.Validate())

	cfg = validTestConfig()
	cfg.Security.RateLimit.Store = "redis"
	assert.Error(t, cfg.Validate())

	cfg = validTestConfig()
	cfg.Security.RateLimit.Store = RateLimitStorePostgres
	assert.Error(t, cfg.Validate(), "postgres limiter store requires a DSN")

	cfg.Storage.Database.DSN = "postgres://localhost/authd"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_TokenTTL(t *testing.T) {
	cfg := validTestConfig()
	cfg.Security.TokenTTLMinutes = 0
	assert.Error(t, cfg.Validate())
}

func TestSecurityConfig_TokenTTL(t *testing.T) {
	sc := SecurityConfig{TokenTTLMinutes: 15}
	assert.Equal(t, 15*time.Minute, sc.TokenTTL())
}
