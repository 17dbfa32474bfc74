// Package models defines the domain types of the authd service: user
// accounts, API request/response envelopes, and the configuration tree.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeSQLite   = "sqlite"
	StorageTypePostgres = "postgres"
)

// Rate limit store constants
const (
	RateLimitStoreMemory   = "memory"
	RateLimitStorePostgres = "postgres"
)

// Minimum secret lengths enforced at startup. A service with a weak signing
// or bootstrap secret must refuse to accept traffic rather than run open.
const (
	MinSigningSecretLength   = 32
	MinBootstrapSecretLength = 16
)

// Config is the root configuration structure containing all service settings.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Security      SecurityConfig      `yaml:"security" json:"security"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
}

type StorageConfig struct {
	Type     string         `yaml:"type" json:"type"`
	Path     string         `yaml:"path" json:"path"`
	Database DatabaseConfig `yaml:"database" json:"database"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

// SecurityConfig holds the secrets and policy knobs of the auth layer.
// SigningSecret signs bearer tokens; AdminBootstrapSecret guards the one-shot
// admin bootstrap endpoint and must not be reused as the signing secret.
type SecurityConfig struct {
	SigningSecret        string          `yaml:"signing_secret" json:"-"`
	TokenTTLMinutes      int             `yaml:"token_ttl_minutes" json:"token_ttl_minutes"`
	AdminEmails          []string        `yaml:"admin_emails" json:"admin_emails"`
	AdminMasterPassword  string          `yaml:"admin_master_password" json:"-"`
	AdminBootstrapSecret string          `yaml:"admin_bootstrap_secret" json:"-"`
	RateLimit            RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	Store             string        `yaml:"store" json:"store"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with working defaults. Secrets have
// no defaults: a deployment that enables auth without configuring them fails
// validation instead of starting with a guessable secret.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Storage: StorageConfig{
			Type: StorageTypeMemory,
			Database: DatabaseConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
				ConnMaxIdleTime: 5 * time.Minute,
			},
		},
		Security: SecurityConfig{
			TokenTTLMinutes: 15,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 100,
				Store:             RateLimitStoreMemory,
				CleanupInterval:   5 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "authd",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

// TokenTTL returns the configured token lifetime as a duration.
func (sc SecurityConfig) TokenTTL() time.Duration {
	return time.Duration(sc.TokenTTLMinutes) * time.Minute
}

// Validate checks the configuration for consistency. Secret checks fail
// closed: a service with auth enabled and an absent or weak signing or
// bootstrap secret must not start.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.TLSEnabled && (c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "") {
		return errors.New("tls_cert_file and tls_key_file are required when TLS is enabled")
	}

	switch c.Storage.Type {
	case StorageTypeMemory:
	case StorageTypeSQLite, StorageTypePostgres:
		if c.Storage.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s storage", c.Storage.Type)
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (c *Config) validateSecurity() error {
	sec := c.Security

	// Secrets are validated unconditionally. A deployment without a strong
	// signing secret must never accept traffic.
	if len(sec.SigningSecret) < MinSigningSecretLength {
		return fmt.Errorf("signing secret is absent or shorter than %d bytes", MinSigningSecretLength)
	}
	if len(sec.AdminBootstrapSecret) < MinBootstrapSecretLength {
		return fmt.Errorf("admin bootstrap secret is absent or shorter than %d bytes", MinBootstrapSecretLength)
	}
	if sec.AdminBootstrapSecret == sec.SigningSecret {
		return errors.New("admin bootstrap secret must differ from the signing secret")
	}
	if sec.TokenTTLMinutes <= 0 {
		return fmt.Errorf("token TTL must be positive, got %d minutes", sec.TokenTTLMinutes)
	}

	rl := sec.RateLimit
	if rl.Enabled {
		if rl.RequestsPerMinute <= 0 {
			return fmt.Errorf("rate limit ceiling must be positive, got %d", rl.RequestsPerMinute)
		}
		switch rl.Store {
		case RateLimitStoreMemory:
		case RateLimitStorePostgres:
			if c.Storage.Database.DSN == "" {
				return errors.New("database DSN is required for the postgres rate limit store")
			}
		default:
			return fmt.Errorf("unsupported rate limit store: %s", rl.Store)
		}
	}

	return nil
}
