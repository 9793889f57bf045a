package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Logger    LoggerConfig
	Sync      SyncConfig
	Providers ProvidersConfig
	External  ExternalConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL               string        // Required
	MigrationsPath    string        // Default: "migrations"
	MaxConns          int32         // Default: 8
	MinConns          int32         // Default: 2
	MaxConnIdleTime   time.Duration // Default: 5m
	MaxConnLifetime   time.Duration // Default: 30m
	HealthCheckPeriod time.Duration // Default: 1m
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        // Default: "127.0.0.1"
	Port            int           // Default: 8080
	ShutdownTimeout time.Duration // Default: 30s
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // Default: "info" (trace, debug, info, warn, error, fatal, panic)
	Environment string // production|development|staging|test (affects format)
}

// SyncConfig holds sync orchestration tuning
type SyncConfig struct {
	PageSize     int           // Default: 100
	Interval     time.Duration // Default: 15m
	WriteWorkers int           // Default: 4 (concurrent reconciliation writes)
}

// ProviderConfig holds OAuth client settings for one account kind
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	BaseURL      string // API base URL; overridable for tests and on-prem hosts
}

// ProvidersConfig holds per-kind provider settings
type ProvidersConfig struct {
	Google   ProviderConfig
	Office   ProviderConfig
	Exchange ProviderConfig
}

// ExternalConfig holds external collaborator settings
type ExternalConfig struct {
	TokenEndpointURL   string // Required: refresh-token exchange endpoint
	TokenEncryptionKey string // 64 hex chars (AES-256 key); required in production
	APIKey             string // Guards the /api/v1 surface; required in production
	FrontendURL        string // Used for OAuth callback redirects
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// Constants for default values
const (
	DefaultMigrationsPath  = "migrations"
	DefaultServerHost      = "127.0.0.1"
	DefaultServerPort      = 8080
	DefaultShutdownTimeout = 30 * time.Second
	DefaultLogLevel        = "info"
	DefaultEnvironment     = "development"
	DefaultSyncPageSize    = 100
	DefaultSyncInterval    = 15 * time.Minute
	DefaultWriteWorkers    = 4
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL:               getEnv("DATABASE_URL", ""),
			MigrationsPath:    getEnv("MIGRATIONS_PATH", DefaultMigrationsPath),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 8)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE", 5*time.Minute),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTHCHECK_PERIOD", time.Minute),
		},
		Server: ServerConfig{
			Host:            getEnv("HOST", DefaultServerHost),
			Port:            getEnvAsInt("PORT", DefaultServerPort),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", DefaultLogLevel),
			Environment: getEnv("ENVIRONMENT", DefaultEnvironment),
		},
		Sync: SyncConfig{
			PageSize:     getEnvAsInt("SYNC_PAGE_SIZE", DefaultSyncPageSize),
			Interval:     getEnvAsDuration("SYNC_INTERVAL", DefaultSyncInterval),
			WriteWorkers: getEnvAsInt("SYNC_WRITE_WORKERS", DefaultWriteWorkers),
		},
		Providers: ProvidersConfig{
			Google: ProviderConfig{
				ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
				ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
				BaseURL:      getEnv("GOOGLE_API_BASE_URL", "https://www.googleapis.com"),
			},
			Office: ProviderConfig{
				ClientID:     getEnv("OFFICE_CLIENT_ID", ""),
				ClientSecret: getEnv("OFFICE_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("OFFICE_REDIRECT_URL", ""),
				BaseURL:      getEnv("OFFICE_API_BASE_URL", "https://graph.microsoft.com/v1.0"),
			},
			Exchange: ProviderConfig{
				ClientID:     getEnv("EXCHANGE_CLIENT_ID", ""),
				ClientSecret: getEnv("EXCHANGE_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("EXCHANGE_REDIRECT_URL", ""),
				BaseURL:      getEnv("EXCHANGE_API_BASE_URL", ""),
			},
		},
		External: ExternalConfig{
			TokenEndpointURL:   getEnv("TOKEN_ENDPOINT_URL", ""),
			TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),
			APIKey:             getEnv("API_KEY", ""),
			FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}

	return cfg, nil
}

// Validate checks the configuration for invalid or missing values
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if c.Database.URL == "" {
		errs = append(errs, ValidationError{Field: "DATABASE_URL", Message: "is required"})
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{Field: "PORT", Message: fmt.Sprintf("must be between 1 and 65535, got %d", c.Server.Port)})
	}
	if c.Sync.PageSize < 1 {
		errs = append(errs, ValidationError{Field: "SYNC_PAGE_SIZE", Message: "must be positive"})
	}
	if c.Sync.WriteWorkers < 1 {
		errs = append(errs, ValidationError{Field: "SYNC_WRITE_WORKERS", Message: "must be positive"})
	}
	if c.External.TokenEndpointURL == "" {
		errs = append(errs, ValidationError{Field: "TOKEN_ENDPOINT_URL", Message: "is required"})
	}
	if c.Logger.Environment == "production" && c.External.TokenEncryptionKey == "" {
		errs = append(errs, ValidationError{Field: "TOKEN_ENCRYPTION_KEY", Message: "is required in production"})
	}
	if c.Logger.Environment == "production" && c.External.APIKey == "" {
		errs = append(errs, ValidationError{Field: "API_KEY", Message: "is required in production"})
	}

	return errs
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer with a fallback
func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a duration with a fallback
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
