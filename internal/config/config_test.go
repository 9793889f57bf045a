package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/organizer_test")
	t.Setenv("TOKEN_ENDPOINT_URL", "https://tokens.internal.example.com/exchange")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultMigrationsPath, cfg.Database.MigrationsPath)
	assert.Equal(t, int32(8), cfg.Database.MaxConns)
	assert.Equal(t, DefaultServerHost, cfg.Server.Host)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DefaultLogLevel, cfg.Logger.Level)
	assert.Equal(t, DefaultEnvironment, cfg.Logger.Environment)
	assert.Equal(t, DefaultSyncPageSize, cfg.Sync.PageSize)
	assert.Equal(t, DefaultSyncInterval, cfg.Sync.Interval)
	assert.Equal(t, DefaultWriteWorkers, cfg.Sync.WriteWorkers)
	assert.Equal(t, "https://www.googleapis.com", cfg.Providers.Google.BaseURL)
	assert.Equal(t, "https://graph.microsoft.com/v1.0", cfg.Providers.Office.BaseURL)
	assert.Equal(t, "http://localhost:3000", cfg.External.FrontendURL)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SYNC_PAGE_SIZE", "25")
	t.Setenv("SYNC_INTERVAL", "5m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("EXCHANGE_API_BASE_URL", "https://mail.corp.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Sync.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "https://mail.corp.example.com", cfg.Providers.Exchange.BaseURL)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_MAX_CONNS", "not a number")
	t.Setenv("SYNC_INTERVAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int32(8), cfg.Database.MaxConns)
	assert.Equal(t, DefaultSyncInterval, cfg.Sync.Interval)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{URL: "postgres://localhost/db"},
			Server:   ServerConfig{Port: 8080},
			Logger:   LoggerConfig{Environment: "development"},
			Sync:     SyncConfig{PageSize: 100, WriteWorkers: 4},
			External: ExternalConfig{TokenEndpointURL: "https://tokens.example.com"},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing database url", func(c *Config) { c.Database.URL = "" }, "DATABASE_URL"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "PORT"},
		{"zero page size", func(c *Config) { c.Sync.PageSize = 0 }, "SYNC_PAGE_SIZE"},
		{"zero workers", func(c *Config) { c.Sync.WriteWorkers = 0 }, "SYNC_WRITE_WORKERS"},
		{"missing token endpoint", func(c *Config) { c.External.TokenEndpointURL = "" }, "TOKEN_ENDPOINT_URL"},
		{"production without encryption key", func(c *Config) {
			c.Logger.Environment = "production"
			c.External.APIKey = "secret"
		}, "TOKEN_ENCRYPTION_KEY"},
		{"production without api key", func(c *Config) {
			c.Logger.Environment = "production"
			c.External.TokenEncryptionKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
		}, "API_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if tt.wantField == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantField, errs[0].Field)
		})
	}
}

func TestEncryptionKeyOptionalInDevelopment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.External.TokenEncryptionKey)
}
