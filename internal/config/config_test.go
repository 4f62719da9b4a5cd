package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every bound variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, names := range envBindings {
		for _, name := range names {
			t.Setenv(name, "")
			require.NoError(t, os.Unsetenv(name))
		}
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := load("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, 15*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Database.MaxPoolSize)
	assert.Equal(t, 5*time.Second, cfg.Database.ServerSelectionTimeout)
	assert.Equal(t, 45*time.Second, cfg.Database.SocketTimeout)
	assert.True(t, cfg.Database.ForceIPv4)
	assert.Equal(t, 3, cfg.Database.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Database.RetryInterval)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.Empty(t, cfg.Database.URI)

	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.Warnings())
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "Development")
	t.Setenv("PORT", "8081")
	t.Setenv("DATABASE_URL", "mongodb://fallback:27017/other")
	t.Setenv("MONGO_URI", "mongodb://db.internal:27017/app")
	t.Setenv("DB_RETRY_INTERVAL", "250ms")
	t.Setenv("DB_FORCE_IPV4", "false")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,10.0.0.2")

	cfg, err := load("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 8081, cfg.HTTP.Port)
	assert.Equal(t, "mongodb://db.internal:27017/app", cfg.Database.URI)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.RetryInterval)
	assert.False(t, cfg.Database.ForceIPv4)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.HTTP.TrustedProxies)

	dbCfg := cfg.DB()
	assert.True(t, dbCfg.Debug)
	assert.Equal(t, uint64(10), dbCfg.MaxPoolSize)
	assert.Equal(t, "mongodb://db.internal:27017/app", dbCfg.URI)
}

func TestLoad_DatabaseURLAlias(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "mongodb://fallback:27017/other")

	cfg, err := load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "mongodb://fallback:27017/other", cfg.Database.URI)
}

func TestLoad_ConfigFileAndDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	file := writeFile(t, dir, "config.yaml", `
env: production
client_url: https://app.example.com
http:
  port: 9000
database:
  uri: mongodb://from-file:27017/app
  max_retries: 5
log:
  level: warn
`)
	writeFile(t, dir, ".env", "MONGO_URI=mongodb://from-dotenv:27017/app\nLOG_LEVEL=error\nPORT=9100\n")
	t.Setenv("PORT", "9200")

	cfg, err := load(file, dir)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://app.example.com", cfg.ClientURL)
	assert.Equal(t, 5, cfg.Database.MaxRetries)
	// .env overrides the file, the real environment overrides .env.
	assert.Equal(t, "mongodb://from-dotenv:27017/app", cfg.Database.URI)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 9200, cfg.HTTP.Port)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := load(filepath.Join(t.TempDir(), "nope.yaml"), t.TempDir())
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	valid := func(t *testing.T) *Config {
		cfg, err := load("", t.TempDir())
		require.NoError(t, err)
		cfg.Database.URI = "mongodb://localhost:27017/app"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad env", func(c *Config) { c.Env = "qa" }, "NODE_ENV"},
		{"bad client url", func(c *Config) { c.ClientURL = "ftp://x" }, "CLIENT_URL"},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }, "PORT"},
		{"bad driver", func(c *Config) { c.Database.Driver = "redis" }, "DB_DRIVER"},
		{"scheme mismatch", func(c *Config) { c.Database.Driver = DriverPostgres }, "MONGO_URI"},
		{"zero retries", func(c *Config) { c.Database.MaxRetries = 0 }, "DB_MAX_RETRIES"},
		{"zero interval", func(c *Config) { c.Database.RetryInterval = 0 }, "DB_RETRY_INTERVAL"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "LOG_FORMAT"},
		{"zero rate limit", func(c *Config) { c.RateLimit.Max = 0 }, "RATE_LIMIT_MAX"},
		{"zero body limit", func(c *Config) { c.HTTP.BodyLimitBytes = 0 }, "BODY_LIMIT_BYTES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var errs ValidationErrors
			require.ErrorAs(t, err, &errs)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidate_PostgresScheme(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/app?sslmode=disable")

	cfg, err := load("", t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}
