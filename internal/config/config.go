// Package config loads process settings from defaults, an optional YAML file,
// an optional .env file and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"docgate/internal/db"
)

// Config aggregates every setting of the server.
type Config struct {
	Env       string          `mapstructure:"env"`
	ClientURL string          `mapstructure:"client_url"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// HTTPConfig defines the listener and request limits.
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BodyLimitBytes  int64         `mapstructure:"body_limit_bytes"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
}

// LogConfig defines the log level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig defines the outbound database connection.
type DatabaseConfig struct {
	Driver                 string        `mapstructure:"driver"`
	URI                    string        `mapstructure:"uri"`
	MaxPoolSize            int           `mapstructure:"max_pool_size"`
	ServerSelectionTimeout time.Duration `mapstructure:"server_selection_timeout"`
	SocketTimeout          time.Duration `mapstructure:"socket_timeout"`
	ForceIPv4              bool          `mapstructure:"force_ipv4"`
	MaxRetries             int           `mapstructure:"max_retries"`
	RetryInterval          time.Duration `mapstructure:"retry_interval"`
	HeartbeatInterval      time.Duration `mapstructure:"heartbeat_interval"`
}

// RateLimitConfig defines the per-client request budget.
type RateLimitConfig struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// IsProduction reports whether the server runs in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}

// DB converts the database settings for the connection manager.
func (c *Config) DB() db.Config {
	maxPool := uint64(0)
	if c.Database.MaxPoolSize > 0 {
		maxPool = uint64(c.Database.MaxPoolSize)
	}
	return db.Config{
		URI:                    strings.TrimSpace(c.Database.URI),
		MaxPoolSize:            maxPool,
		ServerSelectionTimeout: c.Database.ServerSelectionTimeout,
		SocketTimeout:          c.Database.SocketTimeout,
		ForceIPv4:              c.Database.ForceIPv4,
		MaxRetries:             c.Database.MaxRetries,
		RetryInterval:          c.Database.RetryInterval,
		HeartbeatInterval:      c.Database.HeartbeatInterval,
		Debug:                  c.IsDevelopment(),
	}
}
