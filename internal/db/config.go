package db

import "time"

const (
	DefaultMaxRetries             = 3
	DefaultRetryInterval          = 5 * time.Second
	DefaultMaxPoolSize            = 10
	DefaultServerSelectionTimeout = 5 * time.Second
	DefaultSocketTimeout          = 45 * time.Second
	DefaultHeartbeatInterval      = 10 * time.Second
)

// Config holds connection settings shared by every Dialer.
type Config struct {
	URI string

	MaxPoolSize            uint64
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
	ForceIPv4              bool

	MaxRetries    int
	RetryInterval time.Duration

	// HeartbeatInterval is used by dialers that poll for liveness themselves.
	HeartbeatInterval time.Duration

	// Debug enables per-command logging in the driver.
	Debug bool
}

// DefaultConfig returns the settings the server uses when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		MaxPoolSize:            DefaultMaxPoolSize,
		ServerSelectionTimeout: DefaultServerSelectionTimeout,
		SocketTimeout:          DefaultSocketTimeout,
		ForceIPv4:              true,
		MaxRetries:             DefaultMaxRetries,
		RetryInterval:          DefaultRetryInterval,
		HeartbeatInterval:      DefaultHeartbeatInterval,
	}
}

// normalizeConfig fills zero or negative values with defaults.
func normalizeConfig(cfg Config) Config {
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = DefaultMaxPoolSize
	}
	if cfg.ServerSelectionTimeout <= 0 {
		cfg.ServerSelectionTimeout = DefaultServerSelectionTimeout
	}
	if cfg.SocketTimeout <= 0 {
		cfg.SocketTimeout = DefaultSocketTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return cfg
}
