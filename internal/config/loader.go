package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"docgate/internal/db"
)

// envBindings maps config keys to the environment variables that set them.
// The first name listed wins when several are set.
var envBindings = map[string][]string{
	"env":                               {"NODE_ENV", "APP_ENV"},
	"client_url":                        {"CLIENT_URL"},
	"http.port":                         {"PORT"},
	"http.shutdown_timeout":             {"SHUTDOWN_TIMEOUT"},
	"http.body_limit_bytes":             {"BODY_LIMIT_BYTES"},
	"http.trusted_proxies":              {"TRUSTED_PROXIES"},
	"log.level":                         {"LOG_LEVEL"},
	"log.format":                        {"LOG_FORMAT"},
	"database.driver":                   {"DB_DRIVER"},
	"database.uri":                      {"MONGO_URI", "DATABASE_URL"},
	"database.max_pool_size":            {"DB_MAX_POOL_SIZE"},
	"database.server_selection_timeout": {"DB_SERVER_SELECTION_TIMEOUT"},
	"database.socket_timeout":           {"DB_SOCKET_TIMEOUT"},
	"database.force_ipv4":               {"DB_FORCE_IPV4"},
	"database.max_retries":              {"DB_MAX_RETRIES"},
	"database.retry_interval":           {"DB_RETRY_INTERVAL"},
	"database.heartbeat_interval":       {"DB_HEARTBEAT_INTERVAL"},
	"rate_limit.max":                    {"RATE_LIMIT_MAX"},
	"rate_limit.window":                 {"RATE_LIMIT_WINDOW"},
}

// Load reads configuration. configFile may be empty, in which case
// config.yaml is looked up in the working directory and /etc/docgate.
// A .env file in the working directory fills variables that are not set in
// the real environment.
func Load(configFile string) (*Config, error) {
	return load(configFile, ".")
}

func load(configFile, dotEnvDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/docgate/")
	}

	for _, key := range sortedKeys() {
		names := envBindings[key]
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := loadDotEnv(v, dotEnvDir); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "")
	v.SetDefault("client_url", "")

	v.SetDefault("http.port", 3000)
	v.SetDefault("http.shutdown_timeout", "15s")
	v.SetDefault("http.body_limit_bytes", 10<<10)
	v.SetDefault("http.trusted_proxies", []string{})

	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "")

	dbDefaults := db.DefaultConfig()
	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.uri", "")
	v.SetDefault("database.max_pool_size", int(dbDefaults.MaxPoolSize))
	v.SetDefault("database.server_selection_timeout", dbDefaults.ServerSelectionTimeout)
	v.SetDefault("database.socket_timeout", dbDefaults.SocketTimeout)
	v.SetDefault("database.force_ipv4", dbDefaults.ForceIPv4)
	v.SetDefault("database.max_retries", dbDefaults.MaxRetries)
	v.SetDefault("database.retry_interval", dbDefaults.RetryInterval)
	v.SetDefault("database.heartbeat_interval", dbDefaults.HeartbeatInterval)

	v.SetDefault("rate_limit.max", 100)
	v.SetDefault("rate_limit.window", "15m")
}

// loadDotEnv copies values from dir/.env for variables the real environment
// does not define. Real environment variables always win.
func loadDotEnv(v *viper.Viper, dir string) error {
	file := filepath.Clean(filepath.Join(dir, ".env"))
	if _, err := os.Stat(file); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat .env: %w", err)
	}

	envViper := viper.New()
	envViper.SetConfigFile(file)
	envViper.SetConfigType("env")
	if err := envViper.ReadInConfig(); err != nil {
		return fmt.Errorf("read .env: %w", err)
	}

	for _, key := range sortedKeys() {
		if envDefined(envBindings[key]) {
			continue
		}
		for _, name := range envBindings[key] {
			if val := envViper.GetString(name); val != "" {
				v.Set(key, val)
				break
			}
		}
	}
	return nil
}

func envDefined(names []string) bool {
	for _, name := range names {
		if _, ok := os.LookupEnv(name); ok {
			return true
		}
	}
	return false
}

func sortedKeys() []string {
	keys := make([]string, 0, len(envBindings))
	for k := range envBindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
