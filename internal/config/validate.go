package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError is one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// ValidationErrors is returned by Validate when at least one setting is invalid.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d error(s):", len(errs))
	for i, err := range errs {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, err.Error())
	}
	return sb.String()
}

// Validator collects validation errors.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates an empty Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// AddError records a validation error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// Err returns the collected errors, or nil when there are none.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return v.errors
}

// ValidateURL checks that a non-empty value is an absolute http(s) URL.
func (v *Validator) ValidateURL(key, value string) {
	if value == "" {
		return
	}
	parsed, err := url.Parse(value)
	if err != nil {
		v.AddError(key, fmt.Sprintf("invalid URL format: %v", err))
		return
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		v.AddError(key, "URL must use http or https scheme")
		return
	}
	if parsed.Host == "" {
		v.AddError(key, "URL must include a host")
	}
}

// ValidatePort checks the value is a TCP port.
func (v *Validator) ValidatePort(key string, port int) {
	if port < 1 || port > 65535 {
		v.AddError(key, "port must be between 1 and 65535")
	}
}

// ValidateEnum checks that a non-empty value is one of allowed.
func (v *Validator) ValidateEnum(key, value string, allowed []string) {
	if value == "" {
		return
	}
	for _, opt := range allowed {
		if strings.EqualFold(value, opt) {
			return
		}
	}
	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

// ValidatePositiveInt checks n > 0.
func (v *Validator) ValidatePositiveInt(key string, n int64) {
	if n <= 0 {
		v.AddError(key, "must be a positive integer")
	}
}

// ValidatePositiveDuration checks d > 0.
func (v *Validator) ValidatePositiveDuration(key string, d time.Duration) {
	if d <= 0 {
		v.AddError(key, "must be a positive duration (e.g. 5s, 500ms)")
	}
}

// ValidateScheme checks that a non-empty connection string uses one of schemes.
func (v *Validator) ValidateScheme(key, value string, schemes []string) {
	if value == "" {
		return
	}
	for _, s := range schemes {
		if strings.HasPrefix(value, s+"://") {
			return
		}
	}
	v.AddError(key, fmt.Sprintf("must use one of the schemes: %s", strings.Join(schemes, ", ")))
}

var driverSchemes = map[string][]string{
	DriverMongo:    {"mongodb", "mongodb+srv"},
	DriverPostgres: {"postgres", "postgresql"},
}

// Validate checks every setting. A missing connection URI is not an error
// here; the connection manager reports it when connecting.
func (c *Config) Validate() error {
	v := NewValidator()

	v.ValidateEnum("NODE_ENV", c.Env, []string{"development", "production", "test", "staging"})
	v.ValidateURL("CLIENT_URL", c.ClientURL)

	v.ValidatePort("PORT", c.HTTP.Port)
	v.ValidatePositiveDuration("SHUTDOWN_TIMEOUT", c.HTTP.ShutdownTimeout)
	v.ValidatePositiveInt("BODY_LIMIT_BYTES", c.HTTP.BodyLimitBytes)

	v.ValidateEnum("LOG_LEVEL", c.Log.Level, []string{"debug", "info", "warn", "error"})
	v.ValidateEnum("LOG_FORMAT", c.Log.Format, []string{"json", "text"})

	d := c.Database
	if schemes, ok := driverSchemes[d.Driver]; ok {
		v.ValidateScheme("MONGO_URI", strings.TrimSpace(d.URI), schemes)
	} else {
		v.AddError("DB_DRIVER", fmt.Sprintf("must be one of: %s, %s (got: %s)", DriverMongo, DriverPostgres, d.Driver))
	}
	v.ValidatePositiveInt("DB_MAX_POOL_SIZE", int64(d.MaxPoolSize))
	v.ValidatePositiveDuration("DB_SERVER_SELECTION_TIMEOUT", d.ServerSelectionTimeout)
	v.ValidatePositiveDuration("DB_SOCKET_TIMEOUT", d.SocketTimeout)
	v.ValidatePositiveInt("DB_MAX_RETRIES", int64(d.MaxRetries))
	v.ValidatePositiveDuration("DB_RETRY_INTERVAL", d.RetryInterval)
	v.ValidatePositiveDuration("DB_HEARTBEAT_INTERVAL", d.HeartbeatInterval)

	v.ValidatePositiveInt("RATE_LIMIT_MAX", int64(c.RateLimit.Max))
	v.ValidatePositiveDuration("RATE_LIMIT_WINDOW", c.RateLimit.Window)

	return v.Err()
}

// Warnings lists optional settings that are missing but recommended.
func (c *Config) Warnings() []string {
	var warnings []string
	if strings.TrimSpace(c.Database.URI) == "" {
		warnings = append(warnings, "MONGO_URI not set - the database connection will fail")
	}
	if c.ClientURL == "" {
		warnings = append(warnings, "CLIENT_URL not set - CORS allows any origin without credentials")
	}
	if c.Env == "" {
		warnings = append(warnings, "NODE_ENV not set - running without development or production defaults")
	}
	if c.IsProduction() && c.Log.Level == "debug" {
		warnings = append(warnings, "LOG_LEVEL=debug in production")
	}
	return warnings
}
