package db

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches any ConfigurationError.
	ErrConfiguration = errors.New("database configuration invalid")

	// ErrRetriesExhausted matches any FatalConnectionError.
	ErrRetriesExhausted = errors.New("database connection retries exhausted")

	// ErrClosed is returned by operations attempted after Shutdown.
	ErrClosed = errors.New("database manager is shut down")

	// ErrConnectInProgress is returned when Connect is called while a connect
	// or reconnect cycle is already running.
	ErrConnectInProgress = errors.New("database connect already in progress")
)

// ConfigurationError reports a required setting that is missing. It is never retried.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("database %s is not configured", e.Field)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// TransientConnectionError is one failed connection attempt.
type TransientConnectionError struct {
	Attempt int
	Err     error
}

func (e *TransientConnectionError) Error() string {
	return fmt.Sprintf("connection attempt %d failed: %v", e.Attempt, e.Err)
}

func (e *TransientConnectionError) Unwrap() error { return e.Err }

// FatalConnectionError is returned once the retry budget of a cycle is spent.
type FatalConnectionError struct {
	Attempts int
	Err      error
}

func (e *FatalConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to database after %d attempts: %v", e.Attempts, e.Err)
}

func (e *FatalConnectionError) Unwrap() error { return e.Err }

func (e *FatalConnectionError) Is(target error) bool { return target == ErrRetriesExhausted }

// ShutdownError wraps a failure to close the connection during termination.
type ShutdownError struct {
	Err error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("error during database disconnection: %v", e.Err)
}

func (e *ShutdownError) Unwrap() error { return e.Err }
