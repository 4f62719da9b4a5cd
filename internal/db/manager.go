package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// closeTimeout bounds closing a stale handle before a reconnect.
const closeTimeout = 5 * time.Second

// Manager owns one database connection for the lifetime of the process.
type Manager struct {
	cfg     Config
	dialer  Dialer
	logger  *slog.Logger
	metrics *Metrics
	sleep   func(ctx context.Context, d time.Duration) error

	// ctx is canceled by Shutdown and bounds every background cycle.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	fatal  chan error

	mu         sync.Mutex
	state      State
	conn       Conn
	gen        uint64
	retryCount int
	connecting bool
	// pendingDisconnect records a disconnect of the current handle seen
	// while a connect cycle was still running.
	pendingDisconnect bool
	closed            bool
	host       string
	name       string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics enables prometheus metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithSleep replaces the wait between attempts. Tests use it as a fake clock.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Manager) {
		if sleep != nil {
			m.sleep = sleep
		}
	}
}

// NewManager creates a Manager. No connection is attempted until Connect.
func NewManager(cfg Config, dialer Dialer, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:    normalizeConfig(cfg),
		dialer: dialer,
		logger: slog.Default(),
		sleep:  sleepContext,
		ctx:    ctx,
		cancel: cancel,
		fatal:  make(chan error, 1),
		state:  StateDisconnected,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.metrics.setState(m.state)
	return m
}

// Connect establishes the connection, retrying transient failures with a
// fixed interval. It returns a *ConfigurationError when no URI is set and a
// *FatalConnectionError once every attempt has failed.
func (m *Manager) Connect(ctx context.Context) error {
	if strings.TrimSpace(m.cfg.URI) == "" {
		err := &ConfigurationError{Field: "connection URI"}
		m.logger.Error("db_config_invalid", "error", err)
		return err
	}

	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrClosed
	case m.connecting:
		m.mu.Unlock()
		return ErrConnectInProgress
	case m.state == StateConnected:
		m.mu.Unlock()
		return nil
	}
	m.connecting = true
	stale := m.releaseConnLocked()
	m.mu.Unlock()
	defer m.endCycle()

	m.closeStale(m.ctx, stale)

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.ctx, cancel)
	defer func() {
		stop()
		cancel()
	}()

	return m.connectWithRetry(ctx)
}

// Status reports the current connection state. It never blocks on I/O.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Status{
		Connected:  m.state == StateConnected,
		ReadyState: int(m.state),
		State:      m.state.String(),
		Host:       orUnknown(m.host),
		Name:       orUnknown(m.name),
		RetryCount: m.retryCount,
	}
}

// Fatal delivers the error of a background reconnect cycle that exhausted
// its retries. The channel is never closed.
func (m *Manager) Fatal() <-chan error {
	return m.fatal
}

// Shutdown closes the connection and stops every pending retry. Calls after
// the first return nil.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.transitionLocked(StateDisconnecting)
	conn := m.releaseConnLocked()
	m.mu.Unlock()

	m.cancel()

	var closeErr error
	if conn != nil {
		closeErr = conn.Close(ctx)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("db_shutdown_timeout", "error", ctx.Err())
	}

	m.mu.Lock()
	m.transitionLocked(StateDisconnected)
	m.mu.Unlock()

	if closeErr != nil {
		err := &ShutdownError{Err: closeErr}
		m.logger.Error("db_shutdown_failed", "error", closeErr)
		return err
	}
	m.logger.Info("db_connection_closed", "reason", "app_termination")
	return nil
}

// connectWithRetry runs one connect cycle: up to MaxRetries attempts spaced
// RetryInterval apart.
func (m *Manager) connectWithRetry(ctx context.Context) error {
	policy := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(m.cfg.RetryInterval),
		uint64(m.cfg.MaxRetries-1),
	)

	for {
		err := m.attempt(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrClosed) {
			return err
		}

		m.mu.Lock()
		closed := m.closed
		if !closed {
			m.retryCount++
			m.transitionLocked(StateDisconnected)
		}
		count := m.retryCount
		m.mu.Unlock()
		if closed {
			return ErrClosed
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		m.metrics.attempt(false)
		m.logger.Error("db_connect_failed",
			"attempt", count,
			"max_attempts", m.cfg.MaxRetries,
			"error", err,
		)

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			fatal := &FatalConnectionError{Attempts: count, Err: errors.Unwrap(err)}
			m.logger.Error("db_connect_exhausted", "attempts", count, "error", fatal.Err)
			return fatal
		}

		m.logger.Info("db_connect_retry",
			"attempt", count+1,
			"max_attempts", m.cfg.MaxRetries,
			"wait", wait,
		)
		if err := m.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// attempt performs a single dial. Failures are returned as
// *TransientConnectionError.
func (m *Manager) attempt(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.transitionLocked(StateConnecting)
	m.gen++
	gen := m.gen
	m.pendingDisconnect = false
	attempt := m.retryCount + 1
	m.mu.Unlock()

	conn, err := m.dialer.Dial(ctx, m.cfg, &eventSink{m: m, gen: gen})
	if err != nil {
		return &TransientConnectionError{Attempt: attempt, Err: err}
	}

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = conn.Close(closeCtx)
		return ErrClosed
	}
	m.conn = conn
	m.host = conn.Host()
	m.name = conn.Name()
	m.retryCount = 0
	lost := m.pendingDisconnect
	if lost {
		m.transitionLocked(StateDisconnected)
	} else {
		m.transitionLocked(StateConnected)
	}
	host, name := m.host, m.name
	m.mu.Unlock()

	m.metrics.attempt(true)
	m.logger.Info("db_connected", "host", orUnknown(host), "name", orUnknown(name))
	if lost {
		m.logger.Warn("db_disconnected_during_connect", "host", orUnknown(host))
	}
	return nil
}

// endCycle finishes a connect cycle. A disconnect of the new handle that
// arrived during the cycle starts a reconnect here.
func (m *Manager) endCycle() {
	m.mu.Lock()
	m.connecting = false
	pending := m.pendingDisconnect
	m.pendingDisconnect = false
	restart := pending && !m.closed && m.conn != nil
	if restart {
		if m.state == StateConnected {
			m.transitionLocked(StateDisconnected)
		}
		m.connecting = true
		m.wg.Add(1)
	}
	m.mu.Unlock()

	if restart {
		m.logger.Warn("db_disconnected")
		go m.reconnect()
	}
}

// releaseConnLocked detaches the current handle and invalidates its events.
// The caller must hold m.mu.
func (m *Manager) releaseConnLocked() Conn {
	conn := m.conn
	m.conn = nil
	m.gen++
	m.pendingDisconnect = false
	return conn
}

func (m *Manager) closeStale(ctx context.Context, conn Conn) {
	if conn == nil {
		return
	}
	closeCtx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()
	if err := conn.Close(closeCtx); err != nil {
		m.logger.Debug("db_stale_close_failed", "error", err)
	}
}

// reconnect runs a fresh connect cycle in the background after a disconnect.
func (m *Manager) reconnect() {
	defer m.wg.Done()
	defer m.endCycle()

	m.metrics.reconnect()
	m.logger.Warn("db_reconnecting")

	m.mu.Lock()
	stale := m.releaseConnLocked()
	m.mu.Unlock()
	m.closeStale(m.ctx, stale)

	err := m.connectWithRetry(m.ctx)
	if err == nil || errors.Is(err, ErrClosed) || m.ctx.Err() != nil {
		return
	}
	select {
	case m.fatal <- err:
	default:
	}
}

func (m *Manager) handleConnected(gen uint64) {
	m.metrics.event("connected")

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staleLocked(gen) {
		return
	}
	if m.connecting {
		m.pendingDisconnect = false
		if m.conn == nil {
			return
		}
	}
	if m.state == StateDisconnected && m.transitionLocked(StateConnected) {
		m.logger.Info("db_connection_restored", "host", orUnknown(m.host))
	}
}

func (m *Manager) handleError(gen uint64, err error) {
	m.metrics.event("error")

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staleLocked(gen) {
		return
	}
	m.logger.Error("db_connection_error", "error", err)
	if m.state == StateConnected {
		m.transitionLocked(StateDisconnected)
	}
}

func (m *Manager) handleDisconnected(gen uint64) {
	m.metrics.event("disconnected")

	m.mu.Lock()
	if m.staleLocked(gen) {
		m.mu.Unlock()
		return
	}
	if m.state == StateConnected {
		m.transitionLocked(StateDisconnected)
	}
	if m.connecting {
		m.pendingDisconnect = true
		m.mu.Unlock()
		return
	}
	m.connecting = true
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Warn("db_disconnected")
	go m.reconnect()
}

func (m *Manager) staleLocked(gen uint64) bool {
	return m.closed || gen != m.gen
}

// transitionLocked moves to the next state if the lifecycle allows it.
// The caller must hold m.mu.
func (m *Manager) transitionLocked(next State) bool {
	if !CanTransition(m.state, next) {
		m.logger.Debug("db_transition_rejected", "from", m.state.String(), "to", next.String())
		return false
	}
	m.state = next
	m.metrics.setState(next)
	return true
}

// eventSink binds transport events to the handle generation that produced them.
type eventSink struct {
	m   *Manager
	gen uint64
}

func (s *eventSink) Connected()      { s.m.handleConnected(s.gen) }
func (s *eventSink) Disconnected()   { s.m.handleDisconnected(s.gen) }
func (s *eventSink) Error(err error) { s.m.handleError(s.gen, err) }

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
