package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"docgate/internal/config"
	"docgate/internal/db"
	"docgate/internal/logging"
	"docgate/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the database and start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mgr := db.NewManager(cfg.DB(), newDialer(cfg, logger),
		db.WithLogger(logger),
		db.WithMetrics(db.NewMetrics(reg)),
	)
	srv := server.New(server.Config{
		Addr:           cfg.Addr(),
		Env:            cfg.Env,
		Version:        Version,
		ClientURL:      cfg.ClientURL,
		RateLimit:      cfg.RateLimit.Max,
		RateWindow:     cfg.RateLimit.Window,
		BodyLimitBytes: cfg.HTTP.BodyLimitBytes,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, mgr, server.WithLogger(logger), server.WithRegistry(reg))

	logger.Info("starting", "version", Version, "commit", Commit, "env", cfg.Env, "driver", cfg.Database.Driver)
	return serve(ctx, mgr, srv, cfg.HTTP.ShutdownTimeout, logger)
}

// setup loads and validates config and builds the logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	opts := logging.ForEnvironment(cfg.Env, cfg.Log.Level, cfg.Log.Format)
	logger := logging.New(opts)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("config_invalid", "error", err)
		return nil, nil, err
	}
	for _, w := range cfg.Warnings() {
		logger.Warn("config_warning", "warning", w)
	}
	return cfg, logger, nil
}

func newDialer(cfg *config.Config, logger *slog.Logger) db.Dialer {
	if cfg.Database.Driver == config.DriverPostgres {
		return db.PostgresDialer{}
	}
	return db.NewMongoDialer(logger)
}

// httpServer is the part of *server.Server that serve drives.
type httpServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serve connects the database, runs the HTTP server and tears both down when
// ctx is canceled, the server fails, or a background reconnect gives up. It
// returns nil only for a clean shutdown after ctx is canceled.
func serve(ctx context.Context, mgr *db.Manager, srv httpServer, shutdownTimeout time.Duration, logger *slog.Logger) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}

	if err := mgr.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info("shutting_down", "reason", "signal during connect")
			return closeManager(mgr, shutdownTimeout)
		}
		_ = closeManager(mgr, shutdownTimeout)
		return fmt.Errorf("connect database: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	var cause error
	select {
	case <-ctx.Done():
		logger.Info("shutting_down", "signal", "SIGTERM")
	case err := <-mgr.Fatal():
		logger.Error("db_reconnect_exhausted", "error", err)
		cause = fmt.Errorf("reconnect database: %w", err)
	case err := <-errCh:
		if err == nil {
			err = errors.New("http server stopped unexpectedly")
		}
		logger.Error("server_error", "error", err)
		cause = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var httpErr error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_error", "error", err)
		httpErr = fmt.Errorf("http shutdown: %w", err)
	}

	dbErr := closeManager(mgr, shutdownTimeout)
	if err := errors.Join(cause, httpErr, dbErr); err != nil {
		return err
	}
	logger.Info("shutdown_complete")
	return nil
}

func closeManager(mgr *db.Manager, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return mgr.Shutdown(ctx)
}
