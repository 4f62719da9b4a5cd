package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docgate/internal/db"
)

// StatusReporter exposes the database connection state.
type StatusReporter interface {
	Status() db.Status
}

type Config struct {
	Addr           string // e.g. ":3000"
	Env            string
	Version        string
	ClientURL      string
	RateLimit      int
	RateWindow     time.Duration
	BodyLimitBytes int64
	TrustedProxies []string
}

func (c Config) production() bool  { return c.Env == "production" }
func (c Config) development() bool { return c.Env == "development" }

type Server struct {
	cfg        Config
	db         StatusReporter
	logger     *slog.Logger
	registry   *prometheus.Registry
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access and error logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry serves and records HTTP metrics on reg instead of a
// private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

func New(cfg Config, database StatusReporter, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		db:     database,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	dev := s.cfg.development()

	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(s.logger))
	r.Use(newHTTPMetrics(s.registry).middleware)
	r.Use(recoverMiddleware(s.logger, dev))
	r.Use(securityHeadersMiddleware(s.cfg.production()))
	r.Use(corsMiddleware(newCORSConfig(s.cfg.ClientURL)))
	r.Use(newRateLimiter(s.cfg.RateLimit, s.cfg.RateWindow, newProxyTrust(s.cfg.TrustedProxies)).middleware)
	r.Use(bodyLimitMiddleware(s.cfg.BodyLimitBytes, dev))
	r.Use(sanitizeMiddleware(dev))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil, false)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil, false)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Hello world"))
	})
	r.Get("/health", s.HandleHealth)
	r.Get("/live", s.HandleLive)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil after a graceful Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http_listening", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
