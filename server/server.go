package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/listicons/auth"
	"github.com/jonwraymond/listicons/health"
	"github.com/jonwraymond/listicons/identity"
	"github.com/jonwraymond/listicons/observe"
)

// IconSource produces player icons.
type IconSource interface {
	Icon(ctx context.Context, player identity.Player) ([]byte, error)
	Invalidate(ctx context.Context, player identity.Player) error
}

// Config configures a Server.
type Config struct {
	// Bind is the listen address, e.g. "127.0.0.1:8765".
	Bind string

	// Icons and Directory are required.
	Icons     IconSource
	Directory identity.Directory

	// Health backs the probe routes. Default: an empty aggregator.
	Health *health.Aggregator

	// Authenticator guards admin routes. With none, admin routes answer 401.
	Authenticator auth.Authenticator

	// PrometheusMetrics mounts promhttp.Handler on /metrics.
	PrometheusMetrics bool

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration

	// Observer supplies request telemetry. Default: observe.NopObserver().
	Observer observe.Observer
}

// Server is the listiconsd HTTP API.
type Server struct {
	cfg    Config
	mux    *http.ServeMux
	mw     *observe.Middleware
	logger observe.Logger
	http   *http.Server
}

// New builds a Server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Icons == nil || cfg.Directory == nil {
		return nil, errors.New("server: icons and directory are required")
	}
	if cfg.Health == nil {
		cfg.Health = health.NewAggregator(0)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Observer == nil {
		cfg.Observer = observe.NopObserver()
	}
	logger := cfg.Observer.Logger().With(observe.F("component", "http"))
	metrics, err := observe.NewMetrics(cfg.Observer.Meter())
	if err != nil {
		return nil, fmt.Errorf("server: metrics: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		mux:    http.NewServeMux(),
		mw:     observe.NewMiddleware(observe.NewTracer(cfg.Observer.Tracer()), metrics, logger),
		logger: logger,
	}
	s.routes()
	s.http = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() {
	admin := func(action string, h http.HandlerFunc) http.Handler {
		return auth.Middleware(s.cfg.Authenticator, auth.RequireRole("admin"), action)(h)
	}

	s.handle("GET /v1/icon", http.HandlerFunc(s.handleIcon))
	s.handle("GET /v1/favicon", http.HandlerFunc(s.handleFavicon))
	s.handle("GET /v1/players/{uuid}/icon", auth.Optional(s.cfg.Authenticator)(http.HandlerFunc(s.handlePlayerIcon)))
	s.handle("DELETE /v1/players/{uuid}/icon", admin("invalidate", s.handleInvalidate))
	s.handle("POST /v1/joins", admin("record", s.handleJoin))
	s.handle("DELETE /v1/addresses", admin("clear", s.handleClear))
	s.handle("DELETE /v1/addresses/{uuid}", admin("clear_player", s.handleClearPlayer))

	health.RegisterHandlers(s.mux, s.cfg.Health)
	if s.cfg.PrometheusMetrics {
		s.mux.Handle("GET /metrics", promhttp.Handler())
	}
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve accepts connections on l until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(l)
	}()
	s.logger.Info(ctx, "http server listening", observe.F("address", l.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info(shutdownCtx, "http server stopped")
	return nil
}

// ListenAndServe listens on Config.Bind and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Bind)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	return s.Serve(ctx, l)
}
