package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kisanmitra/agriadvisor/advisor"
	"github.com/kisanmitra/agriadvisor/auth"
	"github.com/kisanmitra/agriadvisor/health"
	"github.com/kisanmitra/agriadvisor/observe"
)

// Config configures the HTTP server.
type Config struct {
	Addr string

	// ReadTimeout default: 30 seconds
	ReadTimeout time.Duration

	// WriteTimeout must exceed the slowest upstream call.
	// Default: 90 seconds
	WriteTimeout time.Duration

	// MaxRequestBytes bounds request bodies; crop photos are the largest.
	// Default: 10 MiB
	MaxRequestBytes int64
}

// Deps are the collaborators served over HTTP.
type Deps struct {
	Service *advisor.Service

	// Health is mounted at /healthz, /readyz and /health when set.
	Health *health.Aggregator

	// Gatherer is served at /metrics when set.
	Gatherer prometheus.Gatherer

	// Auth guards /v1 when set.
	Auth auth.Authenticator

	Logger observe.Logger
}

// Server is the agriadvisord HTTP API.
type Server struct {
	svc     *advisor.Service
	logger  observe.Logger
	handler http.Handler
	http    *http.Server
}

// New builds the routes for deps.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Service == nil {
		return nil, ErrNilService
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 90 * time.Second
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = 10 << 20
	}
	logger := deps.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	s := &Server{svc: deps.Service, logger: logger}

	api := http.NewServeMux()
	s.routes(api)

	var v1 http.Handler = api
	if deps.Auth != nil {
		v1 = auth.Middleware(deps.Auth, s.writeAuthError)(v1)
	}

	root := http.NewServeMux()
	root.Handle("/v1/", withBodyLimit(cfg.MaxRequestBytes, v1))
	if deps.Health != nil {
		health.RegisterHandlers(root, deps.Health)
	}
	if deps.Gatherer != nil {
		root.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	s.handler = withRequestID(withLogging(logger)(root))
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on ln until ctx is done, then shuts down within
// shutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", observe.Field{Key: "addr", Value: ln.Addr().String()})
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info(shutdownCtx, "http server stopped")
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, err)
}
