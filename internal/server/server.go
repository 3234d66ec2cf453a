// Package server provides the HTTP server for the placeholder todo API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/todo-crud/internal/auth"
	"github.com/vyrodovalexey/todo-crud/internal/config"
	"github.com/vyrodovalexey/todo-crud/internal/handler"
	"github.com/vyrodovalexey/todo-crud/internal/middleware"
	"github.com/vyrodovalexey/todo-crud/internal/store"
)

// tracingOperation names the server span opened for every request.
const tracingOperation = "todos-api"

// Server represents the HTTP server.
type Server struct {
	httpServer    *http.Server
	probeServer   *http.Server
	router        *mux.Router
	config        *config.Config
	logger        *zap.Logger
	hub           *handler.ChangeHub
	authenticator auth.Authenticator
	registerer    prometheus.Registerer
	gatherer      prometheus.Gatherer
	ready         atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithAuthenticator protects the todo routes. A nil authenticator leaves
// them open.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(s *Server) { s.authenticator = a }
}

// WithRegistry records and exposes metrics on reg instead of the global
// Prometheus registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registerer = reg
		s.gatherer = reg
	}
}

// New creates a new Server instance serving todoStore.
func New(cfg *config.Config, logger *zap.Logger, todoStore store.Store, opts ...Option) (*Server, error) {
	s := &Server{
		router:     mux.NewRouter(),
		config:     cfg,
		logger:     logger,
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setupMiddleware(); err != nil {
		return nil, err
	}
	s.setupRoutes(todoStore)
	s.setupHTTPServers()

	return s, nil
}

// setupMiddleware configures the middleware chain.
func (s *Server) setupMiddleware() error {
	// First applied = outermost.
	chain := []middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
	}

	if s.config.MetricsEnabled {
		metrics, err := middleware.Metrics(s.registerer)
		if err != nil {
			return fmt.Errorf("setup metrics middleware: %w", err)
		}
		chain = append(chain, metrics)
	}

	chain = append(chain,
		middleware.Logging(s.logger),
		middleware.CORS(middleware.DefaultCORSPolicy()),
	)

	if s.authenticator != nil {
		chain = append(chain, middleware.Auth(s.authenticator, s.logger))
	}

	chain = append(chain, middleware.Tracing(tracingOperation))

	for _, mw := range chain {
		s.router.Use(mux.MiddlewareFunc(mw))
	}
	return nil
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes(todoStore store.Store) {
	s.hub = handler.NewChangeHub(s.logger)
	s.hub.RegisterRoutes(s.router)

	restHandler := handler.NewRESTHandler(todoStore, s.hub, s.logger)
	restHandler.RegisterRoutes(s.router)

	s.router.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet, http.MethodOptions)

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", s.metricsHandler()).Methods(http.MethodGet, http.MethodOptions)
	}
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}

// handleReady reports 200 while the server is accepting traffic.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status, code := "ready", http.StatusOK
	if !s.ready.Load() {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, "{\"status\":%q}\n", status)
}

// setupHTTPServers configures the API server and the optional probe server.
func (s *Server) setupHTTPServers() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	if s.config.ProbePort == 0 {
		return
	}

	probes := mux.NewRouter()
	probes.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	probes.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, "{\"status\":\"healthy\",\"version\":%q}\n", handler.Version)
	}).Methods(http.MethodGet)
	if s.config.MetricsEnabled {
		probes.Handle("/metrics", s.metricsHandler()).Methods(http.MethodGet)
	}

	s.probeServer = &http.Server{
		Addr:              s.config.ProbeAddress(),
		Handler:           probes,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Start starts the HTTP servers and blocks until the API server stops.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
		zap.Bool("auth_enabled", s.authenticator != nil),
	)

	if s.probeServer != nil {
		go func() {
			s.logger.Info("starting probe server", zap.String("address", s.config.ProbeAddress()))
			if err := s.probeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("probe server failed", zap.Error(err))
			}
		}()
	}

	s.ready.Store(true)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.ready.Store(false)
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	s.ready.Store(false)

	// Subscribers get a close frame before the listener goes away.
	s.hub.CloseAllConnections()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if s.probeServer != nil {
		if err := s.probeServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("probe server shutdown: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Hub returns the change feed hub.
func (s *Server) Hub() *handler.ChangeHub {
	return s.hub
}
