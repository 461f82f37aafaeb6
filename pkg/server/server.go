// Package server provides the HTTP server of the gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
	"github.com/igamenovoer/my-litellm-proxy/pkg/limits"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/handlers"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/middleware"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/types"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
	"github.com/igamenovoer/my-litellm-proxy/pkg/security/auth"
	"github.com/igamenovoer/my-litellm-proxy/pkg/telemetry/tracing"
)

// Deps are the components the server routes requests to.
type Deps struct {
	// Models is the live registry.
	Models *registry.Store

	// Router orders candidate deployments per request.
	Router handlers.CandidateSelector

	// Dispatcher runs requests against upstreams.
	Dispatcher handlers.Dispatcher

	// Health reports per-deployment breaker state.
	Health handlers.HealthReporter

	// Auth authenticates callers. Nil leaves every route open.
	Auth *auth.Middleware

	// Limits enforces per-key request limits after Auth. Optional.
	Limits *limits.Manager

	// Tracer starts a server span per request. Optional.
	Tracer *tracing.Tracer

	// Metrics serves MetricsPath. Optional.
	Metrics http.Handler

	// MetricsPath defaults to "/metrics".
	MetricsPath string

	// Readiness serves /health/readiness. Optional.
	Readiness http.Handler

	// Version serves /version. Optional.
	Version http.Handler

	// Observers are notified of every completion request.
	Observers []handlers.RequestObserver

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the gateway HTTP server.
type Server struct {
	config     *config.ServerConfig
	deps       Deps
	logger     *slog.Logger
	httpServer *http.Server
	handler    http.Handler

	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// NewServer creates a server. Routes are built once here.
func NewServer(cfg *config.ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config: cfg,
		deps:   deps,
		logger: logger,
	}
	s.handler = s.setupRoutes()
	return s
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled or the server fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		_ = ln.Close()
		return errors.New("server is already running")
	}
	s.isRunning = true
	s.addr = ln.Addr()
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting gateway server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		if !ok {
			return nil
		}
		return err
	}
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests and streams.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		srv := s.httpServer
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("gateway server stopped")
	})

	return shutdownErr
}

// setupRoutes builds the router. Middleware order, outermost first:
// recovery, request id, tracing, logging, CORS, then authentication and
// per-key limits on the /v1 routes only.
func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.RequestIDMiddleware)
	if s.deps.Tracer != nil {
		r.Use(tracing.Middleware(s.deps.Tracer))
	}
	r.Use(middleware.LoggingMiddleware(s.logger))
	if s.config.CORS.Enabled {
		r.Use(cors.Handler(corsOptions(s.config.CORS)))
	}

	r.Get("/health", handlers.NewHealthHandler().ServeHTTP)
	r.Get("/health/deployments", handlers.NewDeploymentsHandler(s.deps.Models, s.deps.Health).ServeHTTP)
	if s.deps.Readiness != nil {
		r.Method(http.MethodGet, "/health/readiness", s.deps.Readiness)
	}
	if s.deps.Version != nil {
		r.Method(http.MethodGet, "/version", s.deps.Version)
	}
	if s.deps.Metrics != nil {
		path := s.deps.MetricsPath
		if path == "" {
			path = config.DefaultMetricsPath
		}
		r.Method(http.MethodGet, path, s.deps.Metrics)
	}

	maxBody := s.config.MaxBodyBytes
	chat := handlers.NewChatHandler(s.deps.Models, s.deps.Router, s.deps.Dispatcher, maxBody, s.logger, s.deps.Observers...)
	completion := handlers.NewCompletionHandler(s.deps.Models, s.deps.Router, s.deps.Dispatcher, maxBody, s.logger, s.deps.Observers...)
	models := handlers.NewModelsHandler(s.deps.Models)

	r.Group(func(r chi.Router) {
		if s.deps.Auth != nil {
			r.Use(s.deps.Auth.Handle)
		}
		if s.deps.Limits != nil {
			r.Use(s.deps.Limits.Handle)
		}
		// OpenAI clients are configured with either the bare host or
		// host/v1 as their base URL.
		for _, prefix := range []string{"/v1", ""} {
			r.Post(prefix+"/chat/completions", chat.ServeHTTP)
			r.Post(prefix+"/completions", completion.ServeHTTP)
			r.Get(prefix+"/models", models.ServeHTTP)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = proxy.WriteErrorResponse(w, http.StatusNotFound, types.NewNotFoundError(
			fmt.Sprintf("Unknown path %s", r.URL.Path), "", "unknown_url",
		))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = proxy.WriteErrorResponse(w, http.StatusMethodNotAllowed, types.NewInvalidRequestError(
			fmt.Sprintf("Method %s is not allowed on %s", r.Method, r.URL.Path), "", "method_not_allowed",
		))
	})

	return r
}

func corsOptions(c config.CORSConfig) cors.Options {
	return cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   c.AllowedMethods,
		AllowedHeaders:   c.AllowedHeaders,
		ExposedHeaders:   c.ExposedHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAge,
	}
}

// IsRunning returns true if the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound address once serving, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}
