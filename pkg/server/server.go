package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"prismgw/prism/pkg/config"
	"prismgw/prism/pkg/gateway"
	"prismgw/prism/pkg/gateway/middleware"
	"prismgw/prism/pkg/telemetry/metrics"
)

// Server is the gateway's HTTP listener.
type Server struct {
	config       *config.ServerConfig
	gw           *gateway.Gateway
	metrics      *metrics.Collector
	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server over a configured gateway. The metrics collector
// may be nil, which disables the /metrics route.
func New(cfg *config.ServerConfig, gw *gateway.Gateway, collector *metrics.Collector) *Server {
	return &Server{
		config:  cfg,
		gw:      gw,
		metrics: collector,
	}
}

// Start starts the HTTP server and blocks until shutdown. The server
// stops on ctx cancellation, SIGINT, or SIGTERM.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: s.config.ReadTimeout,
		// WriteTimeout stays at its configured value, zero by default:
		// streamed completions can legitimately run for minutes.
		WriteTimeout: s.config.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting gateway server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server, letting in-flight requests
// finish within the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("gateway server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is accepting requests.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the fully configured HTTP handler, for tests and
// embedding.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes registers the gateway's routes and wraps them in the
// middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/v1/chat/completions", gateway.NewChatHandler(s.gw))
	mux.Handle("/v1/messages", gateway.NewMessagesHandler(s.gw))
	mux.Handle("/v1/models", gateway.NewModelsHandler(s.gw))
	mux.Handle("/health", gateway.NewHealthHandler(s.gw))
	mux.Handle("/prism/stats", gateway.NewStatsHandler(s.gw))

	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.Timeout(s.config.WriteTimeout)(handler)
	handler = middleware.CORS(middleware.DefaultCORSConfig())(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Logging(handler)
	handler = middleware.Recovery(handler)

	return handler
}
