package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/httpsys/internal/logger"
	"github.com/marmos91/httpsys/pkg/api/handlers"
)

// Server provides the status API over HTTP.
//
// Endpoints:
//   - GET  /health: Liveness probe
//   - GET  /health/ready: Readiness probe
//   - GET  /api/v1/status: Listener status
//   - GET  /api/v1/features: HTTP Server API capabilities
//   - GET  /api/v1/delegations: Delegation rules
//   - POST /api/v1/delegations: Create a delegation rule
//   - GET  /metrics: Prometheus metrics, when enabled
type Server struct {
	server       *http.Server
	config       APIConfig
	shutdownOnce sync.Once

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a stopped API server for listener. features may be nil.
func NewServer(config APIConfig, listener handlers.ListenerService, features handlers.FeatureSource) *Server {
	config.ApplyDefaults()

	return &Server{
		server: &http.Server{
			Addr:         config.Addr(),
			Handler:      NewRouter(listener, features),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		config: config,
	}
}

// Start binds the configured address and serves until ctx is cancelled or
// the server fails. A bind failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("API server failed to listen on %s: %w", s.server.Addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "address", ln.Addr().String())
		logger.Debug("API endpoints available",
			"health", fmt.Sprintf("http://%s/health", ln.Addr()),
			"status", fmt.Sprintf("http://%s/api/v1/status", ln.Addr()),
		)

		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// The cancelled ctx would abort the shutdown immediately.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop gracefully shuts the server down. Safe to call more than once and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
			return
		}
		logger.Info("API server stopped gracefully")
	})
	return shutdownErr
}

// Addr returns the bound address once Start has bound it, nil before.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.config.Port
}
