package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chronolens/chronolens/internal/logger"
)

// Server is the API HTTP server with graceful shutdown.
type Server struct {
	server       *http.Server
	listenOn     string
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server listening on the given address.
//
// The server is created in a stopped state. Call Start() to begin serving
// requests. The write timeout is left unset because uploads of multi-gigabyte
// originals can legitimately take minutes; the router applies a per-request
// timeout instead.
func NewServer(listenOn string, deps Deps) *Server {
	return &Server{
		server: &http.Server{
			Addr:              listenOn,
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		listenOn: listenOn,
	}
}

// Start starts the server and blocks until the context is cancelled or an
// error occurs. Cancellation triggers graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "address", s.listenOn)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// Don't use the cancelled ctx; it would abort in-flight requests.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}
