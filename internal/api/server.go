package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"loothound/internal/config"
)

// Server runs the public HTTP API with a graceful drain on shutdown.
// Construction opens no listener; Run does.
type Server struct {
	http            *http.Server
	shutdownTimeout time.Duration
}

// NewServer wraps the handler in an http.Server with the configured
// timeouts. Use NewRouter directly with httptest for endpoint tests.
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:         cfg.Address,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Run serves until ctx is canceled, then drains in-flight requests within
// the shutdown timeout. New connections are refused during the drain.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("🌐 API server listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("🛑 API server draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return <-errCh
}
