// Package httpservice adapts the standard library's http.Server lifecycle
// to suture.Service, shared by the Telemetry Exporter and the Control API.
package httpservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Server matches *http.Server's lifecycle methods.
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// Service wraps an HTTP server as a supervised service: it starts
// ListenAndServe in a goroutine, waits for context cancellation or a
// server error, and on shutdown calls Shutdown with a bounded deadline.
type Service struct {
	server          Server
	shutdownTimeout time.Duration
	name            string
}

// New creates a Service. name identifies it in supervisor logs.
func New(name string, server Server, shutdownTimeout time.Duration) *Service {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &Service{server: server, shutdownTimeout: shutdownTimeout, name: name}
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s failed: %w", s.name, err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s shutdown failed: %w", s.name, err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements suture.Service.
func (s *Service) String() string {
	return s.name
}
