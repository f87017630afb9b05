// Package httpx wraps http.Server with context-driven graceful shutdown.
package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 30 * time.Second
	readTimeout       = 1 * time.Minute
	writeTimeout      = 1 * time.Minute
	shutdownTimeout   = 5 * time.Second
)

type Server struct{ *http.Server }

func New(addr string, h http.Handler) *Server {
	return &Server{Server: &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}}
}

// NewStreaming builds a server without a write timeout, for endpoints that
// hold long-lived connections (WebSocket upgrades).
func NewStreaming(addr string, h http.Handler) *Server {
	return &Server{Server: &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}}
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()
	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.Shutdown(sctx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
