// Package http serves the inference hooks over HTTP.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/ekisa-team/visionhook/internal/metrics"
	"github.com/ekisa-team/visionhook/internal/service"
)

const readHeaderTimeout = 10 * time.Second

// Server is the HTTP front end of an inference service.
type Server struct {
	srv *http.Server
}

// NewServer creates a server listening on addr. Routes are registered immediately.
func NewServer(addr string, inference *service.Inference, collector *metrics.Collector) *Server {
	mux := http.NewServeMux()

	config := huma.DefaultConfig("visionhook", "1.0.0")
	config.Info.Description = "Image classification inference endpoint."
	// Responses are served as-is; no $schema links.
	config.CreateHooks = nil

	api := humago.New(mux, config)
	NewInferenceHandler(api, inference)

	mux.Handle("GET /metrics", collector.Handler())

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           RequestID(mux),
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe listens on the configured address. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil after Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	slog.Info("HTTP server listening", "addr", ln.Addr().String())

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
