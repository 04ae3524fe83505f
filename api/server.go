// Package api exposes the generation pipeline over HTTP for the
// presentation layer.
//
// Endpoints:
//
//	GET  /health                  liveness probe
//	GET  /ready                   readiness probe
//	POST /api/generate            submit a prompt, receive clarifying questions
//	POST /api/generate/answer     record one clarification answer
//	POST /api/generate/confirm    proceed to generation (skip == confirm)
//	GET  /api/generate/status     current phase + pending questions
//	GET  /api/sessions            ordered session list
//	GET  /api/sessions/current    current session snapshot
//	GET  /api/sessions/{index}    session by creation index
//	POST /api/sessions/select     move current-session/artifact pointers
//	GET  /api/sessions/events     SSE feed of artifact updates
//	POST /api/variations          SSE stream of decoded variants
//	POST /api/variations/apply    apply a variation onto the current artifact
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/draftly/draftly/internal/generate"
	"github.com/draftly/draftly/internal/log"
	"github.com/draftly/draftly/internal/session"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3600"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is generous because two endpoints hold SSE streams
	// open while generation runs.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout is the keep-alive limit between requests.
	IdleTimeout = 2 * time.Minute
)

// Server is the HTTP server for draftly's REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health   *HealthHandler
	session  *SessionHandler
	generate *GenerateHandler
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(store *session.Store, orch *generate.Orchestrator, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:      mux,
		logger:   logger,
		health:   NewHealthHandler(store, logger),
		session:  NewSessionHandler(store, logger),
		generate: NewGenerateHandler(orch, store, logger),
	}

	s.health.RegisterRoutes(mux)
	s.session.RegisterRoutes(mux)
	s.generate.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
