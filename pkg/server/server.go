// Package server exposes the chat agent over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/barekit/folio/pkg/agent"
	"github.com/barekit/folio/pkg/llm"
	"github.com/barekit/folio/pkg/memory"
)

// ShutdownTimeout bounds how long in-flight streams may finish on shutdown.
const ShutdownTimeout = 10 * time.Second

// Asker answers one chat turn as a stream.
type Asker interface {
	Ask(ctx context.Context, req agent.Request) (<-chan llm.Chunk, error)
}

// KnowledgeBase reports the state of the loaded knowledge base.
type KnowledgeBase interface {
	IsInitialized() bool
	Len() int
}

// Config configures a new Server instance.
type Config struct {
	Agent     Asker
	Knowledge KnowledgeBase // Optional: reported by /healthz
	Memory    memory.Memory // Optional: enables /api/sessions/{id}
	Logger    *slog.Logger
}

// Server is the HTTP front end of the portfolio assistant.
type Server struct {
	agent     Asker
	knowledge KnowledgeBase
	memory    memory.Memory
	logger    *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		agent:     cfg.Agent,
		knowledge: cfg.Knowledge,
		memory:    cfg.Memory,
		logger:    logger,
	}
}

// Handler returns an http.Handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSession)

	return s.logMiddleware(s.recoverMiddleware(corsMiddleware(mux)))
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()
	s.logger.Info("server listening", "addr", addr)

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
