// Package server wires the HTTP handlers behind a router and owns the
// listener lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/FreePeak/db-query-proxy/internal/logger"
)

// Config holds the server configuration
type Config struct {
	Port           int
	AllowedOrigins []string
}

// Server is the query proxy HTTP server
type Server struct {
	httpServer *http.Server
}

// New creates a server routing /query and /health to the given handlers
func New(cfg Config, query, health http.Handler) *Server {
	router := mux.NewRouter()
	router.Handle("/query", query).Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/health", health).Methods(http.MethodGet)

	router.Use(
		RequestIDMiddleware,
		RequestLoggerMiddleware,
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start listens and serves until Shutdown is called
func (s *Server) Start() error {
	logger.Info("Server starting on %s", s.httpServer.Addr)
	logger.Info("Query endpoint available at http://localhost%s/query", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones to finish
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down server...")
	return s.httpServer.Shutdown(ctx)
}
