// Package server exposes the agent over an HTTP JSON API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/samarachi/bank-agent/internal/domain"
	"github.com/samarachi/bank-agent/internal/ports"
)

// QueryRunner answers customer queries. Implemented by agent.Agent.
type QueryRunner interface {
	HandleQuery(ctx context.Context, userID, query string) (*domain.Response, error)
}

// Server is the HTTP front end.
type Server struct {
	agent  QueryRunner
	store  ports.Store
	logger zerolog.Logger
	http   *http.Server
}

// New creates a server listening on addr.
func New(addr string, agent QueryRunner, store ports.Store, logger zerolog.Logger) *Server {
	s := &Server{
		agent:  agent,
		store:  store,
		logger: logger,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute, // agent queries can take a while
		IdleTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/query", s.withLogging(s.handleQuery))
	mux.HandleFunc("GET /v1/documents", s.withLogging(s.handleListDocuments))
	mux.HandleFunc("GET /v1/accounts", s.withLogging(s.handleListAccounts))
	return mux
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("http server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
