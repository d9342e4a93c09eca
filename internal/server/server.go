// Package server provides the local HTTP API for kondate.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kondate/internal/config"
	"github.com/hyperjump/kondate/internal/diet"
	"github.com/hyperjump/kondate/internal/models"
	"github.com/hyperjump/kondate/internal/pipeline"
	"github.com/hyperjump/kondate/pkg/utils"
)

// Recommender is the pipeline surface the API serves.
type Recommender interface {
	Recommend(ctx context.Context, req models.RecommendRequest) (*models.RecommendResponse, error)
	State() pipeline.State
	Status() pipeline.Status
	Diets() *diet.Catalog
}

// Server is the HTTP server for the kondate API.
type Server struct {
	pipe      Recommender
	config    *config.ServerConfig
	logger    *zap.Logger
	diskPaths map[string]string
	server    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithDiskPaths reports the size of the named local paths in the status response.
func WithDiskPaths(paths map[string]string) Option {
	return func(s *Server) { s.diskPaths = paths }
}

// NewServer creates a server with the given dependencies.
func NewServer(pipe Recommender, cfg *config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	logger = utils.OrNop(logger)
	s := &Server{
		pipe:   pipe,
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/recommend", s.handleRecommend)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/diets", s.handleDiets)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
