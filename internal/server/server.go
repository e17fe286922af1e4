// Package server provides the HTTP API for asking questions about study
// material and managing the material index.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/modulator/internal/config"
	"github.com/hyperjump/modulator/internal/models"
	"github.com/hyperjump/modulator/internal/search"
	"github.com/hyperjump/modulator/internal/storage"
	"go.uber.org/zap"
)

// IndexService is the material index as seen by the API. *indexer.Index implements it.
type IndexService interface {
	Build(ctx context.Context) (*models.BuildReport, error)
	Len() int
	Ready() bool
	Root() string
	LastReport() *models.BuildReport
}

// Asker answers questions from study material. *rag.Answerer implements it.
type Asker interface {
	Ask(ctx context.Context, question string) (*models.AskResponse, error)
}

// WatchService reports the directories watched for changes. *watcher.Watcher implements it.
type WatchService interface {
	Directories() []string
}

// Server is the HTTP server for the modulator API.
type Server struct {
	index     IndexService
	retriever *search.Retriever
	answerer  Asker
	builds    storage.BuildStore // optional; nil disables build history endpoints
	watch     WatchService       // optional
	dbPath    string
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithBuildStore enables the build history endpoints. dbPath is reported in status.
func WithBuildStore(store storage.BuildStore, dbPath string) ServerOption {
	return func(s *Server) {
		s.builds = store
		s.dbPath = dbPath
	}
}

// WithWatcher reports the watched directories in status.
func WithWatcher(w WatchService) ServerOption {
	return func(s *Server) { s.watch = w }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	idx IndexService,
	retriever *search.Retriever,
	answerer Asker,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	s := &Server{
		index:     idx,
		retriever: retriever,
		answerer:  answerer,
		config:    cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/modulator/rag", s.handleAsk)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/index/rebuild", s.handleRebuild)
		r.Get("/index/status", s.handleStatus)
		r.Get("/index/builds", s.handleListBuilds)
		r.Get("/index/builds/{id}", s.handleGetBuild)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
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
