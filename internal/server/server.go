// Package server provides the HTTP API for the document store.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/docstore/internal/config"
	"github.com/hyperjump/docstore/internal/search"
	"github.com/hyperjump/docstore/internal/storage"
	"go.uber.org/zap"
)

// WatchService reports the directories kept in sync with the store.
// *watcher.Watcher implements it.
type WatchService interface {
	Directories() []string
}

// Server is the HTTP server for the document store API.
type Server struct {
	engine  *search.Engine
	storage storage.Storage
	config  *config.Config
	watch   WatchService // nil when no directories are watched
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies. watch may be nil.
func NewServer(
	engine *search.Engine,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	watch WatchService,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:  engine,
		storage: store,
		config:  cfg,
		watch:   watch,
		logger:  logger,
	}
}

// Routes returns the API handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/documents/count", s.handleCount)
		r.Post("/documents", s.handleWrite)
		r.Delete("/documents", s.handleDeleteMany)
		r.Post("/documents/filter", s.handleFilter)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Post("/retrieval/bm25", s.handleRetrieve)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
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
