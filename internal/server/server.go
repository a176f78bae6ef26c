// Package server provides the HTTP API for ruiji.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/ruiji/internal/config"
	"github.com/hyperjump/ruiji/internal/search"
	"go.uber.org/zap"
)

// requestTimeout bounds a request, including embedding of new images.
const requestTimeout = 5 * time.Minute

// WatchService manages watched image directories.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the ruiji API.
type Server struct {
	engine        *search.Engine
	config        *config.ServerConfig
	logger        *zap.Logger
	server        *http.Server
	watch         WatchService
	configPath    string
	watchConfig   *config.Config
	watchConfigMu sync.Mutex
	// rebuildMu serializes background rebuilds.
	rebuildMu sync.Mutex

	// baseCtx scopes background work; Stop cancels it and waits on bg.
	baseCtx context.Context
	cancel  context.CancelFunc
	bg      sync.WaitGroup
}

// NewServer creates a server. watch may be nil when watching is disabled;
// configPath and fullCfg, when set, persist watch directory changes.
func NewServer(
	engine *search.Engine,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
	fullCfg *config.Config,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		engine:      engine,
		config:      cfg,
		logger:      logger,
		watch:       watch,
		configPath:  configPath,
		watchConfig: fullCfg,
		baseCtx:     ctx,
		cancel:      cancel,
	}
}

// goBackground runs fn on the server's background context. Stop waits for it.
func (s *Server) goBackground(fn func(ctx context.Context)) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		fn(s.baseCtx)
	}()
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/similar", s.handleSimilar)
		r.Post("/images/warm", s.handleWarm)
		r.Get("/status", s.handleStatus)
		r.Get("/failures", s.handleFailures)
		r.Post("/rebuild", s.handleRebuild)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
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

// Stop gracefully shuts down the server, cancels background rebuilds and
// waits for them until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	done := make(chan struct{})
	go func() {
		s.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
		return err
	}
}
