package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hyperjump/ruiji/internal/config"
	"github.com/hyperjump/ruiji/internal/indexer"
	"github.com/hyperjump/ruiji/internal/models"
	"github.com/hyperjump/ruiji/internal/search"
	"go.uber.org/zap"
)

// maxBodyBytes bounds JSON request bodies; a max_candidates list of long paths fits.
const maxBodyBytes = 8 << 20

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	var query models.SimilarQuery
	if !s.decode(w, r, &query) {
		return
	}
	s.logger.Debug("similar request",
		zap.String("query", query.Query),
		zap.Int("candidates", len(query.Candidates)),
		zap.Bool("pool", query.Pool))
	response, err := s.engine.Similar(r.Context(), &query)
	if err != nil {
		s.respondEngineError(w, "similar", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleWarm(w http.ResponseWriter, r *http.Request) {
	var req models.WarmRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Keys) == 0 {
		s.respondError(w, http.StatusBadRequest, "keys are required")
		return
	}
	s.logger.Debug("warm request", zap.Int("keys", len(req.Keys)))
	report, err := s.engine.Warm(r.Context(), req.Keys)
	if err != nil {
		s.respondEngineError(w, "warm", err)
		return
	}
	s.respondJSON(w, http.StatusOK, warmResponse(report))
}

func warmResponse(rep *indexer.Report) *models.WarmResponse {
	return &models.WarmResponse{
		Requested: rep.Requested,
		Missing:   rep.Missing,
		Embedded:  rep.Embedded,
		Failed:    rep.Failed,
		Appended:  rep.Appended,
		Took:      rep.Took.Milliseconds(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	events, err := s.engine.Failures(r.Context(), limit)
	if err != nil {
		s.logger.Error("list failures failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"failures": events, "total": len(events)})
}

type rebuildRequest struct {
	Rewarm bool `json:"rewarm"`
}

// handleRebuild empties the store. With rewarm the pool is embedded again in
// the background and the request returns 202.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	var req rebuildRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	if !s.rebuildMu.TryLock() {
		s.respondError(w, http.StatusConflict, "rebuild already running")
		return
	}
	s.logger.Info("rebuild requested", zap.Bool("rewarm", req.Rewarm))
	if !req.Rewarm {
		defer s.rebuildMu.Unlock()
		if _, err := s.engine.Rebuild(r.Context(), false); err != nil {
			s.respondEngineError(w, "rebuild", err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
		return
	}
	if _, err := s.engine.Pool(); err != nil {
		s.rebuildMu.Unlock()
		s.respondEngineError(w, "rebuild", err)
		return
	}
	s.goBackground(func(ctx context.Context) {
		defer s.rebuildMu.Unlock()
		start := time.Now()
		rep, err := s.engine.Rebuild(ctx, true)
		if errors.Is(err, context.Canceled) {
			s.logger.Info("rebuild interrupted by shutdown", zap.Error(err))
			return
		}
		if err != nil {
			s.logger.Error("rebuild failed", zap.Error(err))
			return
		}
		s.logger.Info("rebuild finished",
			zap.Int("embedded", rep.Embedded),
			zap.Int("failed", rep.Failed),
			zap.Duration("took", time.Since(start)))
	})
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "rebuilding"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.watchConfig == nil {
		return
	}
	s.watchConfigMu.Lock()
	s.watchConfig.Watch.Directories = s.watch.Directories()
	err := config.Save(s.configPath, s.watchConfig)
	s.watchConfigMu.Unlock()
	if err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// respondEngineError maps request errors to 400, requests that ran out of
// time to 503 and everything else to 500.
func (s *Server) respondEngineError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, search.ErrInvalidQuery),
		errors.Is(err, search.ErrNoImageRoot):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn(op+" interrupted", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error(op+" failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
