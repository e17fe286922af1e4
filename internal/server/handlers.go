package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/modulator/internal/models"
	"github.com/hyperjump/modulator/internal/rag"
	"github.com/hyperjump/modulator/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultBuildsLimit = 20
	maxBuildsLimit     = 500
)

// handleAsk answers a question from study material. Generation failures are
// reported as a soft answer with status 200.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.answerer.Ask(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("rag answer failed", zap.String("question", req.Question), zap.Error(err))
		s.respondJSON(w, http.StatusOK, &models.AskResponse{Answer: rag.AnswerUnavailable})
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query))
	results := s.retriever.SearchScored(req.Query)
	s.respondJSON(w, http.StatusOK, &models.SearchResponse{
		Query:   req.Query,
		Results: results,
		Total:   len(results),
	})
}

// handleRebuild rebuilds the index synchronously. The build is not tied to the
// client connection, so a disconnect does not abort it.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("index rebuild requested", zap.String("remote", r.RemoteAddr))
	report, err := s.index.Build(context.WithoutCancel(r.Context()))
	if err != nil {
		s.respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": err.Error(),
			"build": report,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

type statusResponse struct {
	Ready     bool                `json:"ready"`
	Chunks    int                 `json:"chunks"`
	Root      string              `json:"root"`
	LastBuild *models.BuildReport `json:"last_build,omitempty"`
	Materials *storage.DiskUsage  `json:"materials,omitempty"`
	Database  *storage.DiskUsage  `json:"database,omitempty"`
	Builds    *int64              `json:"recorded_builds,omitempty"`
	Watching  []string            `json:"watching,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Ready:     s.index.Ready(),
		Chunks:    s.index.Len(),
		Root:      s.index.Root(),
		LastBuild: s.index.LastReport(),
	}
	if u, err := storage.PathUsage(resp.Root); err == nil {
		resp.Materials = &u
	} else {
		s.logger.Warn("status: materials usage failed", zap.Error(err))
	}
	if s.builds != nil {
		if n, err := s.builds.CountBuilds(r.Context()); err == nil {
			resp.Builds = &n
		} else {
			s.logger.Warn("status: count builds failed", zap.Error(err))
		}
		if s.dbPath != "" {
			if u, err := storage.DatabaseUsage(s.dbPath); err == nil {
				resp.Database = &u
			}
		}
	}
	if s.watch != nil {
		resp.Watching = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	if s.builds == nil {
		s.respondError(w, http.StatusNotImplemented, "build history not enabled")
		return
	}
	limit := defaultBuildsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxBuildsLimit)
	}
	builds, err := s.builds.ListBuilds(r.Context(), limit)
	if err != nil {
		s.logger.Error("list builds failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if builds == nil {
		builds = []*models.BuildReport{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"builds": builds, "total": len(builds)})
}

func (s *Server) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	if s.builds == nil {
		s.respondError(w, http.StatusNotImplemented, "build history not enabled")
		return
	}
	build, err := s.builds.GetBuild(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "build not found")
		return
	}
	if err != nil {
		s.logger.Error("get build failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, build)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody decodes a JSON body. An empty body leaves dst unchanged.
func decodeBody(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
