package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/kondate/internal/diet"
	"github.com/hyperjump/kondate/internal/jsonx"
	"github.com/hyperjump/kondate/internal/models"
	"github.com/hyperjump/kondate/internal/pipeline"
	"github.com/hyperjump/kondate/internal/storage"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if err := jsonx.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("recommend request",
		zap.String("query", req.Query),
		zap.Int("limit", req.Limit),
		zap.Strings("diets", req.Diets))

	resp, err := s.pipe.Recommend(r.Context(), req)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, resp)
	case errors.Is(err, pipeline.ErrNotReady):
		s.respondError(w, http.StatusServiceUnavailable, "recommender is "+s.pipe.State().String())
	case errors.Is(err, diet.ErrUnknownDiet):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("recommend failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

type statusResponse struct {
	pipeline.Status
	DiskUsage []storage.PathUsage `json:"disk_usage,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: s.pipe.Status()}
	if len(s.diskPaths) > 0 {
		usage, err := storage.DiskUsage(s.diskPaths)
		if err != nil {
			s.logger.Warn("status: disk usage failed", zap.Error(err))
		}
		resp.DiskUsage = usage
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDiets(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"diets": s.pipe.Diets().Profiles()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.pipe.State()
	if state != pipeline.StateReady {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": state.String()})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonx.Encode(w, data, "")
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
