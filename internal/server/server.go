// internal/server/server.go
// Package server exposes the query pipeline over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/common/observability"
	"catalog-chat/internal/models"
	"catalog-chat/internal/pipeline"
)

type Server struct {
	pipeline *pipeline.Pipeline
	obs      *observability.Observability
	logger   logger.Logger
}

func New(p *pipeline.Pipeline, obs *observability.Observability, log logger.Logger) *Server {
	return &Server{
		pipeline: p,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "server"}),
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	start := time.Now()
	resp, err := s.pipeline.Process(r.Context(), req)
	if err != nil {
		s.obs.RecordQueryProcessed(r.Context(), "error")
		s.logger.WithError(err).Error("Query processing failed", map[string]interface{}{
			"session_id": req.SessionID,
		})
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := "ok"
	if resp.ServerBusy {
		status = "busy"
	}
	s.obs.RecordQueryProcessed(r.Context(), status)
	s.obs.RecordQueryDuration(r.Context(), time.Since(start), status)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "catalog-chat",
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
