package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fypmatch/recommender-engine/internal/catalog"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Check storage connectivity
	if err := s.repo.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Model handlers

func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	var cat *catalog.Catalog
	var err error
	if s.catalogCfg.Dir != "" {
		cat, err = catalog.LoadFromDir(s.catalogCfg.Dir)
	} else {
		cat, err = catalog.LoadDefault()
	}
	if err != nil {
		slog.Error("failed to reload catalog", "error", err)
		respondError(w, http.StatusInternalServerError, "catalog_error", "failed to reload catalog: "+err.Error())
		return
	}

	if err := s.engine.Retrain(cat); err != nil {
		slog.Error("failed to retrain model", "error", err)
		respondError(w, http.StatusUnprocessableEntity, "retrain_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "model retrained",
		"topics":          len(s.engine.Topics()),
		"vocabulary_size": s.engine.VocabularySize(),
	})
}

// Stats handler

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	claimed, err := s.claims.ListUnavailableTopicIDs(r.Context())
	if err != nil {
		slog.Error("failed to list claimed topics", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to collect stats")
		return
	}

	students, err := s.repo.ListStudents(r.Context())
	if err != nil {
		slog.Error("failed to list students", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to collect stats")
		return
	}

	total := len(s.engine.Topics())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"topics_total":     total,
		"topics_claimed":   len(claimed),
		"topics_available": total - len(claimed),
		"students":         len(students),
		"vocabulary_size":  s.engine.VocabularySize(),
		"fallback_ready":   s.engine.VocabularySize() > 0,
	})
}
