package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fypmatch/recommender-engine/internal/engine"
	"github.com/fypmatch/recommender-engine/internal/report"
	"github.com/fypmatch/recommender-engine/internal/storage"
)

type selectionRequest struct {
	StudentID string  `json:"student_id"`
	TopicID   string  `json:"topic_id"`
	Score     float64 `json:"score,omitempty"`
}

func (s *Server) handleCreateSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.StudentID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "student_id is required")
		return
	}
	if req.TopicID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "topic_id is required")
		return
	}

	student, err := s.repo.GetStudent(r.Context(), req.StudentID)
	if err != nil {
		if errors.Is(err, storage.ErrStudentNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "student not found")
			return
		}
		slog.Error("failed to get student", "error", err, "id", req.StudentID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get student")
		return
	}

	claim, err := s.engine.RecordSelection(r.Context(), student, req.TopicID, req.Score)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrTopicNotFound):
			respondError(w, http.StatusNotFound, "topic_not_found", "topic not found")
		case errors.Is(err, storage.ErrClaimConflict):
			respondError(w, http.StatusConflict, "claim_conflict",
				"topic already claimed or student already holds a selection")
		default:
			slog.Error("failed to record selection", "error", err,
				"student_id", req.StudentID, "topic_id", req.TopicID)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to record selection")
		}
		return
	}

	s.feed.Broadcast(claim)

	respondJSON(w, http.StatusCreated, claim)
}

func (s *Server) handleListSelections(w http.ResponseWriter, r *http.Request) {
	claims, err := s.claims.ListClaims(r.Context())
	if err != nil {
		slog.Error("failed to list selections", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list selections")
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(report.RenderSelections(claims)))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"selections": claims,
		"total":      len(claims),
	})
}

func (s *Server) handleClearSelections(w http.ResponseWriter, r *http.Request) {
	if err := s.claims.ClearClaims(r.Context()); err != nil {
		slog.Error("failed to clear selections", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to clear selections")
		return
	}

	slog.Info("selection registry cleared")
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "all selections cleared",
	})
}
