package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fypmatch/recommender-engine/internal/models"
	"github.com/fypmatch/recommender-engine/internal/report"
	"github.com/fypmatch/recommender-engine/internal/storage"
)

type recommendRequest struct {
	StudentID    string `json:"student_id"`
	Count        int    `json:"count,omitempty"`
	MinThreshold *int   `json:"min_threshold,omitempty"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.StudentID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "student_id is required")
		return
	}

	count := req.Count
	if count <= 0 {
		count = s.recommend.DefaultCount
	}
	threshold := s.recommend.MinThreshold
	if req.MinThreshold != nil {
		if *req.MinThreshold < 0 {
			respondError(w, http.StatusBadRequest, "validation_error", "min_threshold must not be negative")
			return
		}
		threshold = *req.MinThreshold
	}

	student, set, ok := s.recommendFor(w, r, req.StudentID, count, threshold)
	if !ok {
		return
	}

	s.recordHistory(student, set)

	respondJSON(w, http.StatusOK, set)
}

func (s *Server) handleStudentReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "student id is required")
		return
	}

	count := s.recommend.DefaultCount
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		if c, err := strconv.Atoi(countStr); err == nil && c > 0 {
			count = c
		}
	}

	student, err := s.repo.GetStudent(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrStudentNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "student not found")
			return
		}
		slog.Error("failed to get student", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get student")
		return
	}

	set, err := s.engine.Recommend(r.Context(), student, count, s.recommend.MinThreshold)
	if err != nil {
		slog.Error("failed to generate recommendations", "error", err, "student_id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to generate recommendations")
		return
	}

	s.recordHistory(student, set)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(report.Render(student, set.Recommendations, set.FallbackUsed)))
}

// recommendFor loads the student and runs the pipeline, writing the error
// response itself on failure.
func (s *Server) recommendFor(w http.ResponseWriter, r *http.Request, studentID string, count, threshold int) (*models.StudentProfile, *models.RecommendationSet, bool) {
	student, err := s.repo.GetStudent(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, storage.ErrStudentNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "student not found")
			return nil, nil, false
		}
		slog.Error("failed to get student", "error", err, "id", studentID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get student")
		return nil, nil, false
	}

	set, err := s.engine.Recommend(r.Context(), student, count, threshold)
	if err != nil {
		slog.Error("failed to generate recommendations", "error", err, "student_id", studentID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to generate recommendations")
		return nil, nil, false
	}

	return student, set, true
}

// recordHistory persists a served set asynchronously. History is advisory;
// a write failure never fails the request.
func (s *Server) recordHistory(student *models.StudentProfile, set *models.RecommendationSet) {
	if len(set.Recommendations) == 0 {
		return
	}

	topicIDs := make([]string, 0, len(set.Recommendations))
	for _, rec := range set.Recommendations {
		topicIDs = append(topicIDs, rec.Topic.ID)
	}
	entry := &models.HistoryEntry{
		StudentID:    student.ID,
		StudentName:  student.Name,
		TopicIDs:     topicIDs,
		FallbackUsed: set.FallbackUsed,
		CreatedAt:    time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SaveHistory(ctx, entry); err != nil {
			slog.Error("failed to save recommendation history", "error", err, "student_id", student.ID)
		}
	}()
}
