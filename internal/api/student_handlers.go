package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fypmatch/recommender-engine/internal/models"
	"github.com/fypmatch/recommender-engine/internal/storage"
)

// studentRequest is the wire format for profile writes. Skill and interest
// levels are labels ("EXPERT", "HIGH") rather than raw ordinals.
type studentRequest struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	CGPA               float64           `json:"cgpa"`
	Major              string            `json:"major"`
	Year               int               `json:"year"`
	Skills             map[string]string `json:"skills"`
	Interests          map[string]string `json:"interests"`
	CompletedCourses   []string          `json:"completed_courses"`
	MaxWeeklyHours     int               `json:"max_weekly_hours"`
	TeamSizePreference int               `json:"team_size_preference"`
}

// studentResponse mirrors StudentProfile with completed courses as a slice.
type studentResponse struct {
	*models.StudentProfile
	CompletedCourses []string `json:"completed_courses"`
}

func toStudentResponse(s *models.StudentProfile) studentResponse {
	courses := make([]string, 0, len(s.CompletedCourses))
	for c := range s.CompletedCourses {
		courses = append(courses, c)
	}
	sort.Strings(courses)
	return studentResponse{StudentProfile: s, CompletedCourses: courses}
}

func (req *studentRequest) toProfile() (*models.StudentProfile, error) {
	student := models.NewStudentProfile(req.ID, req.Name, req.CGPA, req.Major, req.Year)
	if req.MaxWeeklyHours > 0 {
		student.MaxWeeklyHours = req.MaxWeeklyHours
	}
	if req.TeamSizePreference > 0 {
		student.TeamSizePreference = req.TeamSizePreference
	}
	for name, label := range req.Skills {
		level, err := models.ParseProficiency(label)
		if err != nil {
			return nil, err
		}
		student.AddSkill(name, level)
	}
	for domain, label := range req.Interests {
		level, err := models.ParseInterestLevel(label)
		if err != nil {
			return nil, err
		}
		student.AddInterest(domain, level)
	}
	for _, course := range req.CompletedCourses {
		student.AddCompletedCourse(course)
	}
	if err := student.Validate(); err != nil {
		return nil, err
	}
	return student, nil
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	student, err := req.toProfile()
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := s.repo.SaveStudent(r.Context(), student); err != nil {
		slog.Error("failed to save student", "error", err, "id", student.ID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to save student")
		return
	}

	respondJSON(w, http.StatusCreated, toStudentResponse(student))
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "student id is required")
		return
	}

	exists, err := s.repo.StudentExists(r.Context(), id)
	if err != nil {
		slog.Error("failed to check student", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update student")
		return
	}
	if !exists {
		respondError(w, http.StatusNotFound, "not_found", "student not found")
		return
	}

	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.ID = id

	student, err := req.toProfile()
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := s.repo.SaveStudent(r.Context(), student); err != nil {
		slog.Error("failed to save student", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update student")
		return
	}

	respondJSON(w, http.StatusOK, toStudentResponse(student))
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "student id is required")
		return
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

	respondJSON(w, http.StatusOK, toStudentResponse(student))
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "student id is required")
		return
	}

	if err := s.repo.DeleteStudent(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrStudentNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "student not found")
			return
		}
		slog.Error("failed to delete student", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete student")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "student deleted",
	})
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.repo.ListStudents(r.Context())
	if err != nil {
		slog.Error("failed to list students", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list students")
		return
	}

	out := make([]studentResponse, 0, len(students))
	for _, st := range students {
		out = append(out, toStudentResponse(st))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"students": out,
		"total":    len(out),
	})
}

func (s *Server) handleStudentHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "student id is required")
		return
	}

	limit := 20 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	entries, err := s.repo.ListHistory(r.Context(), id, limit)
	if err != nil {
		slog.Error("failed to list history", "error", err, "student_id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"history": entries,
		"total":   len(entries),
	})
}
