package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fypmatch/recommender-engine/internal/engine"
	"github.com/fypmatch/recommender-engine/internal/models"
)

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	technique := r.URL.Query().Get("technique")
	context := r.URL.Query().Get("context")

	var topics []*models.Topic
	for _, t := range s.engine.Topics() {
		if domain != "" && !strings.EqualFold(t.Domain, domain) {
			continue
		}
		if technique != "" && !strings.EqualFold(t.Technique, technique) {
			continue
		}
		if context != "" && !strings.EqualFold(t.Context, context) {
			continue
		}
		topics = append(topics, t)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"topics": topics,
		"total":  len(topics),
	})
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "topic id is required")
		return
	}

	topic, err := s.engine.Topic(id)
	if err != nil {
		if errors.Is(err, engine.ErrTopicNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "topic not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get topic")
		return
	}

	respondJSON(w, http.StatusOK, topic)
}

func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	domains := s.engine.Catalog().Domains
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"domains": domains,
		"total":   len(domains),
	})
}

func (s *Server) handleListTechniques(w http.ResponseWriter, r *http.Request) {
	techniques := s.engine.Catalog().Techniques
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"techniques": techniques,
		"total":      len(techniques),
	})
}

func (s *Server) handleListContexts(w http.ResponseWriter, r *http.Request) {
	contexts := s.engine.Catalog().Contexts
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"contexts": contexts,
		"total":    len(contexts),
	})
}
