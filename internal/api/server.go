package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fypmatch/recommender-engine/internal/config"
	"github.com/fypmatch/recommender-engine/internal/engine"
	"github.com/fypmatch/recommender-engine/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	recommend      config.RecommendConfig
	catalogCfg     config.CatalogConfig
	router         *chi.Mux
	engine         *engine.Engine
	repo           storage.Repository
	claims         storage.ClaimRegistry
	feed           *SelectionFeed
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server. claims is the registry backing
// topic selections; it may be the repository itself or a Redis registry.
func NewServer(
	cfg config.ServerConfig,
	recommendCfg config.RecommendConfig,
	catalogCfg config.CatalogConfig,
	eng *engine.Engine,
	repo storage.Repository,
	claims storage.ClaimRegistry,
) *Server {
	s := &Server{
		config:         cfg,
		recommend:      recommendCfg,
		catalogCfg:     catalogCfg,
		engine:         eng,
		repo:           repo,
		claims:         claims,
		feed:           NewSelectionFeed(),
		authMiddleware: NewAuthMiddleware(repo),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// API v1 routes (protected by authentication)
	r.Route("/api/v1", func(r chi.Router) {
		// Apply authentication middleware to all /api/v1/* routes
		r.Use(s.authMiddleware.Authenticate)

		// Students
		r.Route("/students", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("students:read")).Get("/", s.handleListStudents)
			r.With(s.authMiddleware.RequirePermission("students:write")).Post("/", s.handleCreateStudent)

			r.Route("/{id}", func(r chi.Router) {
				r.With(s.authMiddleware.RequirePermission("students:read")).Get("/", s.handleGetStudent)
				r.With(s.authMiddleware.RequirePermission("students:write")).Put("/", s.handleUpdateStudent)
				r.With(s.authMiddleware.RequirePermission("students:write")).Delete("/", s.handleDeleteStudent)
				r.With(s.authMiddleware.RequirePermission("recommendations:read")).Get("/report", s.handleStudentReport)
				r.With(s.authMiddleware.RequirePermission("recommendations:read")).Get("/history", s.handleStudentHistory)
			})
		})

		// Recommendations
		r.With(s.authMiddleware.RequirePermission("recommendations:read")).
			Post("/recommendations", s.handleRecommend)

		// Selections
		r.Route("/selections", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("selections:read")).Get("/", s.handleListSelections)
			r.With(s.authMiddleware.RequirePermission("selections:write")).Post("/", s.handleCreateSelection)
			r.With(s.authMiddleware.RequirePermission("selections:write")).Delete("/", s.handleClearSelections)
			r.With(s.authMiddleware.RequirePermission("selections:read")).Get("/ws", s.handleSelectionFeed)
		})

		// Topic catalog (read-only)
		r.Route("/topics", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("topics:read")).Get("/", s.handleListTopics)
			r.With(s.authMiddleware.RequirePermission("topics:read")).Get("/{id}", s.handleGetTopic)
		})
		r.Route("/catalog", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("topics:read")).Get("/domains", s.handleListDomains)
			r.With(s.authMiddleware.RequirePermission("topics:read")).Get("/techniques", s.handleListTechniques)
			r.With(s.authMiddleware.RequirePermission("topics:read")).Get("/contexts", s.handleListContexts)
		})

		// Model management
		r.With(s.authMiddleware.RequirePermission("model:write")).
			Post("/model/retrain", s.handleRetrain)

		// Stats
		r.With(s.authMiddleware.RequirePermission("stats:read")).
			Get("/stats", s.handleStats)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
