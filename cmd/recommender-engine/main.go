package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fypmatch/recommender-engine/internal/api"
	"github.com/fypmatch/recommender-engine/internal/catalog"
	"github.com/fypmatch/recommender-engine/internal/config"
	"github.com/fypmatch/recommender-engine/internal/engine"
	"github.com/fypmatch/recommender-engine/internal/retention"
	"github.com/fypmatch/recommender-engine/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting recommender-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"claims_backend", cfg.Claims.Backend,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Pick the claim registry backend
	var claims storage.ClaimRegistry = repo
	var redisClaims *storage.RedisClaimRegistry
	if cfg.Claims.Backend == config.ClaimsBackendRedis {
		redisClaims, err = storage.NewRedisClaimRegistry(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("failed to connect to redis claim registry", "error", err)
			os.Exit(1)
		}
		claims = redisClaims
		slog.Info("redis claim registry connected", "address", cfg.Redis.Address)
	}

	// Load the reference catalog
	var cat *catalog.Catalog
	if cfg.Catalog.Dir != "" {
		cat, err = catalog.LoadFromDir(cfg.Catalog.Dir)
	} else {
		cat, err = catalog.LoadDefault()
	}
	if err != nil {
		slog.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	if err := cat.Validate(); err != nil {
		slog.Error("catalog validation failed", "error", err)
		os.Exit(1)
	}

	// Build the recommendation engine
	eng := engine.New(cat, claims, engine.Options{})
	slog.Info("engine ready",
		"topics", len(eng.Topics()),
		"vocabulary_size", eng.VocabularySize(),
	)

	// Initialize history retention worker
	pruner := retention.NewPruner(repo, cfg.Retention.Interval, cfg.Retention.MaxAge)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start retention worker
	pruner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, cfg.Recommend, cfg.Catalog, eng, repo, claims)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if redisClaims != nil {
		if err := redisClaims.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if err := repo.Close(); err != nil {
		slog.Error("repository close error", "error", err)
	}

	slog.Info("recommender-engine stopped")
}
