// Package retention runs the periodic recommendation-history pruning worker.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/fypmatch/recommender-engine/internal/storage"
)

// Pruner handles periodic pruning of old recommendation history
type Pruner struct {
	repo     storage.Repository
	interval time.Duration
	maxAge   time.Duration
}

// NewPruner creates a new history pruning worker
func NewPruner(repo storage.Repository, interval, maxAge time.Duration) *Pruner {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if maxAge <= 0 {
		maxAge = 90 * 24 * time.Hour
	}

	return &Pruner{
		repo:     repo,
		interval: interval,
		maxAge:   maxAge,
	}
}

// Start begins the pruning worker in a goroutine
func (p *Pruner) Start(ctx context.Context) {
	go p.run(ctx)
}

// run is the main loop for the pruning worker
func (p *Pruner) run(ctx context.Context) {
	slog.Info("retention worker started", "interval", p.interval, "max_age", p.maxAge)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Run immediately on start
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention worker stopped")
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

// prune deletes history entries older than the retention window
func (p *Pruner) prune(ctx context.Context) {
	slog.Debug("running retention cycle")

	cutoff := time.Now().Add(-p.maxAge)
	pruned, err := p.repo.PruneHistory(ctx, cutoff)
	if err != nil {
		slog.Error("failed to prune history", "error", err)
		return
	}

	if pruned > 0 {
		slog.Info("pruned recommendation history", "entries", pruned, "cutoff", cutoff)
	}
}
