package worker

import (
	"context"
	"log/slog"
	"time"
)

// Target is any bookkeeping store that can drop stale records.
type Target interface {
	PruneStale() int
}

// Pruner clears stale recovery bookkeeping based on retention policy.
type Pruner struct {
	retention time.Duration
	target    Target
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, target Target) *Pruner {
	return &Pruner{
		retention: retention,
		target:    target,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 || p.target == nil {
		return // Retention disabled
	}

	// Check interval is 10% of the retention period, clamped to [1m, 1h]
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := p.target.PruneStale(); removed > 0 {
				slog.Debug("Pruned stale recovery records", "removed", removed)
			}
		}
	}
}
