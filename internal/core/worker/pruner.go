// Package worker holds the launcher's background maintenance loops.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// ReportStore is the pruner's view of the failure report sink.
type ReportStore interface {
	Prune() (int, error)
}

// Pruner deletes expired failure reports on a fixed cadence.
type Pruner struct {
	reports   ReportStore
	retention time.Duration
	clock     clockwork.Clock
	log       *slog.Logger
}

// NewPruner creates the pruner. A zero retention disables it.
func NewPruner(reports ReportStore, retention time.Duration, clock clockwork.Clock) *Pruner {
	return &Pruner{
		reports:   reports,
		retention: retention,
		clock:     clock,
		log:       slog.Default(),
	}
}

// Start runs the pruner loop until ctx ends. It prunes once right away
// so a long-dormant machine cleans up without waiting a tick.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return
	}

	// Check at 10% of the retention period, clamped to [1m, 1h].
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	p.prune()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.prune()
		}
	}
}

func (p *Pruner) prune() {
	if _, err := p.reports.Prune(); err != nil {
		p.log.Warn("Failed to prune failure reports", "error", err)
	}
}
