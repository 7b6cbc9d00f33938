package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/indexsync/internal/index"
	"github.com/roach88/indexsync/internal/metrics"
)

// Gate decides whether an event may be processed at all.
type Gate struct {
	database string
	index    index.Index
	state    index.State
	bulk     index.BulkMode
	metrics  *metrics.Metrics
}

// NewGate builds a gate for the given binding. Nil state or bulk mode means
// "never paused" and "never in bulk".
func NewGate(database string, idx index.Index, state index.State, bulk index.BulkMode, m *metrics.Metrics) *Gate {
	if state == nil {
		state = index.NewPauseState()
	}
	if bulk == nil {
		bulk = index.NeverBulk{}
	}
	return &Gate{database: database, index: idx, state: state, bulk: bulk, metrics: m}
}

// ShouldSkip reports whether an event raised against database must be
// ignored. Every condition is checked so each one is logged and counted.
//
// A foreign database is skipped silently: several strategies usually share
// one event source, each bound to its own database.
func (g *Gate) ShouldSkip(ctx context.Context, database string) bool {
	name := g.index.Name()
	skip := false

	if database != g.database {
		g.metrics.Skipped(name, metrics.SkipDatabase)
		skip = true
	}

	if g.state.IsIndexingPaused(g.index) {
		slog.WarnContext(ctx,
			fmt.Sprintf("[Index=%s] Synchronous Indexing Strategy is disabled while indexing is paused.", name),
			"index", name,
		)
		g.metrics.Skipped(name, metrics.SkipPaused)
		skip = true
	}

	if g.bulk.IsBulkUpdateActive() {
		slog.DebugContext(ctx,
			"Synchronous Indexing Strategy is disabled during BulkUpdateContext",
			"index", name,
		)
		g.metrics.Skipped(name, metrics.SkipBulk)
		skip = true
	}

	return skip
}
