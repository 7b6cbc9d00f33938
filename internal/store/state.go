package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/indexsync/internal/index"
)

var _ index.State = (*Store)(nil)

// SetPaused persists the pause flag of an index.
func (s *Store) SetPaused(ctx context.Context, idx string, paused bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_state (index_name, paused)
		VALUES (?, ?)
		ON CONFLICT(index_name) DO UPDATE SET paused = excluded.paused
	`, idx, paused)
	if err != nil {
		return fmt.Errorf("set paused %s: %w", idx, err)
	}
	slog.Info("index pause state changed", "index", idx, "paused", paused)
	return nil
}

// Paused reports the persisted pause flag. Unknown indexes are running.
func (s *Store) Paused(ctx context.Context, idx string) (bool, error) {
	var paused bool
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(paused), 0) FROM index_state WHERE index_name = ?
	`, idx).Scan(&paused)
	if err != nil {
		return false, fmt.Errorf("read paused %s: %w", idx, err)
	}
	return paused, nil
}

// IsIndexingPaused implements index.State.
// A read failure is logged and treated as running.
func (s *Store) IsIndexingPaused(idx index.Index) bool {
	paused, err := s.Paused(context.Background(), idx.Name())
	if err != nil {
		slog.Warn("failed to read pause state", "index", idx.Name(), "error", err)
		return false
	}
	return paused
}
