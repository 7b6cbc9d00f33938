package strategy

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/index"
)

// captureLogs routes the default slog logger into a buffer for one test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// rootedCrawler is an index.Crawler with a fixed set of items under its root.
type rootedCrawler struct {
	under map[content.ItemID]bool
}

func (rootedCrawler) Update(context.Context, content.IndexableRef, index.UpdateFlags) error {
	return nil
}

func (rootedCrawler) Refresh(context.Context, content.IndexableRef) error { return nil }

func (r rootedCrawler) IsUnderRoot(_ context.Context, ref content.IndexableRef) bool {
	return r.under[ref.ItemID]
}
