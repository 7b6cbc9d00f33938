package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/index"
)

const testIndex = "master_index"

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDocument creates a document with minimal fields.
func createTestDocument(id string, lang string, version int) index.Document {
	ref := content.NewRef(content.ItemID(id), lang, content.Version(version), "master")
	return index.Document{
		Ref:    ref,
		Name:   id,
		Path:   "/sitecore/content/" + id,
		Fields: map[string]string{"title": id},
	}
}
