package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/index"
)

// MemWriter is an in-memory index.Writer.
//
// Thread-safety: safe for concurrent use.
type MemWriter struct {
	mu      sync.Mutex
	docs    map[string]map[content.IndexableRef]index.Document
	upserts []content.IndexableRef
	Err     error
}

// NewMemWriter returns an empty writer.
func NewMemWriter() *MemWriter {
	return &MemWriter{docs: make(map[string]map[content.IndexableRef]index.Document)}
}

// Upsert implements index.Writer.
func (w *MemWriter) Upsert(_ context.Context, idx string, doc index.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	if w.docs[idx] == nil {
		w.docs[idx] = make(map[content.IndexableRef]index.Document)
	}
	w.docs[idx][doc.Ref] = doc
	w.upserts = append(w.upserts, doc.Ref)
	return nil
}

// DeleteItem implements index.Writer.
func (w *MemWriter) DeleteItem(_ context.Context, idx string, id content.ItemID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	for ref := range w.docs[idx] {
		if ref.ItemID == id {
			delete(w.docs[idx], ref)
		}
	}
	return nil
}

// DeleteVersion implements index.Writer.
func (w *MemWriter) DeleteVersion(_ context.Context, idx string, ref content.IndexableRef) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	delete(w.docs[idx], ref)
	return nil
}

// Doc returns the stored document for ref.
func (w *MemWriter) Doc(idx string, ref content.IndexableRef) (index.Document, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.docs[idx][ref]
	return d, ok
}

// Refs returns the references stored in idx ordered by string form.
func (w *MemWriter) Refs(idx string) []content.IndexableRef {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]content.IndexableRef, 0, len(w.docs[idx]))
	for ref := range w.docs[idx] {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Upserts returns every upserted reference in call order.
func (w *MemWriter) Upserts() []content.IndexableRef {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]content.IndexableRef, len(w.upserts))
	copy(out, w.upserts)
	return out
}
