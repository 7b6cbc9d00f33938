package crawler

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/roach88/indexsync/internal/content"
)

// VisitedSet tracks the references processed in one cascade pass.
//
// Keys are compared structurally. Add is an atomic insert-if-absent, so a
// parallel traversal into several dependency branches still processes each
// reference at most once.
//
// A VisitedSet belongs to exactly one pass: create it at the top-level
// Update and drop it when the pass ends.
type VisitedSet struct {
	m *xsync.MapOf[content.IndexableRef, struct{}]
}

// NewVisitedSet returns an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{m: xsync.NewMapOf[content.IndexableRef, struct{}]()}
}

// Add inserts ref and reports whether it was absent.
func (s *VisitedSet) Add(ref content.IndexableRef) bool {
	_, loaded := s.m.LoadOrStore(ref, struct{}{})
	return !loaded
}

// Contains reports whether ref was added.
func (s *VisitedSet) Contains(ref content.IndexableRef) bool {
	_, ok := s.m.Load(ref)
	return ok
}

// Len returns the number of references in the set.
func (s *VisitedSet) Len() int {
	return s.m.Size()
}
