package index

import "sync/atomic"

// BulkContext is a reference-counted bulk update scope.
//
// While at least one scope is open, IsBulkUpdateActive reports true and
// synchronous per-event indexing stands down in favour of a later bulk reindex.
// Scopes nest: the mode ends when the last one exits.
//
// Thread-safety: safe for concurrent use (atomic counter).
type BulkContext struct {
	depth atomic.Int64
}

// NewBulkContext returns an inactive BulkContext.
func NewBulkContext() *BulkContext {
	return &BulkContext{}
}

// Enter opens a scope and returns the function that closes it.
// Calling the returned function more than once has no further effect.
func (b *BulkContext) Enter() (exit func()) {
	b.depth.Add(1)
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			b.depth.Add(-1)
		}
	}
}

// IsBulkUpdateActive implements BulkMode.
func (b *BulkContext) IsBulkUpdateActive() bool {
	return b.depth.Load() > 0
}

// NeverBulk is a BulkMode that is never active.
type NeverBulk struct{}

// IsBulkUpdateActive implements BulkMode.
func (NeverBulk) IsBulkUpdateActive() bool { return false }
