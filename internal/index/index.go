package index

import (
	"context"

	"github.com/roach88/indexsync/internal/content"
)

// UpdateFlags tell the mutation layer how far a single-entry update must
// propagate. Shared and unversioned field values are not scoped to one
// version, so a change to them invalidates sibling entries too.
type UpdateFlags struct {
	VersionAdded bool `json:"version_added,omitempty"`
	Shared       bool `json:"shared,omitempty"`
	Unversioned  bool `json:"unversioned,omitempty"`
}

// Document is the indexed representation of one item version.
type Document struct {
	Ref      content.IndexableRef `json:"ref"`
	Name     string               `json:"name"`
	Path     string               `json:"path"`
	Template string               `json:"template,omitempty"`
	Fields   map[string]string    `json:"fields,omitempty"`
}

// Crawler derives index entries for the part of the content tree it owns.
type Crawler interface {
	// Update re-derives the entry for ref, honouring the crawler's exclusion rules.
	Update(ctx context.Context, ref content.IndexableRef, flags UpdateFlags) error

	// Refresh re-derives ref and every descendant.
	Refresh(ctx context.Context, ref content.IndexableRef) error
}

// Writer performs the raw entry writes for an index.
type Writer interface {
	Upsert(ctx context.Context, index string, doc Document) error
	DeleteItem(ctx context.Context, index string, id content.ItemID) error
	DeleteVersion(ctx context.Context, index string, ref content.IndexableRef) error
}

// Index is a named search index with its crawlers and writer.
type Index interface {
	Name() string
	Crawlers() []Crawler
	Writer() Writer
}

// Custodian executes index mutations.
type Custodian interface {
	UpdateEntry(ctx context.Context, idx Index, ref content.IndexableRef, flags UpdateFlags) error
	DeleteEntry(ctx context.Context, idx Index, id content.ItemID) error
	DeleteVersion(ctx context.Context, idx Index, ref content.IndexableRef) error
	RefreshSubtree(ctx context.Context, idx Index, ref content.IndexableRef) error
}

// State answers whether indexing is paused for an index.
type State interface {
	IsIndexingPaused(idx Index) bool
}

// BulkMode answers whether a process-wide bulk update is in progress.
type BulkMode interface {
	IsBulkUpdateActive() bool
}
