package index

import (
	"context"
	"sync"

	"github.com/roach88/indexsync/internal/content"
)

// Local is an in-process Index: a name, a writer, and the crawlers that feed it.
//
// Thread-safety: crawlers may be added while other goroutines read them.
type Local struct {
	name   string
	writer Writer

	mu       sync.RWMutex
	crawlers []Crawler
}

// NewLocal creates an index with no crawlers.
func NewLocal(name string, w Writer) *Local {
	return &Local{name: name, writer: w}
}

// Name implements Index.
func (l *Local) Name() string { return l.name }

// Writer implements Index.
func (l *Local) Writer() Writer { return l.writer }

// AddCrawler attaches a crawler. Crawlers run in the order they were added.
func (l *Local) AddCrawler(c Crawler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.crawlers = append(l.crawlers, c)
}

// Crawlers implements Index. Returns a copy.
func (l *Local) Crawlers() []Crawler {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Crawler, len(l.crawlers))
	copy(out, l.crawlers)
	return out
}

// LocalCustodian executes mutations by delegating to the index's crawlers
// (updates, refreshes) and writer (deletes).
//
// Stateless and safe for concurrent use.
type LocalCustodian struct{}

// NewLocalCustodian returns a LocalCustodian.
func NewLocalCustodian() *LocalCustodian {
	return &LocalCustodian{}
}

// UpdateEntry asks every crawler to re-derive ref. Stops at the first failing crawler.
func (c *LocalCustodian) UpdateEntry(ctx context.Context, idx Index, ref content.IndexableRef, flags UpdateFlags) error {
	for _, cr := range idx.Crawlers() {
		if err := cr.Update(ctx, ref, flags); err != nil {
			return &MutationError{Op: OpUpdate, Index: idx.Name(), Ref: ref, Err: err}
		}
	}
	return nil
}

// DeleteEntry removes every entry of the item.
func (c *LocalCustodian) DeleteEntry(ctx context.Context, idx Index, id content.ItemID) error {
	if err := idx.Writer().DeleteItem(ctx, idx.Name(), id); err != nil {
		return &MutationError{Op: OpDelete, Index: idx.Name(), Ref: content.IndexableRef{ItemID: id}, Err: err}
	}
	return nil
}

// DeleteVersion removes the entry of one version.
func (c *LocalCustodian) DeleteVersion(ctx context.Context, idx Index, ref content.IndexableRef) error {
	if err := idx.Writer().DeleteVersion(ctx, idx.Name(), ref); err != nil {
		return &MutationError{Op: OpDeleteVersion, Index: idx.Name(), Ref: ref, Err: err}
	}
	return nil
}

// RefreshSubtree asks every crawler to re-derive ref and its descendants.
func (c *LocalCustodian) RefreshSubtree(ctx context.Context, idx Index, ref content.IndexableRef) error {
	for _, cr := range idx.Crawlers() {
		if err := cr.Refresh(ctx, ref); err != nil {
			return &MutationError{Op: OpRefresh, Index: idx.Name(), Ref: ref, Err: err}
		}
	}
	return nil
}

// PauseState is an in-memory State keyed by index name.
type PauseState struct {
	mu     sync.RWMutex
	paused map[string]bool
}

// NewPauseState returns a PauseState with every index running.
func NewPauseState() *PauseState {
	return &PauseState{paused: make(map[string]bool)}
}

// Pause pauses indexing for the named index.
func (p *PauseState) Pause(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused[name] = true
}

// Resume resumes indexing for the named index.
func (p *PauseState) Resume(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.paused, name)
}

// IsIndexingPaused implements State.
func (p *PauseState) IsIndexingPaused(idx Index) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[idx.Name()]
}
