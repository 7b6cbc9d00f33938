package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/indexsync/internal/content"
)

// MemTree is an in-memory content.Tree and content.DependencyResolver.
//
// It mirrors the pebble-backed store closely enough for unit tests of the
// strategy and crawler without touching disk.
//
// Thread-safety: safe for concurrent use.
type MemTree struct {
	mu    sync.RWMutex
	items map[content.IndexableRef]content.Item

	// DependentsErr makes Dependents fail for the given item.
	DependentsErr map[content.ItemID]error
}

// NewMemTree returns an empty tree.
func NewMemTree() *MemTree {
	return &MemTree{
		items:         make(map[content.IndexableRef]content.Item),
		DependentsErr: make(map[content.ItemID]error),
	}
}

// Put stores an item version. Version 0 is stored as version 1.
func (m *MemTree) Put(it content.Item) content.IndexableRef {
	if it.Ref.Version == content.LatestVersion {
		it.Ref.Version = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.Ref] = it
	return it.Ref
}

// Remove deletes every version of an item.
func (m *MemTree) Remove(database string, id content.ItemID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ref := range m.items {
		if ref.ItemID == id && ref.Database == database {
			delete(m.items, ref)
		}
	}
}

// RemoveVersion deletes one version.
func (m *MemTree) RemoveVersion(ref content.IndexableRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, ref)
}

// GetItem implements content.Resolver.
func (m *MemTree) GetItem(_ context.Context, ref content.IndexableRef) (*content.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if ref.Version == content.LatestVersion {
		latest, ok := m.latestLocked(ref.ItemID, ref.Language, ref.Database)
		if !ok {
			return nil, fmt.Errorf("get %s: %w", ref, content.ErrItemNotFound)
		}
		ref = latest
	}

	it, ok := m.items[ref]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", ref, content.ErrItemNotFound)
	}
	return &it, nil
}

func (m *MemTree) latestLocked(id content.ItemID, lang, db string) (content.IndexableRef, bool) {
	var best content.IndexableRef
	found := false
	for ref := range m.items {
		if ref.ItemID == id && ref.Language == lang && ref.Database == db {
			if !found || ref.Version > best.Version {
				best, found = ref, true
			}
		}
	}
	return best, found
}

// Children implements content.Tree.
func (m *MemTree) Children(_ context.Context, ref content.IndexableRef) ([]content.IndexableRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[content.ItemID]bool)
	var out []content.IndexableRef
	paths := make(map[content.IndexableRef]string)
	for r, it := range m.items {
		if it.ParentID != ref.ItemID || r.Database != ref.Database || r.Language != ref.Language || seen[r.ItemID] {
			continue
		}
		latest, _ := m.latestLocked(r.ItemID, r.Language, r.Database)
		seen[r.ItemID] = true
		out = append(out, latest)
		paths[latest] = m.items[latest].Path
	}
	sort.Slice(out, func(i, j int) bool { return paths[out[i]] < paths[out[j]] })
	return out, nil
}

// Exists implements content.Tree.
func (m *MemTree) Exists(_ context.Context, id content.ItemID, database string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for ref := range m.items {
		if ref.ItemID == id && ref.Database == database {
			return true, nil
		}
	}
	return false, nil
}

// Versions implements content.Tree.
func (m *MemTree) Versions(_ context.Context, id content.ItemID, language, database string) ([]content.IndexableRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []content.IndexableRef
	for ref := range m.items {
		if ref.ItemID == id && ref.Language == language && ref.Database == database {
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Languages implements content.Tree.
func (m *MemTree) Languages(_ context.Context, id content.ItemID, database string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := make(map[string]bool)
	for ref := range m.items {
		if ref.ItemID == id && ref.Database == database {
			set[ref.Language] = true
		}
	}
	out := make([]string, 0, len(set))
	for lang := range set {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out, nil
}

// Dependents implements content.DependencyResolver.
//
// An item depends on ref when its DependsOn lists the same item, language and
// database (any version). The latest version of each dependent is returned,
// ordered by reference string.
func (m *MemTree) Dependents(_ context.Context, ref content.IndexableRef) ([]content.IndexableRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.DependentsErr[ref.ItemID]; err != nil {
		return nil, err
	}

	set := make(map[content.IndexableRef]bool)
	for r, it := range m.items {
		for _, dep := range it.DependsOn {
			if dep.ItemID == ref.ItemID && dep.Language == ref.Language && dep.Database == ref.Database {
				latest, _ := m.latestLocked(r.ItemID, r.Language, r.Database)
				set[latest] = true
			}
		}
	}

	out := make([]content.IndexableRef, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
