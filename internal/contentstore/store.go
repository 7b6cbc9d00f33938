package contentstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/roach88/indexsync/internal/content"
)

// Store is a content.Tree and content.DependencyResolver over pebble.
//
// Thread-safety: reads are lock-free. Writes are serialised because they
// read the previous state of an item to maintain the secondary indexes.
type Store struct {
	db *pebble.DB
	mu sync.Mutex
}

var (
	_ content.Tree               = (*Store)(nil)
	_ content.DependencyResolver = (*Store)(nil)
)

// Open opens or creates a store in dir.
func Open(dir string) (*Store, error) {
	return open(dir, &pebble.Options{})
}

// OpenInMemory opens a store backed by an in-memory filesystem.
func OpenInMemory() (*Store, error) {
	return open("", &pebble.Options{FS: vfs.NewMem()})
}

func open(dir string, opts *pebble.Options) (*Store, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open content store: %w", err)
	}
	slog.Debug("content store opened", "dir", dir)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// DB exposes the pebble database for metrics collection.
func (s *Store) DB() *pebble.DB {
	return s.db
}

// Put stores one item version and updates the hierarchy and dependency
// indexes. A zero version is stored as version 1. The parent recorded by the
// latest Put applies to every version of the item.
func (s *Store) Put(ctx context.Context, it content.Item) (content.IndexableRef, error) {
	if err := ctx.Err(); err != nil {
		return content.IndexableRef{}, err
	}
	ref := it.Ref
	if ref.Version == content.LatestVersion {
		ref.Version = 1
	}
	if err := validateRef(ref); err != nil {
		return content.IndexableRef{}, fmt.Errorf("put item: %w", err)
	}
	if it.ParentID != "" {
		if err := validSegment("parent id", string(it.ParentID)); err != nil {
			return content.IndexableRef{}, fmt.Errorf("put item: %w", err)
		}
	}
	it.Ref = ref

	data, err := json.Marshal(it)
	if err != nil {
		return content.IndexableRef{}, fmt.Errorf("put %s: %w", ref, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	if old, err := s.load(ref); err == nil {
		if err := unlinkDeps(b, old); err != nil {
			return content.IndexableRef{}, err
		}
	} else if !errors.Is(err, content.ErrItemNotFound) {
		return content.IndexableRef{}, err
	}

	oldParent, hadParent, err := s.parent(ref.Database, ref.ItemID)
	if err != nil {
		return content.IndexableRef{}, err
	}
	if hadParent && oldParent != it.ParentID && oldParent != "" {
		if err := b.Delete(childKey(ref.Database, oldParent, ref.ItemID), nil); err != nil {
			return content.IndexableRef{}, err
		}
	}
	if err := b.Set(parentKey(ref.Database, ref.ItemID), []byte(it.ParentID), nil); err != nil {
		return content.IndexableRef{}, err
	}
	if it.ParentID != "" {
		if err := b.Set(childKey(ref.Database, it.ParentID, ref.ItemID), nil, nil); err != nil {
			return content.IndexableRef{}, err
		}
	}

	if err := b.Set(itemKey(ref), data, nil); err != nil {
		return content.IndexableRef{}, err
	}
	for _, dep := range it.DependsOn {
		if err := b.Set(depKey(normalizeDep(dep, ref), ref), nil, nil); err != nil {
			return content.IndexableRef{}, err
		}
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return content.IndexableRef{}, fmt.Errorf("put %s: %w", ref, err)
	}
	return ref, nil
}

// DeleteVersion removes one item version. Removing the last version of an
// item also drops it from the hierarchy.
func (s *Store) DeleteVersion(ctx context.Context, ref content.IndexableRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.load(ref)
	if err != nil {
		return err
	}

	b := s.db.NewBatch()
	defer b.Close()

	if err := unlinkDeps(b, old); err != nil {
		return err
	}
	if err := b.Delete(itemKey(ref), nil); err != nil {
		return err
	}

	remaining, err := s.keys(itemPrefix(ref.Database, ref.ItemID))
	if err != nil {
		return err
	}
	if len(remaining) == 1 {
		if err := s.unlinkItem(b, ref.Database, ref.ItemID); err != nil {
			return err
		}
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("delete version %s: %w", ref, err)
	}
	return nil
}

// Delete removes every version of an item and of all its descendants. It
// returns the ids that had at least one version, id first and the rest depth
// first. Deleting an unknown item is not an error.
func (s *Store) Delete(ctx context.Context, database string, id content.ItemID) ([]content.ItemID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.subtree(database, id)
	if err != nil {
		return nil, err
	}

	b := s.db.NewBatch()
	defer b.Close()

	var removed []content.ItemID

	for _, victim := range ids {
		versions, err := s.keys(itemPrefix(database, victim))
		if err != nil {
			return nil, err
		}
		if len(versions) > 0 {
			removed = append(removed, victim)
		}
		for _, key := range versions {
			lang, v, err := parseItemKey(key)
			if err != nil {
				return nil, err
			}
			old, err := s.load(content.NewRef(victim, lang, v, database))
			if err != nil {
				return nil, err
			}
			if err := unlinkDeps(b, old); err != nil {
				return nil, err
			}
			if err := b.Delete(key, nil); err != nil {
				return nil, err
			}
		}
		if err := s.unlinkItem(b, database, victim); err != nil {
			return nil, err
		}
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("delete %s: %w", id, err)
	}
	slog.Debug("content deleted", "database", database, "item", string(id), "items", len(removed))
	return removed, nil
}

// GetItem implements content.Resolver.
func (s *Store) GetItem(ctx context.Context, ref content.IndexableRef) (*content.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref.Version == content.LatestVersion {
		versions, err := s.Versions(ctx, ref.ItemID, ref.Language, ref.Database)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("get %s: %w", ref, content.ErrItemNotFound)
		}
		ref = versions[len(versions)-1]
	}

	it, err := s.load(ref)
	if err != nil {
		return nil, err
	}
	if parent, ok, err := s.parent(ref.Database, ref.ItemID); err != nil {
		return nil, err
	} else if ok {
		it.ParentID = parent
	}
	return it, nil
}

// Children implements content.Tree. Children without a version in ref's
// language are left out. Results are ordered by path.
func (s *Store) Children(ctx context.Context, ref content.IndexableRef) ([]content.IndexableRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := childPrefix(ref.Database, ref.ItemID)
	keys, err := s.keys(prefix)
	if err != nil {
		return nil, err
	}

	type child struct {
		ref  content.IndexableRef
		path string
	}
	var children []child
	for _, key := range keys {
		id := content.ItemID(key[len(prefix):])
		it, err := s.GetItem(ctx, content.NewRef(id, ref.Language, content.LatestVersion, ref.Database))
		if errors.Is(err, content.ErrItemNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		children = append(children, child{ref: it.Ref, path: it.Path})
	}

	sort.SliceStable(children, func(i, j int) bool { return children[i].path < children[j].path })
	out := make([]content.IndexableRef, len(children))
	for i, c := range children {
		out[i] = c.ref
	}
	return out, nil
}

// Exists implements content.Tree.
func (s *Store) Exists(ctx context.Context, id content.ItemID, database string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	keys, err := s.keys(itemPrefix(database, id))
	if err != nil {
		return false, err
	}
	return len(keys) > 0, nil
}

// Versions implements content.Tree.
func (s *Store) Versions(ctx context.Context, id content.ItemID, language, database string) ([]content.IndexableRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := s.keys(langPrefix(database, id, language))
	if err != nil {
		return nil, err
	}
	out := make([]content.IndexableRef, 0, len(keys))
	for _, key := range keys {
		_, v, err := parseItemKey(key)
		if err != nil {
			return nil, err
		}
		out = append(out, content.NewRef(id, language, v, database))
	}
	return out, nil
}

// Languages implements content.Tree.
func (s *Store) Languages(ctx context.Context, id content.ItemID, database string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := s.keys(itemPrefix(database, id))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, key := range keys {
		lang, _, err := parseItemKey(key)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1] != lang {
			out = append(out, lang)
		}
	}
	return out, nil
}

// Dependents implements content.DependencyResolver: the latest version of
// every item that lists ref's item and language in DependsOn, ordered by
// reference string.
func (s *Store) Dependents(ctx context.Context, ref content.IndexableRef) ([]content.IndexableRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := depPrefix(ref.Database, ref.ItemID, ref.Language)
	keys, err := s.keys(prefix)
	if err != nil {
		return nil, err
	}

	seen := make(map[content.IndexableRef]bool)
	var out []content.IndexableRef
	for _, key := range keys {
		id, lang, err := parseDepSuffix(key, prefix)
		if err != nil {
			return nil, err
		}
		latest := content.NewRef(id, lang, content.LatestVersion, ref.Database)
		if seen[latest] {
			continue
		}
		seen[latest] = true

		versions, err := s.Versions(ctx, id, lang, ref.Database)
		if err != nil {
			return nil, err
		}
		if len(versions) > 0 {
			out = append(out, versions[len(versions)-1])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// load reads one stored version.
func (s *Store) load(ref content.IndexableRef) (*content.Item, error) {
	value, closer, err := s.db.Get(itemKey(ref))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("get %s: %w", ref, content.ErrItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	defer closer.Close()

	var it content.Item
	if err := json.Unmarshal(value, &it); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	it.Ref = ref
	return &it, nil
}

// parent returns the recorded parent of an item.
func (s *Store) parent(db string, id content.ItemID) (content.ItemID, bool, error) {
	value, closer, err := s.db.Get(parentKey(db, id))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get parent of %s: %w", id, err)
	}
	defer closer.Close()
	return content.ItemID(value), true, nil
}

// keys returns copies of every key with prefix, in order.
func (s *Store) keys(prefix []byte) ([][]byte, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", prefix, err)
	}
	defer iter.Close()

	var out [][]byte
	for valid := iter.First(); valid; valid = iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		out = append(out, key)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scan %q: %w", prefix, err)
	}
	return out, nil
}

// subtree returns id followed by all of its descendants, depth first.
func (s *Store) subtree(db string, id content.ItemID) ([]content.ItemID, error) {
	out := []content.ItemID{id}
	prefix := childPrefix(db, id)
	keys, err := s.keys(prefix)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		below, err := s.subtree(db, content.ItemID(key[len(prefix):]))
		if err != nil {
			return nil, err
		}
		out = append(out, below...)
	}
	return out, nil
}

// unlinkItem drops an item from the hierarchy indexes.
func (s *Store) unlinkItem(b *pebble.Batch, db string, id content.ItemID) error {
	parent, ok, err := s.parent(db, id)
	if err != nil {
		return err
	}
	if ok && parent != "" {
		if err := b.Delete(childKey(db, parent, id), nil); err != nil {
			return err
		}
	}
	if err := b.Delete(parentKey(db, id), nil); err != nil {
		return err
	}
	prefix := childPrefix(db, id)
	return b.DeleteRange(prefix, upperBound(prefix), nil)
}

// unlinkDeps removes the reverse-dependency keys written for it.
func unlinkDeps(b *pebble.Batch, it *content.Item) error {
	for _, dep := range it.DependsOn {
		if err := b.Delete(depKey(normalizeDep(dep, it.Ref), it.Ref), nil); err != nil {
			return fmt.Errorf("unlink dependency %s of %s: %w", dep, it.Ref, err)
		}
	}
	return nil
}

// normalizeDep fills the database of a dependency from its owner.
func normalizeDep(dep, owner content.IndexableRef) content.IndexableRef {
	if dep.Database == "" {
		dep.Database = owner.Database
	}
	if dep.Language == "" {
		dep.Language = owner.Language
	}
	return dep
}

func validateRef(ref content.IndexableRef) error {
	if err := validSegment("database", ref.Database); err != nil {
		return err
	}
	if err := validSegment("item id", string(ref.ItemID)); err != nil {
		return err
	}
	if err := validSegment("language", ref.Language); err != nil {
		return err
	}
	if ref.Version < 0 {
		return fmt.Errorf("negative version %d", ref.Version)
	}
	return nil
}
