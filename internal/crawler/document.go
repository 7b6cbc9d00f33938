package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/index"
)

// LatestField is the document field flagging the latest version of a language.
const LatestField = "_latestversion"

// DocumentUpdater is the base Updater: it resolves an item, builds its
// Document and upserts it through an index.Writer.
//
// Update flags widen the write to sibling entries whose derived data is
// stale after the change:
//
//	Shared       - every version of every language
//	Unversioned  - every version of the same language
//	VersionAdded - every other version of the same language (latest flag moved)
//
// Siblings excluded by the optional policy are left alone.
type DocumentUpdater struct {
	index  string
	tree   content.Tree
	writer index.Writer
	policy ExclusionPolicy
}

// NewDocumentUpdater creates a DocumentUpdater. policy may be nil.
func NewDocumentUpdater(indexName string, tree content.Tree, w index.Writer, policy ExclusionPolicy) *DocumentUpdater {
	return &DocumentUpdater{index: indexName, tree: tree, writer: w, policy: policy}
}

// Update implements Updater.
// Returns an error wrapping content.ErrItemNotFound when ref cannot be resolved.
func (u *DocumentUpdater) Update(ctx context.Context, ref content.IndexableRef, flags index.UpdateFlags) error {
	it, err := u.tree.GetItem(ctx, ref)
	if err != nil {
		return fmt.Errorf("build document %s: %w", ref, err)
	}

	if err := u.write(ctx, it); err != nil {
		return err
	}

	siblings, err := u.siblings(ctx, it.Ref, flags)
	if err != nil {
		return err
	}
	for _, s := range siblings {
		if u.policy != nil && u.policy.IsExcluded(ctx, s) {
			continue
		}
		sib, err := u.tree.GetItem(ctx, s)
		if errors.Is(err, content.ErrItemNotFound) {
			slog.Debug("sibling version vanished", "index", u.index, "ref", s.String())
			continue
		}
		if err != nil {
			return fmt.Errorf("build document %s: %w", s, err)
		}
		if err := u.write(ctx, sib); err != nil {
			return err
		}
	}
	return nil
}

// siblings lists the other entries a change to ref invalidates, in a stable order.
func (u *DocumentUpdater) siblings(ctx context.Context, ref content.IndexableRef, flags index.UpdateFlags) ([]content.IndexableRef, error) {
	var langs []string
	switch {
	case flags.Shared:
		all, err := u.tree.Languages(ctx, ref.ItemID, ref.Database)
		if err != nil {
			return nil, fmt.Errorf("list languages of %s: %w", ref.ItemID, err)
		}
		langs = all
	case flags.Unversioned || flags.VersionAdded:
		langs = []string{ref.Language}
	default:
		return nil, nil
	}

	var out []content.IndexableRef
	for _, lang := range langs {
		versions, err := u.tree.Versions(ctx, ref.ItemID, lang, ref.Database)
		if err != nil {
			return nil, fmt.Errorf("list versions of %s/%s: %w", ref.ItemID, lang, err)
		}
		for _, v := range versions {
			if v != ref {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func (u *DocumentUpdater) write(ctx context.Context, it *content.Item) error {
	doc, err := u.document(ctx, it)
	if err != nil {
		return err
	}
	if err := u.writer.Upsert(ctx, u.index, doc); err != nil {
		return fmt.Errorf("upsert %s: %w", it.Ref, err)
	}
	return nil
}

// document builds the indexed representation of it.
func (u *DocumentUpdater) document(ctx context.Context, it *content.Item) (index.Document, error) {
	versions, err := u.tree.Versions(ctx, it.Ref.ItemID, it.Ref.Language, it.Ref.Database)
	if err != nil {
		return index.Document{}, fmt.Errorf("list versions of %s: %w", it.Ref, err)
	}

	latest := "1"
	for _, v := range versions {
		if v.Version > it.Ref.Version {
			latest = "0"
			break
		}
	}

	fields := make(map[string]string, len(it.Fields)+1)
	maps.Copy(fields, it.Fields)
	fields[LatestField] = latest

	return index.Document{
		Ref:      it.Ref,
		Name:     it.Name,
		Path:     it.Path,
		Template: it.Template,
		Fields:   fields,
	}, nil
}
