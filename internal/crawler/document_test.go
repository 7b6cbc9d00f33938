package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/index"
	"github.com/roach88/indexsync/internal/testutil"
)

const testIndex = "master_index"

func versionedTree() *testutil.MemTree {
	tree := testutil.NewMemTree()
	for _, r := range []content.IndexableRef{
		content.NewRef("page", "en", 1, "master"),
		content.NewRef("page", "en", 2, "master"),
		content.NewRef("page", "da", 1, "master"),
	} {
		tree.Put(content.Item{
			Ref:    r,
			Name:   "page",
			Path:   "/sitecore/content/page",
			Fields: map[string]string{"title": r.String()},
		})
	}
	return tree
}

func TestDocumentUpdater_WritesSingleEntry(t *testing.T) {
	w := testutil.NewMemWriter()
	u := NewDocumentUpdater(testIndex, versionedTree(), w, nil)

	require.NoError(t, u.Update(context.Background(), content.NewRef("page", "en", 2, "master"), index.UpdateFlags{}))

	assert.Equal(t, []content.IndexableRef{content.NewRef("page", "en", 2, "master")}, w.Upserts())
	doc, ok := w.Doc(testIndex, content.NewRef("page", "en", 2, "master"))
	require.True(t, ok)
	assert.Equal(t, "1", doc.Fields[LatestField])
	assert.Equal(t, "master:page/en/2", doc.Fields["title"])
}

func TestDocumentUpdater_LatestResolution(t *testing.T) {
	w := testutil.NewMemWriter()
	u := NewDocumentUpdater(testIndex, versionedTree(), w, nil)

	require.NoError(t, u.Update(context.Background(), content.NewRef("page", "en", 0, "master"), index.UpdateFlags{}))

	assert.Equal(t, []content.IndexableRef{content.NewRef("page", "en", 2, "master")}, w.Upserts())
}

func TestDocumentUpdater_OlderVersionNotLatest(t *testing.T) {
	w := testutil.NewMemWriter()
	u := NewDocumentUpdater(testIndex, versionedTree(), w, nil)

	require.NoError(t, u.Update(context.Background(), content.NewRef("page", "en", 1, "master"), index.UpdateFlags{}))

	doc, ok := w.Doc(testIndex, content.NewRef("page", "en", 1, "master"))
	require.True(t, ok)
	assert.Equal(t, "0", doc.Fields[LatestField])
}

func TestDocumentUpdater_SharedRewritesAllLanguages(t *testing.T) {
	w := testutil.NewMemWriter()
	u := NewDocumentUpdater(testIndex, versionedTree(), w, nil)

	require.NoError(t, u.Update(context.Background(), content.NewRef("page", "en", 2, "master"), index.UpdateFlags{Shared: true}))

	assert.Equal(t, []content.IndexableRef{
		content.NewRef("page", "en", 2, "master"),
		content.NewRef("page", "da", 1, "master"),
		content.NewRef("page", "en", 1, "master"),
	}, w.Upserts())
}

func TestDocumentUpdater_UnversionedRewritesSameLanguage(t *testing.T) {
	w := testutil.NewMemWriter()
	u := NewDocumentUpdater(testIndex, versionedTree(), w, nil)

	require.NoError(t, u.Update(context.Background(), content.NewRef("page", "en", 2, "master"), index.UpdateFlags{Unversioned: true}))

	assert.Equal(t, []content.IndexableRef{
		content.NewRef("page", "en", 2, "master"),
		content.NewRef("page", "en", 1, "master"),
	}, w.Upserts())
}

func TestDocumentUpdater_VersionAddedMovesLatestFlag(t *testing.T) {
	tree := versionedTree()
	w := testutil.NewMemWriter()
	u := NewDocumentUpdater(testIndex, tree, w, nil)
	ctx := context.Background()

	require.NoError(t, u.Update(ctx, content.NewRef("page", "en", 1, "master"), index.UpdateFlags{}))
	require.NoError(t, u.Update(ctx, content.NewRef("page", "en", 2, "master"), index.UpdateFlags{VersionAdded: true}))

	old, ok := w.Doc(testIndex, content.NewRef("page", "en", 1, "master"))
	require.True(t, ok)
	assert.Equal(t, "0", old.Fields[LatestField])
}

func TestDocumentUpdater_SkipsExcludedSiblings(t *testing.T) {
	w := testutil.NewMemWriter()
	policy := PolicyFunc(func(_ context.Context, r content.IndexableRef) bool { return r.Language == "da" })
	u := NewDocumentUpdater(testIndex, versionedTree(), w, policy)

	require.NoError(t, u.Update(context.Background(), content.NewRef("page", "en", 2, "master"), index.UpdateFlags{Shared: true}))

	assert.NotContains(t, w.Upserts(), content.NewRef("page", "da", 1, "master"))
}

func TestDocumentUpdater_MissingItem(t *testing.T) {
	u := NewDocumentUpdater(testIndex, testutil.NewMemTree(), testutil.NewMemWriter(), nil)

	err := u.Update(context.Background(), ref("gone"), index.UpdateFlags{})
	assert.ErrorIs(t, err, content.ErrItemNotFound)
}

func TestDocumentUpdater_WriterFailure(t *testing.T) {
	boom := errors.New("disk full")
	w := testutil.NewMemWriter()
	w.Err = boom
	u := NewDocumentUpdater(testIndex, versionedTree(), w, nil)

	err := u.Update(context.Background(), content.NewRef("page", "en", 2, "master"), index.UpdateFlags{})
	assert.ErrorIs(t, err, boom)
}
