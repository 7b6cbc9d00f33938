package index_test

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

type fakeCrawler struct {
	name      string
	log       *[]string
	updateErr error
}

func (f *fakeCrawler) Update(_ context.Context, ref content.IndexableRef, _ index.UpdateFlags) error {
	*f.log = append(*f.log, f.name+" update "+ref.String())
	return f.updateErr
}

func (f *fakeCrawler) Refresh(_ context.Context, ref content.IndexableRef) error {
	*f.log = append(*f.log, f.name+" refresh "+ref.String())
	return nil
}

func TestLocalCustodian_UpdateRunsCrawlersInOrder(t *testing.T) {
	var log []string
	idx := index.NewLocal("web", testutil.NewMemWriter())
	idx.AddCrawler(&fakeCrawler{name: "a", log: &log})
	idx.AddCrawler(&fakeCrawler{name: "b", log: &log})

	ref := content.NewRef("x", "en", 1, "web")
	require.NoError(t, index.NewLocalCustodian().UpdateEntry(context.Background(), idx, ref, index.UpdateFlags{}))
	require.NoError(t, index.NewLocalCustodian().RefreshSubtree(context.Background(), idx, ref))

	assert.Equal(t, []string{
		"a update web:x/en/1",
		"b update web:x/en/1",
		"a refresh web:x/en/1",
		"b refresh web:x/en/1",
	}, log)
}

func TestLocalCustodian_UpdateFailureIsMutationError(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	idx := index.NewLocal("web", testutil.NewMemWriter())
	idx.AddCrawler(&fakeCrawler{name: "a", log: &log, updateErr: boom})
	idx.AddCrawler(&fakeCrawler{name: "b", log: &log})

	err := index.NewLocalCustodian().UpdateEntry(context.Background(), idx, content.NewRef("x", "en", 1, "web"), index.UpdateFlags{})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, index.IsMutationError(err))
	assert.Equal(t, "[Index=web] update web:x/en/1: boom", err.Error())
	assert.Len(t, log, 1, "later crawlers are not run")
}

func TestLocalCustodian_Deletes(t *testing.T) {
	ctx := context.Background()
	w := testutil.NewMemWriter()
	idx := index.NewLocal("web", w)
	c := index.NewLocalCustodian()

	for _, r := range []content.IndexableRef{
		content.NewRef("x", "en", 1, "web"),
		content.NewRef("x", "en", 2, "web"),
		content.NewRef("y", "en", 1, "web"),
	} {
		require.NoError(t, w.Upsert(ctx, "web", index.Document{Ref: r}))
	}

	require.NoError(t, c.DeleteVersion(ctx, idx, content.NewRef("x", "en", 1, "web")))
	assert.Equal(t, []content.IndexableRef{
		content.NewRef("x", "en", 2, "web"),
		content.NewRef("y", "en", 1, "web"),
	}, w.Refs("web"))

	require.NoError(t, c.DeleteEntry(ctx, idx, "x"))
	assert.Equal(t, []content.IndexableRef{content.NewRef("y", "en", 1, "web")}, w.Refs("web"))
}

func TestLocalCustodian_DeleteFailure(t *testing.T) {
	w := testutil.NewMemWriter()
	w.Err = errors.New("locked")
	idx := index.NewLocal("web", w)

	err := index.NewLocalCustodian().DeleteEntry(context.Background(), idx, "x")
	assert.EqualError(t, err, "[Index=web] delete x: locked")
}

func TestLocal_CrawlersReturnsCopy(t *testing.T) {
	var log []string
	idx := index.NewLocal("web", nil)
	idx.AddCrawler(&fakeCrawler{name: "a", log: &log})

	got := idx.Crawlers()
	got[0] = nil
	assert.NotNil(t, idx.Crawlers()[0])
}

func TestPauseState(t *testing.T) {
	p := index.NewPauseState()
	web := testutil.StaticIndex("web")
	master := testutil.StaticIndex("master")

	assert.False(t, p.IsIndexingPaused(web))
	p.Pause("web")
	assert.True(t, p.IsIndexingPaused(web))
	assert.False(t, p.IsIndexingPaused(master))
	p.Resume("web")
	assert.False(t, p.IsIndexingPaused(web))
}
