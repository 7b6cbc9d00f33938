package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/events"
	"github.com/roach88/indexsync/internal/index"
	"github.com/roach88/indexsync/internal/metrics"
	tu "github.com/roach88/indexsync/internal/testutil"
)

const db = "master"

var (
	x   = content.NewRef("x", "en", 1, db)
	idx = tu.StaticIndex("sitecore_master_index")
)

func newStrategy(t *testing.T, tree content.Resolver, opts ...Option) (*Strategy, *tu.RecordingCustodian) {
	t.Helper()
	if tree == nil {
		tree = tu.NewMemTree()
	}
	c := tu.NewRecordingCustodian()
	s, err := New(db, idx, c, tree, opts...)
	require.NoError(t, err)
	return s, c
}

func call(op index.Op, ref content.IndexableRef, flags index.UpdateFlags) tu.Call {
	return tu.Call{Op: op, Index: idx.Name(), Ref: ref, ItemID: ref.ItemID, Flags: flags}
}

func deleteCall(id content.ItemID) tu.Call {
	return tu.Call{Op: index.OpDelete, Index: idx.Name(), ItemID: id}
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_Validation(t *testing.T) {
	c := tu.NewRecordingCustodian()
	tree := tu.NewMemTree()

	_, err := New("", idx, c, tree)
	assert.ErrorIs(t, err, ErrDatabaseRequired)

	_, err = New(db, nil, c, tree)
	assert.ErrorIs(t, err, ErrIndexRequired)

	_, err = New(db, idx, nil, tree)
	assert.ErrorIs(t, err, ErrCustodianRequired)

	_, err = New(db, idx, c, nil)
	assert.ErrorIs(t, err, ErrResolverRequired)

	s, err := New(db, idx, c, tree)
	require.NoError(t, err)
	assert.Equal(t, db, s.Database())
	assert.Equal(t, idx.Name(), s.Index().Name())
}

// =============================================================================
// Routing
// =============================================================================

func TestHandle_MoveDeletesThenRefreshes(t *testing.T) {
	s, c := newStrategy(t, nil)

	require.NoError(t, s.Handle(context.Background(), content.ItemMoved{Ref: x, OldParentID: "p"}))

	assert.Equal(t, []tu.Call{
		deleteCall("x"),
		call(index.OpRefresh, x, index.UpdateFlags{}),
	}, c.Calls())
}

func TestHandle_CopyRefreshes(t *testing.T) {
	s, c := newStrategy(t, nil)

	require.NoError(t, s.Handle(context.Background(), content.ItemCopied{Ref: x}))

	assert.Equal(t, []tu.Call{call(index.OpRefresh, x, index.UpdateFlags{})}, c.Calls())
}

func TestHandle_UpdateFlags(t *testing.T) {
	tests := []struct {
		name    string
		changes content.FieldChangeSet
		want    index.UpdateFlags
	}{
		{
			name:    "versioned only",
			changes: content.FieldChangeSet{{Field: "title", Kind: content.FieldVersioned, Original: "a", Value: "b"}},
			want:    index.UpdateFlags{},
		},
		{
			name:    "shared",
			changes: content.FieldChangeSet{{Field: "__sortorder", Kind: content.FieldShared, Original: "1", Value: "2"}},
			want:    index.UpdateFlags{Shared: true},
		},
		{
			name: "shared and unversioned",
			changes: content.FieldChangeSet{
				{Field: "__sortorder", Kind: content.FieldShared, Original: "1", Value: "2"},
				{Field: "menu", Kind: content.FieldUnversioned, Original: "", Value: "x"},
			},
			want: index.UpdateFlags{Shared: true, Unversioned: true},
		},
		{
			name:    "untouched shared field",
			changes: content.FieldChangeSet{{Field: "__sortorder", Kind: content.FieldShared, Original: "1", Value: "1"}},
			want:    index.UpdateFlags{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newStrategy(t, nil)

			require.NoError(t, s.Handle(context.Background(), content.ItemUpdated{Ref: x, Changes: tt.changes}))

			assert.Equal(t, []tu.Call{call(index.OpUpdate, x, tt.want)}, c.Calls())
		})
	}
}

func TestHandle_VersionAddedResolvesLatest(t *testing.T) {
	tree := tu.NewMemTree()
	tree.Put(content.Item{Ref: content.NewRef("x", "en", 1, db)})
	tree.Put(content.Item{Ref: content.NewRef("x", "en", 3, db)})
	s, c := newStrategy(t, tree)

	require.NoError(t, s.Handle(context.Background(), content.ItemVersionAdded{Ref: content.NewRef("x", "en", 2, db)}))

	assert.Equal(t, []tu.Call{
		call(index.OpUpdate, content.NewRef("x", "en", 3, db), index.UpdateFlags{VersionAdded: true}),
	}, c.Calls())
}

func TestHandle_VersionAddedUnresolvable(t *testing.T) {
	logs := captureLogs(t)
	s, c := newStrategy(t, nil)

	require.NoError(t, s.Handle(context.Background(), content.ItemVersionAdded{Ref: x}))

	assert.Empty(t, c.Calls())
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "[Index=sitecore_master_index] Couldn't retrieve Uri for the added item. The index will not be updated.")
}

func TestHandle_VersionDeleted(t *testing.T) {
	s, c := newStrategy(t, nil)

	require.NoError(t, s.Handle(context.Background(), content.ItemVersionDeleted{Ref: x}))

	assert.Equal(t, []tu.Call{call(index.OpDeleteVersion, x, index.UpdateFlags{})}, c.Calls())
}

func TestHandle_Deleted(t *testing.T) {
	s, c := newStrategy(t, nil)

	require.NoError(t, s.Handle(context.Background(), content.ItemDeleted{ItemID: "x", Database: db}))

	assert.Equal(t, []tu.Call{deleteCall("x")}, c.Calls())
}

// =============================================================================
// Gate
// =============================================================================

func allEvents(ref content.IndexableRef) []content.ChangeEvent {
	return []content.ChangeEvent{
		content.ItemMoved{Ref: ref, OldParentID: "p"},
		content.ItemCopied{Ref: ref},
		content.ItemUpdated{Ref: ref},
		content.ItemVersionAdded{Ref: ref},
		content.ItemVersionDeleted{Ref: ref},
		content.ItemDeleted{ItemID: ref.ItemID, Database: ref.Database},
	}
}

func TestHandle_GateStopsEveryEvent(t *testing.T) {
	tests := []struct {
		name string
		ref  content.IndexableRef
		opts []Option
	}{
		{name: "foreign database", ref: content.NewRef("x", "en", 1, "web")},
		{name: "paused", ref: x, opts: []Option{WithState(tu.StaticState(true))}},
		{name: "bulk", ref: x, opts: []Option{WithBulkMode(tu.StaticBulk(true))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := tu.NewMemTree()
			tree.Put(content.Item{Ref: x})
			s, c := newStrategy(t, tree, tt.opts...)

			for _, ev := range allEvents(tt.ref) {
				require.NoError(t, s.Handle(context.Background(), ev))
			}
			assert.Empty(t, c.Calls())
		})
	}
}

// =============================================================================
// Errors
// =============================================================================

func TestHandle_MutationFailurePropagates(t *testing.T) {
	boom := errors.New("index locked")
	m := metrics.New()
	s, c := newStrategy(t, nil, WithMetrics(m))
	c.Err = boom

	err := s.Handle(context.Background(), content.ItemMoved{Ref: x})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, c.Calls(), 1, "refresh is not attempted after a failed delete")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MutationFailures.WithLabelValues(idx.Name(), "item:moved")))
}

func TestHandle_ResolverFailurePropagates(t *testing.T) {
	boom := errors.New("store offline")
	tree := resolverFunc(func(context.Context, content.IndexableRef) (*content.Item, error) { return nil, boom })
	s, c := newStrategy(t, tree)

	err := s.Handle(context.Background(), content.ItemVersionAdded{Ref: x})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, c.Calls())
}

type resolverFunc func(context.Context, content.IndexableRef) (*content.Item, error)

func (f resolverFunc) GetItem(ctx context.Context, ref content.IndexableRef) (*content.Item, error) {
	return f(ctx, ref)
}

func TestHandle_NilEvent(t *testing.T) {
	s, _ := newStrategy(t, nil)
	assert.Error(t, s.Handle(context.Background(), nil))
}

func TestHandle_Metrics(t *testing.T) {
	m := metrics.New()
	s, _ := newStrategy(t, nil, WithMetrics(m))

	require.NoError(t, s.Handle(context.Background(), content.ItemCopied{Ref: x}))
	require.NoError(t, s.Handle(context.Background(), content.ItemCopied{Ref: content.NewRef("x", "en", 1, "web")}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsHandled.WithLabelValues(idx.Name(), "item:copied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsSkipped.WithLabelValues(idx.Name(), metrics.SkipDatabase)))
}

// =============================================================================
// Root boundary
// =============================================================================

func boundedIndex() *index.Local {
	l := index.NewLocal("bounded", nil)
	l.AddCrawler(rootedCrawler{under: map[content.ItemID]bool{"inside": true, "x": true}})
	return l
}

func TestHandle_RootBoundaryMove(t *testing.T) {
	outside := content.NewRef("elsewhere", "en", 1, db)

	tests := []struct {
		name       string
		ev         content.ItemMoved
		wantDelete bool
	}{
		{"item still under a root", content.ItemMoved{Ref: x, OldParentID: "inside"}, false},
		{"item under a root, old parent outside", content.ItemMoved{Ref: x, OldParentID: "outside"}, false},
		{"moved out of a root", content.ItemMoved{Ref: outside, OldParentID: "inside"}, true},
		{"outside before and after", content.ItemMoved{Ref: outside, OldParentID: "outside"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tu.NewRecordingCustodian()
			s, err := New(db, boundedIndex(), c, tu.NewMemTree(), WithRootBoundaryCheck(true))
			require.NoError(t, err)

			require.NoError(t, s.Handle(context.Background(), tt.ev))
			calls := c.Calls()
			if tt.wantDelete {
				require.Len(t, calls, 2)
				assert.Equal(t, index.OpDelete, calls[0].Op)
				assert.Equal(t, index.OpRefresh, calls[1].Op)
				return
			}
			require.Len(t, calls, 1)
			assert.Equal(t, index.OpRefresh, calls[0].Op)
		})
	}
}

func TestHandle_RootBoundaryUpdateAndCopy(t *testing.T) {
	c := tu.NewRecordingCustodian()
	s, err := New(db, boundedIndex(), c, tu.NewMemTree(), WithRootBoundaryCheck(true))
	require.NoError(t, err)
	ctx := context.Background()
	outside := content.NewRef("elsewhere", "en", 1, db)

	require.NoError(t, s.Handle(ctx, content.ItemUpdated{Ref: outside}))
	require.NoError(t, s.Handle(ctx, content.ItemCopied{Ref: outside}))
	assert.Empty(t, c.Calls())

	require.NoError(t, s.Handle(ctx, content.ItemUpdated{Ref: x}))
	assert.Len(t, c.Calls(), 1)
}

func TestHandle_WithoutBoundaryCheckMoveAlwaysDeletes(t *testing.T) {
	c := tu.NewRecordingCustodian()
	s, err := New(db, boundedIndex(), c, tu.NewMemTree())
	require.NoError(t, err)

	require.NoError(t, s.Handle(context.Background(), content.ItemMoved{Ref: x, OldParentID: "outside"}))
	assert.Len(t, c.Calls(), 2)
}

// =============================================================================
// Subscription
// =============================================================================

func TestSubscribe(t *testing.T) {
	hub := events.NewHub()
	s, c := newStrategy(t, nil)
	ctx := context.Background()

	unsubscribe := s.Subscribe(hub)
	for _, kind := range content.AllEventKinds {
		assert.Equal(t, 1, hub.Subscribers(kind), kind)
	}

	require.NoError(t, hub.Publish(ctx, content.ItemDeleted{ItemID: "x", Database: db}))
	assert.Equal(t, []tu.Call{deleteCall("x")}, c.Calls())

	c.Err = errors.New("boom")
	assert.Error(t, hub.Publish(ctx, content.ItemDeleted{ItemID: "x", Database: db}),
		"mutation failures reach the publisher")

	unsubscribe()
	for _, kind := range content.AllEventKinds {
		assert.Zero(t, hub.Subscribers(kind), kind)
	}
}

func TestHandle_EventsAreIndependent(t *testing.T) {
	s, c := newStrategy(t, nil)
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, content.ItemCopied{Ref: x}))
	require.NoError(t, s.Handle(ctx, content.ItemCopied{Ref: x}))

	assert.Len(t, c.Calls(), 2)
}
