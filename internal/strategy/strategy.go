package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/events"
	"github.com/roach88/indexsync/internal/index"
	"github.com/roach88/indexsync/internal/metrics"
)

const tracerName = "github.com/roach88/indexsync/internal/strategy"

// Option configures a Strategy.
type Option func(*Strategy)

// WithState sets the pause state consulted by the gate.
// Default: an index.PauseState with nothing paused.
func WithState(s index.State) Option {
	return func(st *Strategy) {
		st.state = s
	}
}

// WithBulkMode sets the bulk update indicator consulted by the gate.
// Default: index.NeverBulk.
func WithBulkMode(b index.BulkMode) Option {
	return func(st *Strategy) {
		st.bulk = b
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(st *Strategy) {
		st.metrics = m
	}
}

// WithRootBoundaryCheck enables the root-aware variant. A move of an item that
// is still under a crawler root only refreshes it. Otherwise the old entries
// are removed when the old parent lay under a crawler root. Updates and copies
// of items outside every crawler root are dropped.
//
// Default: false (move always deletes, then refreshes).
func WithRootBoundaryCheck(on bool) Option {
	return func(st *Strategy) {
		st.rootBoundaryCheck = on
	}
}

// Strategy is the synchronous indexing strategy for one database and index.
//
// Thread-safety: safe for concurrent use. The binding is fixed at
// construction and handlers keep no state between events.
type Strategy struct {
	database  string
	index     index.Index
	custodian index.Custodian
	tree      content.Resolver

	state             index.State
	bulk              index.BulkMode
	metrics           *metrics.Metrics
	rootBoundaryCheck bool

	gate *Gate
}

// New binds a strategy to database and idx.
func New(database string, idx index.Index, custodian index.Custodian, tree content.Resolver, opts ...Option) (*Strategy, error) {
	if database == "" {
		return nil, ErrDatabaseRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if custodian == nil {
		return nil, ErrCustodianRequired
	}
	if tree == nil {
		return nil, ErrResolverRequired
	}

	s := &Strategy{
		database:  database,
		index:     idx,
		custodian: custodian,
		tree:      tree,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.gate = NewGate(database, idx, s.state, s.bulk, s.metrics)

	slog.Debug("synchronous strategy initialized",
		"database", database,
		"index", idx.Name(),
		"root_boundary_check", s.rootBoundaryCheck,
	)
	return s, nil
}

// Database returns the bound database name.
func (s *Strategy) Database() string { return s.database }

// Index returns the bound index.
func (s *Strategy) Index() index.Index { return s.index }

// Subscribe registers the strategy for all six events on hub and returns a
// function removing every registration.
func (s *Strategy) Subscribe(hub *events.Hub) (unsubscribe func()) {
	handle := func(ctx context.Context, ev content.ChangeEvent) error {
		return s.Handle(ctx, ev)
	}
	unsubs := make([]func(), 0, len(content.AllEventKinds))
	for _, kind := range content.AllEventKinds {
		unsubs = append(unsubs, hub.Subscribe(kind, handle))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Handle applies one content event to the index.
//
// Events stopped by the gate return nil. Mutation failures are returned
// wrapped; an added version that no longer resolves is logged and ignored.
func (s *Strategy) Handle(ctx context.Context, ev content.ChangeEvent) error {
	if ev == nil {
		return errors.New("handle: nil event")
	}
	if s.gate.ShouldSkip(ctx, ev.DatabaseName()) {
		return nil
	}

	kind := string(ev.Kind())
	started := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "strategy."+kind,
		trace.WithAttributes(
			attribute.String("index", s.index.Name()),
			attribute.String("database", ev.DatabaseName()),
			attribute.String("item", string(itemOf(ev))),
		),
	)
	defer span.End()

	var err error
	switch e := ev.(type) {
	case content.ItemMoved:
		err = s.onMoved(ctx, e)
	case content.ItemCopied:
		err = s.onCopied(ctx, e)
	case content.ItemUpdated:
		err = s.onUpdated(ctx, e)
	case content.ItemVersionAdded:
		err = s.onVersionAdded(ctx, e)
	case content.ItemVersionDeleted:
		err = s.onVersionDeleted(ctx, e)
	case content.ItemDeleted:
		err = s.onDeleted(ctx, e)
	default:
		err = fmt.Errorf("unsupported event %T", ev)
	}

	s.metrics.Handled(s.index.Name(), kind, started)
	if err != nil {
		s.metrics.Failed(s.index.Name(), kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, "index mutation failed")
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

func (s *Strategy) onMoved(ctx context.Context, e content.ItemMoved) error {
	deleteOld := true
	if s.rootBoundaryCheck {
		if s.underAnyRoot(ctx, e.Ref) {
			// The refresh rewrites every version in place.
			deleteOld = false
		} else {
			oldParent := content.NewRef(e.OldParentID, e.Ref.Language, content.LatestVersion, e.Ref.Database)
			deleteOld = s.underAnyRoot(ctx, oldParent)
		}
	}

	if deleteOld {
		if err := s.custodian.DeleteEntry(ctx, s.index, e.Ref.ItemID); err != nil {
			return err
		}
	} else {
		slog.DebugContext(ctx, "move needs no delete, keeping entries",
			"index", s.index.Name(),
			"item", string(e.Ref.ItemID),
			"old_parent", string(e.OldParentID),
		)
	}
	return s.custodian.RefreshSubtree(ctx, s.index, e.Ref)
}

func (s *Strategy) onCopied(ctx context.Context, e content.ItemCopied) error {
	if !s.admit(ctx, e.Ref) {
		return nil
	}
	return s.custodian.RefreshSubtree(ctx, s.index, e.Ref)
}

func (s *Strategy) onUpdated(ctx context.Context, e content.ItemUpdated) error {
	if !s.admit(ctx, e.Ref) {
		return nil
	}
	flags := index.UpdateFlags{
		Shared:      e.Changes.SharedChanged(),
		Unversioned: e.Changes.UnversionedChanged(),
	}
	return s.custodian.UpdateEntry(ctx, s.index, e.Ref, flags)
}

func (s *Strategy) onVersionAdded(ctx context.Context, e content.ItemVersionAdded) error {
	it, err := s.tree.GetItem(ctx, e.Ref.AtLatest())
	if errors.Is(err, content.ErrItemNotFound) {
		name := s.index.Name()
		slog.WarnContext(ctx,
			fmt.Sprintf("[Index=%s] Couldn't retrieve Uri for the added item. The index will not be updated.", name),
			"index", name,
			"ref", e.Ref.String(),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve %s: %w", e.Ref.AtLatest(), err)
	}
	return s.custodian.UpdateEntry(ctx, s.index, it.Ref, index.UpdateFlags{VersionAdded: true})
}

func (s *Strategy) onVersionDeleted(ctx context.Context, e content.ItemVersionDeleted) error {
	return s.custodian.DeleteVersion(ctx, s.index, e.Ref)
}

func (s *Strategy) onDeleted(ctx context.Context, e content.ItemDeleted) error {
	return s.custodian.DeleteEntry(ctx, s.index, e.ItemID)
}

// admit applies the optional root boundary to updates and copies.
func (s *Strategy) admit(ctx context.Context, ref content.IndexableRef) bool {
	if !s.rootBoundaryCheck || s.underAnyRoot(ctx, ref) {
		return true
	}
	slog.DebugContext(ctx, "item outside crawler roots, skipping",
		"index", s.index.Name(),
		"ref", ref.String(),
	)
	return false
}

type rooted interface {
	IsUnderRoot(ctx context.Context, ref content.IndexableRef) bool
}

// underAnyRoot reports whether some crawler of the index covers ref.
// An index without root-aware crawlers covers everything.
func (s *Strategy) underAnyRoot(ctx context.Context, ref content.IndexableRef) bool {
	sawRooted := false
	for _, c := range s.index.Crawlers() {
		r, ok := c.(rooted)
		if !ok {
			continue
		}
		sawRooted = true
		if r.IsUnderRoot(ctx, ref) {
			return true
		}
	}
	return !sawRooted
}

func itemOf(ev content.ChangeEvent) content.ItemID {
	switch e := ev.(type) {
	case content.ItemMoved:
		return e.Ref.ItemID
	case content.ItemCopied:
		return e.Ref.ItemID
	case content.ItemUpdated:
		return e.Ref.ItemID
	case content.ItemVersionAdded:
		return e.Ref.ItemID
	case content.ItemVersionDeleted:
		return e.Ref.ItemID
	case content.ItemDeleted:
		return e.ItemID
	}
	return ""
}
