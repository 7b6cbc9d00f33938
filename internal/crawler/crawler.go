package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/index"
)

const tracerName = "github.com/roach88/indexsync/internal/crawler"

// Updater is the base index-mutation primitive a Crawler decorates.
type Updater interface {
	Update(ctx context.Context, ref content.IndexableRef, flags index.UpdateFlags) error
}

// Config wires a Crawler.
type Config struct {
	// Name identifies the crawler in logs.
	Name string

	// Index is the name of the index the crawler feeds.
	Index string

	// Base writes a single entry. Required.
	Base Updater

	// Policy decides exclusion. Required.
	Policy ExclusionPolicy

	// Dependencies resolves dependents of excluded items.
	// Required when ProcessDependentsOnExclusion is set.
	Dependencies content.DependencyResolver

	// Tree walks descendants for Refresh. Required for Refresh.
	Tree content.Tree

	// ProcessDependentsOnExclusion enables the cascade for excluded items.
	ProcessDependentsOnExclusion bool
}

// Option configures optional Crawler behaviour.
type Option func(*Crawler)

// WithObserver sets the notification sink. Default: index.LogObserver.
func WithObserver(o index.Observer) Option {
	return func(c *Crawler) {
		c.observer = o
	}
}

// WithPassIDGenerator overrides the pass id generator. Default: UUIDv7Generator.
func WithPassIDGenerator(g PassIDGenerator) Option {
	return func(c *Crawler) {
		c.passGen = g
	}
}

// WithParallelism fans dependents of one excluded item out over up to n
// goroutines. n <= 1 keeps the traversal sequential (the default).
func WithParallelism(n int) Option {
	return func(c *Crawler) {
		c.parallelism = n
	}
}

// Crawler is an index.Crawler that enforces exclusion and cascades updates
// to dependents of excluded items.
//
// Thread-safety: safe for concurrent use. Each Update call owns its VisitedSet.
type Crawler struct {
	cfg         Config
	observer    index.Observer
	passGen     PassIDGenerator
	parallelism int
}

var _ index.Crawler = (*Crawler)(nil)

// New creates a Crawler.
func New(cfg Config, opts ...Option) (*Crawler, error) {
	if cfg.Base == nil {
		return nil, fmt.Errorf("crawler %q: base updater is required", cfg.Name)
	}
	if cfg.Policy == nil {
		return nil, fmt.Errorf("crawler %q: exclusion policy is required", cfg.Name)
	}
	if cfg.ProcessDependentsOnExclusion && cfg.Dependencies == nil {
		return nil, fmt.Errorf("crawler %q: dependency resolver is required to process dependents", cfg.Name)
	}

	c := &Crawler{
		cfg:         cfg,
		observer:    index.LogObserver{},
		passGen:     UUIDv7Generator{},
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the crawler name.
func (c *Crawler) Name() string {
	return c.cfg.Name
}

// IsUnderRoot reports whether ref lies under the crawler root.
// Crawlers whose policy has no notion of a root admit everything.
func (c *Crawler) IsUnderRoot(ctx context.Context, ref content.IndexableRef) bool {
	rooted, ok := c.cfg.Policy.(interface {
		IsUnderRoot(context.Context, content.IndexableRef) bool
	})
	if !ok {
		return true
	}
	return rooted.IsUnderRoot(ctx, ref)
}

// Update re-derives the entry for ref, or cascades to its dependents when ref
// is excluded. One call is one pass with its own VisitedSet.
func (c *Crawler) Update(ctx context.Context, ref content.IndexableRef, flags index.UpdateFlags) error {
	pass := c.passGen.Generate()
	ref = c.pin(ctx, ref)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "crawler.Update",
		trace.WithAttributes(
			attribute.String("crawler", c.cfg.Name),
			attribute.String("index", c.cfg.Index),
			attribute.String("ref", ref.String()),
			attribute.String("pass", pass),
		),
	)
	defer span.End()

	visited := NewVisitedSet()
	visited.Add(ref)

	err := c.visit(ctx, pass, visited, ref, flags)

	span.SetAttributes(attribute.Int("visited", visited.Len()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}

	slog.Debug("crawler pass finished",
		"crawler", c.cfg.Name,
		"index", c.cfg.Index,
		"ref", ref.String(),
		"pass", pass,
		"visited", visited.Len(),
	)
	return nil
}

// visit processes one reference already recorded in visited.
func (c *Crawler) visit(ctx context.Context, pass string, visited *VisitedSet, ref content.IndexableRef, flags index.UpdateFlags) error {
	if !c.cfg.Policy.IsExcluded(ctx, ref) {
		return c.cfg.Base.Update(ctx, ref, flags)
	}

	c.notify(ctx, index.NotifyExcluded, ref, nil)

	if !c.cfg.ProcessDependentsOnExclusion {
		return nil
	}

	c.notify(ctx, index.NotifyUpdateDependents, ref, nil)

	dependents, err := c.cfg.Dependencies.Dependents(ctx, ref)
	if err != nil {
		slog.Warn("dependency resolution failed",
			"crawler", c.cfg.Name,
			"index", c.cfg.Index,
			"ref", ref.String(),
			"pass", pass,
			"error", err,
		)
		c.notify(ctx, index.NotifyUnresolved, ref, err)
		return nil
	}

	// Claim dependents before descending so sibling branches never revisit them.
	pending := make([]content.IndexableRef, 0, len(dependents))
	for _, d := range dependents {
		if visited.Add(d) {
			pending = append(pending, d)
			continue
		}
		slog.Debug("dependent already visited in pass",
			"crawler", c.cfg.Name,
			"ref", d.String(),
			"pass", pass,
		)
	}

	if c.parallelism > 1 && len(pending) > 1 {
		return c.visitParallel(ctx, pass, visited, pending)
	}

	for _, d := range pending {
		if err := c.visitDependent(ctx, pass, visited, d); err != nil {
			return err
		}
	}
	return nil
}

// visitDependent visits one dependent, isolating failures that only concern it.
func (c *Crawler) visitDependent(ctx context.Context, pass string, visited *VisitedSet, d content.IndexableRef) error {
	err := c.visit(ctx, pass, visited, d, index.UpdateFlags{})
	if err == nil {
		return nil
	}
	if errors.Is(err, content.ErrItemNotFound) {
		slog.Warn("dependent could not be loaded, skipping",
			"crawler", c.cfg.Name,
			"index", c.cfg.Index,
			"ref", d.String(),
			"pass", pass,
			"error", err,
		)
		c.notify(ctx, index.NotifyUnresolved, d, err)
		return nil
	}
	return err
}

// visitParallel visits dependents on up to c.parallelism goroutines and
// returns the first hard failure after all of them finished.
func (c *Crawler) visitParallel(ctx context.Context, pass string, visited *VisitedSet, pending []content.IndexableRef) error {
	sem := make(chan struct{}, c.parallelism)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, d := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(d content.IndexableRef) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := c.visitDependent(ctx, pass, visited, d); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(d)
	}

	wg.Wait()
	return firstErr
}

// Refresh re-derives every version of ref and of every descendant, in every
// language the root item exists in. Each version is its own Update pass.
func (c *Crawler) Refresh(ctx context.Context, ref content.IndexableRef) error {
	if c.cfg.Tree == nil {
		return fmt.Errorf("crawler %q: refresh needs a content tree", c.cfg.Name)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "crawler.Refresh",
		trace.WithAttributes(
			attribute.String("crawler", c.cfg.Name),
			attribute.String("index", c.cfg.Index),
			attribute.String("ref", ref.String()),
		),
	)
	defer span.End()

	langs, err := c.cfg.Tree.Languages(ctx, ref.ItemID, ref.Database)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list languages failed")
		return fmt.Errorf("refresh %s: list languages: %w", ref, err)
	}
	if len(langs) == 0 {
		slog.Warn("refresh root no longer exists",
			"crawler", c.cfg.Name,
			"index", c.cfg.Index,
			"ref", ref.String(),
		)
		c.notify(ctx, index.NotifyUnresolved, ref, content.ErrItemNotFound)
		return nil
	}

	nodes := 0
	for _, lang := range langs {
		n, err := c.refreshTree(ctx, ref.WithLanguage(lang))
		nodes += n
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "refresh failed")
			return err
		}
	}

	span.SetAttributes(attribute.Int("nodes", nodes))
	slog.Debug("subtree refreshed",
		"crawler", c.cfg.Name,
		"index", c.cfg.Index,
		"ref", ref.String(),
		"nodes", nodes,
	)
	return nil
}

// refreshTree updates every stored version of ref's item in ref's language,
// then walks its children depth first.
func (c *Crawler) refreshTree(ctx context.Context, ref content.IndexableRef) (int, error) {
	versions, err := c.cfg.Tree.Versions(ctx, ref.ItemID, ref.Language, ref.Database)
	if err != nil {
		return 0, fmt.Errorf("refresh %s: list versions: %w", ref, err)
	}
	if len(versions) == 0 {
		// Deleted while the walk was running; nothing below it to refresh.
		c.notify(ctx, index.NotifyUnresolved, ref, content.ErrItemNotFound)
		return 0, nil
	}

	for _, v := range versions {
		if err := c.Update(ctx, v, index.UpdateFlags{}); err != nil {
			if !errors.Is(err, content.ErrItemNotFound) {
				return 0, err
			}
			c.notify(ctx, index.NotifyUnresolved, v, err)
		}
	}

	children, err := c.cfg.Tree.Children(ctx, ref)
	if err != nil {
		return 1, fmt.Errorf("refresh %s: list children: %w", ref, err)
	}

	nodes := 1
	for _, child := range children {
		n, err := c.refreshTree(ctx, child)
		nodes += n
		if err != nil {
			return nodes, err
		}
	}
	return nodes, nil
}

// pin replaces a latest-version reference with the version it names now, so
// a pass records each indexable under one key. Without a tree, or when the
// item has no versions, ref is returned unchanged.
func (c *Crawler) pin(ctx context.Context, ref content.IndexableRef) content.IndexableRef {
	if ref.Version != content.LatestVersion || c.cfg.Tree == nil {
		return ref
	}
	versions, err := c.cfg.Tree.Versions(ctx, ref.ItemID, ref.Language, ref.Database)
	if err != nil || len(versions) == 0 {
		return ref
	}
	return versions[len(versions)-1]
}

func (c *Crawler) notify(ctx context.Context, kind index.NotificationKind, ref content.IndexableRef, err error) {
	if c.observer == nil {
		return
	}
	c.observer.Notify(ctx, index.Notification{Kind: kind, Index: c.cfg.Index, Ref: ref, Err: err})
}
