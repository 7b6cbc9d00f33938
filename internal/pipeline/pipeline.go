// Package pipeline assembles the indexing components described by a config
// into a running strategy subscribed to an event hub.
package pipeline

import (
	"context"
	"fmt"

	"github.com/roach88/indexsync/internal/config"
	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/crawler"
	"github.com/roach88/indexsync/internal/events"
	"github.com/roach88/indexsync/internal/index"
	"github.com/roach88/indexsync/internal/metrics"
	"github.com/roach88/indexsync/internal/strategy"
)

// Content is the content store the pipeline reads: the item tree plus the
// reverse dependency index.
type Content interface {
	content.Tree
	content.DependencyResolver
}

// Option configures Build.
type Option func(*options)

type options struct {
	state    index.State
	bulk     index.BulkMode
	metrics  *metrics.Metrics
	observer index.Observer
	passGen  crawler.PassIDGenerator
	hub      *events.Hub
}

// WithState sets the pause state consulted by the gate.
func WithState(s index.State) Option {
	return func(o *options) { o.state = s }
}

// WithBulkMode sets the bulk-update indicator consulted by the gate.
func WithBulkMode(b index.BulkMode) Option {
	return func(o *options) { o.bulk = b }
}

// WithMetrics instruments the strategy and crawlers.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithObserver adds a notification sink next to the log observer.
func WithObserver(obs index.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithPassIDGenerator fixes crawler pass ids (tests, golden runs).
func WithPassIDGenerator(g crawler.PassIDGenerator) Option {
	return func(o *options) { o.passGen = g }
}

// WithHub subscribes the strategy to an existing hub instead of a new one.
func WithHub(h *events.Hub) Option {
	return func(o *options) { o.hub = h }
}

// Pipeline is a configured index with its strategy subscribed to Hub.
type Pipeline struct {
	Hub      *events.Hub
	Index    *index.Local
	Strategy *strategy.Strategy

	unsubscribe func()
}

// Build wires one index with the crawlers of cfg over src, writing through w.
func Build(cfg *config.Config, src Content, w index.Writer, opts ...Option) (*Pipeline, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.hub == nil {
		o.hub = events.NewHub()
	}

	observers := index.MultiObserver{index.LogObserver{}}
	if o.metrics != nil {
		observers = append(observers, o.metrics.Observer())
	}
	if o.observer != nil {
		observers = append(observers, o.observer)
	}

	idx := index.NewLocal(cfg.Index.Name, w)
	var crawlerOpts []crawler.Option
	crawlerOpts = append(crawlerOpts,
		crawler.WithObserver(observers),
		crawler.WithParallelism(cfg.Index.Parallelism),
	)
	if o.passGen != nil {
		crawlerOpts = append(crawlerOpts, crawler.WithPassIDGenerator(o.passGen))
	}

	for _, cc := range cfg.Index.Crawlers {
		rules, err := rulesFor(cc)
		if err != nil {
			return nil, err
		}
		policy := crawler.NewRulePolicy(src, rules)
		c, err := crawler.New(crawler.Config{
			Name:                         cc.Name,
			Index:                        cfg.Index.Name,
			Base:                         crawler.NewDocumentUpdater(cfg.Index.Name, src, w, policy),
			Policy:                       policy,
			Dependencies:                 src,
			Tree:                         src,
			ProcessDependentsOnExclusion: cc.ProcessDependentsOnExclusion,
		}, crawlerOpts...)
		if err != nil {
			return nil, fmt.Errorf("build crawler: %w", err)
		}
		idx.AddCrawler(c)
	}

	sopts := []strategy.Option{strategy.WithRootBoundaryCheck(cfg.Index.RootBoundaryCheck)}
	if o.state != nil {
		sopts = append(sopts, strategy.WithState(o.state))
	}
	if o.bulk != nil {
		sopts = append(sopts, strategy.WithBulkMode(o.bulk))
	}
	if o.metrics != nil {
		sopts = append(sopts, strategy.WithMetrics(o.metrics))
	}

	s, err := strategy.New(cfg.Database, idx, index.NewLocalCustodian(), src, sopts...)
	if err != nil {
		return nil, fmt.Errorf("build strategy: %w", err)
	}

	return &Pipeline{
		Hub:         o.hub,
		Index:       idx,
		Strategy:    s,
		unsubscribe: s.Subscribe(o.hub),
	}, nil
}

// Publish delivers ev to the strategy (and any other hub subscribers).
func (p *Pipeline) Publish(ctx context.Context, ev content.ChangeEvent) error {
	return p.Hub.Publish(ctx, ev)
}

// Close detaches the strategy from the hub. Safe to call more than once.
func (p *Pipeline) Close() {
	p.unsubscribe()
}

func rulesFor(cc config.CrawlerConfig) (crawler.Rules, error) {
	items := make([]content.ItemID, 0, len(cc.ExcludedItems))
	for _, s := range cc.ExcludedItems {
		id, err := content.ParseItemID(s)
		if err != nil {
			return crawler.Rules{}, fmt.Errorf("crawler %q excluded item: %w", cc.Name, err)
		}
		items = append(items, id)
	}
	return crawler.Rules{
		Root:              cc.Root,
		ExcludedTemplates: cc.ExcludedTemplates,
		ExcludedItems:     items,
		Languages:         cc.Languages,
	}, nil
}
