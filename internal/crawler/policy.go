package crawler

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/indexsync/internal/content"
)

// ExclusionPolicy decides whether a reference must not get its own index entry.
// Implementations are pure and safe to call repeatedly and concurrently.
type ExclusionPolicy interface {
	IsExcluded(ctx context.Context, ref content.IndexableRef) bool
}

// PolicyFunc adapts a function to ExclusionPolicy.
type PolicyFunc func(ctx context.Context, ref content.IndexableRef) bool

// IsExcluded implements ExclusionPolicy.
func (f PolicyFunc) IsExcluded(ctx context.Context, ref content.IndexableRef) bool {
	return f(ctx, ref)
}

// Rules configure a RulePolicy.
type Rules struct {
	// Root is the path the crawler indexes; items must be at or below it.
	// Empty or "/" admits the whole tree.
	Root string

	// ExcludedTemplates are template names never indexed (case-insensitive).
	ExcludedTemplates []string

	// ExcludedItems are item ids never indexed.
	ExcludedItems []content.ItemID

	// Languages restricts indexing to these languages. Empty admits all.
	Languages []string
}

// RulePolicy excludes references outside the crawler root or matching a rule.
//
// A reference that cannot be resolved is excluded: there is nothing to index.
type RulePolicy struct {
	tree      content.Resolver
	root      string
	templates map[string]bool
	items     map[content.ItemID]bool
	languages map[string]bool
}

// NewRulePolicy builds a policy over tree.
func NewRulePolicy(tree content.Resolver, rules Rules) *RulePolicy {
	p := &RulePolicy{
		tree:      tree,
		root:      normalizePath(rules.Root),
		templates: make(map[string]bool, len(rules.ExcludedTemplates)),
		items:     make(map[content.ItemID]bool, len(rules.ExcludedItems)),
		languages: make(map[string]bool, len(rules.Languages)),
	}
	for _, t := range rules.ExcludedTemplates {
		p.templates[fold(t)] = true
	}
	for _, id := range rules.ExcludedItems {
		p.items[id] = true
	}
	for _, l := range rules.Languages {
		p.languages[fold(l)] = true
	}
	return p
}

// Root returns the normalised crawler root ("" for the whole tree).
func (p *RulePolicy) Root() string {
	return p.root
}

// IsExcluded implements ExclusionPolicy.
func (p *RulePolicy) IsExcluded(ctx context.Context, ref content.IndexableRef) bool {
	if p.items[ref.ItemID] {
		return true
	}
	if len(p.languages) > 0 && !p.languages[fold(ref.Language)] {
		return true
	}

	it, err := p.tree.GetItem(ctx, ref)
	if err != nil {
		return true
	}
	if it.Template != "" && p.templates[fold(it.Template)] {
		return true
	}
	return !p.underRoot(it.Path)
}

// IsUnderRoot reports whether ref resolves to an item at or below the root.
func (p *RulePolicy) IsUnderRoot(ctx context.Context, ref content.IndexableRef) bool {
	it, err := p.tree.GetItem(ctx, ref)
	if err != nil {
		return false
	}
	return p.underRoot(it.Path)
}

func (p *RulePolicy) underRoot(path string) bool {
	if p.root == "" {
		return true
	}
	path = normalizePath(path)
	return path == p.root || strings.HasPrefix(path, p.root+"/")
}

// normalizePath makes item paths comparable: NFC, case-folded, without a
// trailing slash. Item paths are case-insensitive.
func normalizePath(path string) string {
	path = strings.TrimRight(fold(strings.TrimSpace(path)), "/")
	return path
}

// fold returns the NFC, case-folded form of s.
// A Caser is stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}
