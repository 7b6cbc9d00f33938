// Package index defines the index-mutation boundary consumed by the update
// strategy and the crawlers, plus a local implementation of it.
//
// # Contract
//
// A Custodian executes index mutations for one Index:
//
//	UpdateEntry(ctx, idx, ref, flags)   - re-derive the entry for ref (each crawler decides exclusion)
//	DeleteEntry(ctx, idx, itemID)       - remove every entry of the item
//	DeleteVersion(ctx, idx, ref)        - remove the entry of one version
//	RefreshSubtree(ctx, idx, ref)       - re-derive ref and all of its descendants
//
// Mutations are idempotent: replaying the same call yields the same index.
//
// Ambient state is queried through injected interfaces, never globals:
//
//	State.IsIndexingPaused(idx) bool
//	BulkMode.IsBulkUpdateActive() bool
//
// # Observability
//
// Crawlers and strategies report "excluded", "update dependents" and
// "unresolved" notifications to an Observer. LogObserver writes them to slog;
// the metrics package provides a Prometheus-backed Observer.
package index
