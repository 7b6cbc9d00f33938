// Package crawler derives index entries from content items and cascades
// updates to dependents of items the index excludes.
//
// # Cascade
//
// Crawler wraps a base Updater (the primitive that writes one entry):
//
//  1. If the reference is excluded by the ExclusionPolicy, the base is NOT
//     called. An "excluded" notification is emitted and, when the crawler
//     processes dependents on exclusion, every dependent returned by the
//     DependencyResolver that is not yet in the pass's VisitedSet is added to
//     it and visited recursively.
//  2. Otherwise the base Updater is called once and nothing cascades: an
//     item indexed on its own merits propagates through its update flags.
//
// Every top-level Update creates a fresh VisitedSet; sets are never shared
// between passes, so concurrent events cannot suppress each other's visits.
// The set makes the traversal terminate even when the dependency relation
// has cycles: each member of a cycle is visited exactly once.
//
// # Failures
//
//   - Dependency resolution failure: logged, the pass continues.
//   - A dependent that can no longer be loaded (content.ErrItemNotFound):
//     logged, siblings continue.
//   - Any other base failure: returned to the caller.
package crawler
