// Package strategy keeps a search index in step with content changes.
//
// A Strategy is bound to one content database and one index. It reacts to
// the six content events on the caller's goroutine and turns each into the
// matching index mutations (update, delete, version delete, subtree
// refresh). A Gate suppresses all work for events from another database,
// while indexing is paused, and during a bulk update.
//
// The Strategy keeps no state across events. Exclusion of individual items
// is the crawler's concern, not the strategy's.
package strategy
