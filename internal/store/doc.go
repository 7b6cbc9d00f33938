// Package store provides SQLite-backed durable storage for search index
// entries.
//
// The store keeps three tables:
//   - entries: the indexed documents, one row per (index, item version)
//   - journal: an append-only log of every write, in application order
//   - index_state: the per-index pause flag
//
// # Ordering
//
// Every write appends one journal row inside the same transaction as the
// entry change. The journal sequence is the logical clock of the store:
// entries carry the seq of their last write, and all listing queries order
// by seq ASC, key ASC so results are identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Store implements index.Writer and index.State.
package store
