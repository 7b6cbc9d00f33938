// Package harness runs indexing scenarios end to end.
//
// A scenario seeds a content store, runs a script of content edits and
// change events through a pipeline built from an inline config, and checks
// the resulting index journal and entries.
//
// # Scenario Format
//
//	name: excluded_cascade
//	description: "Dependents of an excluded item are re-indexed"
//	config:
//	  database: master
//	  index:
//	    name: master_index
//	    crawlers:
//	      - name: content
//	        root: /sitecore/content
//	content:
//	  - {id: home, language: en, version: 1, name: Home, path: /sitecore/content/home}
//	steps:
//	  - event: {kind: "item:updated", ref: "home/en/1"}
//	assertions:
//	  - type: journal_contains
//	    op: upsert
//	    ref: master:home/en/1
//	  - type: entry_count
//	    count: 1
//
// Refs without a database use the config database.
//
// # Assertion Types
//
//   - journal_contains: a journal record with op and ref (or item) exists
//   - journal_order: refs were written in this relative order
//   - journal_count: op on item (any version) appears exactly count times
//   - entry_exists / entry_absent: the index holds (or lacks) ref; entry_exists
//     also checks the entry path when path is set
//   - entry_count: the index holds exactly count entries
//
// # Deterministic Output
//
// Crawler pass ids are fixed and the journal sequence is the only clock, so
// a scenario always produces the same trace. RunWithGolden compares that
// trace with testdata/golden/<name>.golden.
package harness
