// Package content defines the data model shared by every indexing component.
//
// This package contains type definitions and the content store contracts only.
// All other internal packages import content; content imports nothing internal.
//
// Key design constraints:
//   - IndexableRef is an immutable, comparable value (usable as a map key)
//   - ChangeEvent is a closed sum type; dispatch is a type switch, never reflection
//   - Version 0 (LatestVersion) always means "resolve to the current latest version"
package content
