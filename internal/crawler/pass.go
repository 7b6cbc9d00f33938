package crawler

import "github.com/google/uuid"

// PassIDGenerator generates identifiers for cascade passes.
// Implemented by UUIDv7Generator (production) and testutil.FixedPassGenerator (tests).
type PassIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 pass ids, so log lines of one
// pass can be correlated and passes sort by start time.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
