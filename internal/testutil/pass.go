package testutil

// FixedPassGenerator returns the same pass id every time.
//
// Cascade passes normally get a fresh UUIDv7 for log correlation; tests use a
// fixed id so that captured logs and golden journals are byte-identical.
//
// Thread-safety: FixedPassGenerator is stateless and safe for concurrent use.
type FixedPassGenerator struct {
	id string
}

// NewFixedPassGenerator creates a generator returning id.
// If id is empty, Generate returns "test-pass".
func NewFixedPassGenerator(id string) *FixedPassGenerator {
	if id == "" {
		id = "test-pass"
	}
	return &FixedPassGenerator{id: id}
}

// Generate returns the fixed pass id.
func (g *FixedPassGenerator) Generate() string {
	return g.id
}
