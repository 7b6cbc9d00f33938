package content

// FieldKind tells how widely a field value is shared across versions.
type FieldKind string

const (
	// FieldShared values are common to every language and every version.
	FieldShared FieldKind = "shared"
	// FieldUnversioned values are common to every version within one language.
	FieldUnversioned FieldKind = "unversioned"
	// FieldVersioned values belong to exactly one version.
	FieldVersioned FieldKind = "versioned"
)

// FieldChange is a single field delta reported by a save.
type FieldChange struct {
	Field    string    `json:"field" yaml:"field"`
	Kind     FieldKind `json:"kind" yaml:"kind"`
	Original string    `json:"original" yaml:"original"`
	Value    string    `json:"value" yaml:"value"`
}

// Real reports whether the change actually altered the value.
// Saves routinely report untouched fields; those must not trigger re-derivation.
func (c FieldChange) Real() bool {
	return c.Original != c.Value
}

// FieldChangeSet is the ordered list of field deltas of one save.
type FieldChangeSet []FieldChange

// RealChanges returns the changes whose value differs, preserving order.
// Returns an empty (non-nil) slice when nothing changed.
func (s FieldChangeSet) RealChanges() FieldChangeSet {
	result := make(FieldChangeSet, 0, len(s))
	for _, c := range s {
		if c.Real() {
			result = append(result, c)
		}
	}
	return result
}

// SharedChanged reports whether any shared field really changed.
func (s FieldChangeSet) SharedChanged() bool {
	return s.anyReal(FieldShared)
}

// UnversionedChanged reports whether any unversioned field really changed.
func (s FieldChangeSet) UnversionedChanged() bool {
	return s.anyReal(FieldUnversioned)
}

func (s FieldChangeSet) anyReal(kind FieldKind) bool {
	for _, c := range s {
		if c.Kind == kind && c.Real() {
			return true
		}
	}
	return false
}
