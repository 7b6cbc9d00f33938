package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the journal to help debug the failure.
type AssertionError struct {
	Type     string                // Assertion type for categorization
	Expected string                // Human-readable expected outcome
	Actual   string                // Human-readable actual outcome
	Journal  []store.JournalRecord // Full journal for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Journal) > 0 {
		fmt.Fprintf(&buf, "\nJournal:\n")
		for _, r := range e.Journal {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", r.Seq, r.Op, r.ItemID, r.Ref)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure messages.
// Refs without a database are read in database.
func EvaluateAssertions(result *Result, assertions []Assertion, database string) []string {
	var failures []string
	for _, a := range assertions {
		if err := evaluate(result, a, database); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion, database string) error {
	switch a.Type {
	case AssertJournalContains:
		return assertJournalContains(result.Journal, a, database)
	case AssertJournalOrder:
		return assertJournalOrder(result.Journal, a, database)
	case AssertJournalCount:
		return assertJournalCount(result.Journal, a)
	case AssertEntryExists:
		return assertEntry(result, a, database, true)
	case AssertEntryAbsent:
		return assertEntry(result, a, database, false)
	case AssertEntryCount:
		if len(result.Entries) != a.Count {
			return &AssertionError{
				Type:     AssertEntryCount,
				Expected: fmt.Sprintf("%d entries", a.Count),
				Actual:   fmt.Sprintf("%d entries", len(result.Entries)),
				Journal:  result.Journal,
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// canonicalRef normalises a ref for comparison with journal text.
func canonicalRef(s, database string) (string, error) {
	if !strings.Contains(s, ":") {
		s = database + ":" + s
	}
	ref, err := content.ParseRef(s)
	if err != nil {
		return "", err
	}
	return ref.String(), nil
}

func canonicalItem(s string) string {
	id, err := content.ParseItemID(s)
	if err != nil {
		return s
	}
	return string(id)
}

// assertJournalContains checks for a record with the op and ref (or item).
func assertJournalContains(journal []store.JournalRecord, a Assertion, database string) error {
	want := canonicalItem(a.Item)
	if a.Ref != "" {
		ref, err := canonicalRef(a.Ref, database)
		if err != nil {
			return err
		}
		want = ref
	}
	for _, r := range journal {
		if r.Op != a.Op {
			continue
		}
		if (a.Ref != "" && r.Ref == want) || (a.Ref == "" && r.ItemID == want) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertJournalContains,
		Expected: fmt.Sprintf("%s of %s", a.Op, want),
		Actual:   "not found in journal",
		Journal:  journal,
	}
}

// assertJournalOrder checks that refs were first written in the given order.
// Other records may appear between them.
func assertJournalOrder(journal []store.JournalRecord, a Assertion, database string) error {
	positions := make(map[string]int, len(a.Refs))
	refs := make([]string, 0, len(a.Refs))
	for _, s := range a.Refs {
		ref, err := canonicalRef(s, database)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}

	for i, r := range journal {
		for _, ref := range refs {
			if r.Ref == ref && positions[ref] == 0 {
				positions[ref] = i + 1 // 1-indexed for readability
			}
		}
	}

	for _, ref := range refs {
		if positions[ref] == 0 {
			return &AssertionError{
				Type:     AssertJournalOrder,
				Expected: fmt.Sprintf("all refs written: %v", refs),
				Actual:   fmt.Sprintf("missing ref: %s", ref),
				Journal:  journal,
			}
		}
	}
	for i := 1; i < len(refs); i++ {
		prev, curr := refs[i-1], refs[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertJournalOrder,
				Expected: fmt.Sprintf("refs in order: %v", refs),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Journal: journal,
			}
		}
	}
	return nil
}

// assertJournalCount checks how often op was applied to an item, across
// all of its languages and versions.
func assertJournalCount(journal []store.JournalRecord, a Assertion) error {
	want := canonicalItem(a.Item)
	count := 0
	for _, r := range journal {
		if r.Op == a.Op && r.ItemID == want {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("%d %s records for %s", a.Count, a.Op, want),
			Actual:   fmt.Sprintf("%d records", count),
			Journal:  journal,
		}
	}
	return nil
}

func assertEntry(result *Result, a Assertion, database string, present bool) error {
	ref, err := canonicalRef(a.Ref, database)
	if err != nil {
		return err
	}
	var found *store.Entry
	for i := range result.Entries {
		if result.Entries[i].Ref.String() == ref {
			found = &result.Entries[i]
			break
		}
	}

	switch {
	case present && found != nil && (a.Path == "" || found.Path == a.Path):
		return nil
	case !present && found == nil:
		return nil
	}

	expected, actual := "entry "+ref, "absent"
	switch {
	case !present:
		expected, actual = "no entry "+ref, "present"
	case found != nil:
		expected = fmt.Sprintf("entry %s at %s", ref, a.Path)
		actual = "at " + found.Path
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: expected,
		Actual:   actual,
		Journal:  result.Journal,
	}
}
