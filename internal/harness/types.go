package harness

import "github.com/roach88/indexsync/internal/store"

// StepTrace is what one scenario step wrote to the index.
type StepTrace struct {
	Step    int                   `json:"step"`
	Event   string                `json:"event,omitempty"`
	Journal []store.JournalRecord `json:"journal"`
	Error   string                `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace holds one entry per step, in order.
	Trace []StepTrace `json:"trace"`

	// Journal is the full journal of the index.
	Journal []store.JournalRecord `json:"-"`

	// Entries is the final content of the index.
	Entries []store.Entry `json:"entries"`

	// Errors are assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []StepTrace{},
		Entries: []store.Entry{},
		Errors:  []string{},
	}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
