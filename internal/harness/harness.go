package harness

import (
	"context"
	"fmt"

	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/contentstore"
	"github.com/roach88/indexsync/internal/index"
	"github.com/roach88/indexsync/internal/pipeline"
	"github.com/roach88/indexsync/internal/store"
	"github.com/roach88/indexsync/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory content store and a fresh
// in-memory index database.
//
// Execution flow:
// 1. Seed the content store
// 2. Build the pipeline from the scenario config
// 3. Apply each step, recording the journal records it produced
// 4. Evaluate assertions against the journal and final entries
//
// A step whose event handler fails is recorded in the trace; the remaining
// steps still run.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	cfg := scenario.Settings()
	if cfg == nil {
		return nil, fmt.Errorf("scenario %q was not validated", scenario.Name)
	}

	cs, err := contentstore.OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create content store: %w", err)
	}
	defer cs.Close()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	seed := &pipeline.Script{Database: cfg.Database, Steps: []pipeline.Step{{Put: scenario.Content}}}
	if err := seed.Apply(ctx, 0, cs, nopPublisher{}); err != nil {
		return nil, fmt.Errorf("failed to seed content: %w", err)
	}

	bulk := index.NewBulkContext()
	p, err := pipeline.Build(cfg, cs, st,
		pipeline.WithState(st),
		pipeline.WithBulkMode(bulk),
		pipeline.WithPassIDGenerator(testutil.NewFixedPassGenerator(scenario.Name)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer p.Close()

	if scenario.Paused {
		if err := st.SetPaused(ctx, cfg.Index.Name, true); err != nil {
			return nil, err
		}
	}
	if scenario.Bulk {
		exit := bulk.Enter()
		defer exit()
	}

	result := NewResult()
	script := scenario.Script()
	var seen int
	for i, step := range script.Steps {
		stepErr := script.Apply(ctx, i, cs, p)

		journal, err := st.Journal(ctx, cfg.Index.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to read journal: %w", err)
		}
		trace := StepTrace{Step: i, Journal: journal[seen:]}
		seen = len(journal)
		if step.Event != nil {
			trace.Event = describe(step.Event, cfg.Database)
		}
		if stepErr != nil {
			trace.Error = stepErr.Error()
		}
		result.Trace = append(result.Trace, trace)
	}

	if result.Journal, err = st.Journal(ctx, cfg.Index.Name); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	if result.Entries, err = st.Entries(ctx, cfg.Index.Name); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, cfg.Database) {
		result.AddError(msg)
	}
	return result, nil
}

// describe renders an event as "kind target".
func describe(es *pipeline.EventSpec, database string) string {
	ev, err := es.ChangeEvent(database)
	if err != nil {
		return string(es.Kind)
	}
	switch e := ev.(type) {
	case content.ItemDeleted:
		return fmt.Sprintf("%s %s:%s", e.Kind(), e.Database, e.ItemID)
	case content.ItemMoved:
		return fmt.Sprintf("%s %s from %s", e.Kind(), e.Ref, e.OldParentID)
	case content.ItemUpdated:
		return fmt.Sprintf("%s %s", e.Kind(), e.Ref)
	case content.ItemCopied:
		return fmt.Sprintf("%s %s", e.Kind(), e.Ref)
	case content.ItemVersionAdded:
		return fmt.Sprintf("%s %s", e.Kind(), e.Ref)
	case content.ItemVersionDeleted:
		return fmt.Sprintf("%s %s", e.Kind(), e.Ref)
	}
	return string(ev.Kind())
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, content.ChangeEvent) error { return nil }
