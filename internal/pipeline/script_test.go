package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/indexsync/internal/content"
)

type recordingPublisher struct {
	events []content.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev content.ChangeEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

const sampleScript = `
database: master
steps:
  - put:
      - id: home
        language: en
        version: 1
        parent: root
        name: Home
        path: /sitecore/content/home
        template: page
        fields: {title: Home}
        depends_on: ["news/en", "web:teaser/en/2"]
    event:
      kind: "item:updated"
      ref: "home/en/1"
      changes:
        - {field: title, kind: versioned, original: Old, value: Home}
  - event: {kind: "item:moved", ref: "home/en/1", old_parent: archive}
  - event: {kind: "item:copied", ref: "master:home/en/1"}
  - event: {kind: "item:version-added", ref: "home/en"}
  - delete_version: home/en/1
    event: {kind: "item:version-deleted", ref: "home/en/1"}
  - delete: home
    event: {kind: "item:deleted", item_id: home, database: web}
`

func TestParseScript_EventVariants(t *testing.T) {
	s, err := ParseScript([]byte(sampleScript))
	require.NoError(t, err)
	require.Len(t, s.Steps, 6)

	home := content.NewRef("home", "en", 1, "master")
	want := []content.ChangeEvent{
		content.ItemUpdated{Ref: home, Changes: content.FieldChangeSet{
			{Field: "title", Kind: content.FieldVersioned, Original: "Old", Value: "Home"},
		}},
		content.ItemMoved{Ref: home, OldParentID: "archive"},
		content.ItemCopied{Ref: home},
		content.ItemVersionAdded{Ref: home.AtLatest()},
		content.ItemVersionDeleted{Ref: home},
		content.ItemDeleted{ItemID: "home", Database: "web"},
	}
	for i, step := range s.Steps {
		ev, err := step.Event.ChangeEvent(s.Database)
		require.NoError(t, err)
		assert.Equal(t, want[i], ev, "step %d", i)
	}
}

func TestItemSpec_Item(t *testing.T) {
	s, err := ParseScript([]byte(sampleScript))
	require.NoError(t, err)

	it, err := s.Steps[0].Put[0].Item(s.Database)
	require.NoError(t, err)
	assert.Equal(t, content.NewRef("home", "en", 1, "master"), it.Ref)
	assert.Equal(t, content.ItemID("root"), it.ParentID)
	assert.Equal(t, "page", it.Template)
	assert.Equal(t, map[string]string{"title": "Home"}, it.Fields)
	assert.Equal(t, []content.IndexableRef{
		content.NewRef("news", "en", content.LatestVersion, "master"),
		content.NewRef("teaser", "en", 2, "web"),
	}, it.DependsOn)
}

func TestParseScript_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "database: master\nstep: []\n", "failed to parse script"},
		{"no database", "steps: []\n", "database is required"},
		{"empty step", "database: master\nsteps: [{}]\n", "steps[0]: empty step"},
		{"item without language", "database: master\nsteps: [{put: [{id: a, version: 1}]}]\n", "language is required"},
		{"bad delete_version", "database: master\nsteps: [{delete_version: a}]\n", "steps[0].delete_version"},
		{"bad event", "database: master\nsteps: [{event: {kind: nope, ref: a/en}}]\n", "unknown event kind"},
		{"moved without old parent", "database: master\nsteps: [{event: {kind: \"item:moved\", ref: a/en}}]\n", "old_parent"},
		{"deleted without item", "database: master\nsteps: [{event: {kind: \"item:deleted\"}}]\n", "item id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleScript), 0o644))

	s, err := LoadScript(path)
	require.NoError(t, err)
	assert.Len(t, s.Steps, 6)

	_, err = LoadScript(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestScript_RunAppliesEditsThenEvents(t *testing.T) {
	ctx := context.Background()
	cs := newContent(t)
	pub := &recordingPublisher{}

	s, err := ParseScript([]byte(sampleScript))
	require.NoError(t, err)
	require.NoError(t, s.Run(ctx, cs, pub))

	assert.Len(t, pub.events, 6)
	ok, err := cs.Exists(ctx, "home", "master")
	require.NoError(t, err)
	assert.False(t, ok, "home deleted by the last step")
}

func TestScript_RunStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	cs := newContent(t)
	boom := errors.New("boom")
	pub := &recordingPublisher{err: boom}

	s, err := ParseScript([]byte(sampleScript))
	require.NoError(t, err)

	err = s.Run(ctx, cs, pub)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "step 0")
	assert.Len(t, pub.events, 1)
}

func TestScript_DeletePublishesForRemovedDescendants(t *testing.T) {
	ctx := context.Background()
	cs := newContent(t)
	pub := &recordingPublisher{}

	s, err := ParseScript([]byte(`
database: master
steps:
  - put:
      - {id: a, language: en, version: 1, name: A, path: /sitecore/content/a}
      - {id: b, language: en, version: 1, parent: a, name: B, path: /sitecore/content/a/b}
      - {id: b, language: da, version: 1, parent: a, name: B, path: /sitecore/content/a/b}
      - {id: c, language: en, version: 1, parent: b, name: C, path: /sitecore/content/a/b/c}
  - delete: a
    event: {kind: "item:deleted", item_id: a}
`))
	require.NoError(t, err)
	require.NoError(t, s.Run(ctx, cs, pub))

	assert.Equal(t, []content.ChangeEvent{
		content.ItemDeleted{ItemID: "b", Database: "master"},
		content.ItemDeleted{ItemID: "c", Database: "master"},
		content.ItemDeleted{ItemID: "a", Database: "master"},
	}, pub.events)
}
