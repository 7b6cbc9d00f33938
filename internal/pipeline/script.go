package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/indexsync/internal/content"
)

// Script is a sequence of content edits, each optionally followed by the
// change event the content store would raise for it.
//
//	database: master
//	steps:
//	  - put:
//	      - {id: home, language: en, version: 1, parent: root, name: Home, path: /sitecore/content/home}
//	    event: {kind: "item:updated", ref: "master:home/en/1"}
//	  - delete: home
//	    event: {kind: "item:deleted", item_id: home}
type Script struct {
	// Database is the default database of refs and items that omit one.
	Database string `yaml:"database"`
	Steps    []Step `yaml:"steps"`
}

// Step applies its content edits in field order (put, delete_version,
// delete) and then publishes Event, if any. Delete removes the whole subtree
// and publishes item:deleted for every removed descendant before Event.
type Step struct {
	Put           []ItemSpec `yaml:"put,omitempty"`
	DeleteVersion string     `yaml:"delete_version,omitempty"`
	Delete        string     `yaml:"delete,omitempty"`
	Event         *EventSpec `yaml:"event,omitempty"`
}

// ItemSpec is the YAML form of one item version.
type ItemSpec struct {
	ID        string            `yaml:"id"`
	Language  string            `yaml:"language"`
	Version   int               `yaml:"version"`
	Database  string            `yaml:"database,omitempty"`
	Parent    string            `yaml:"parent,omitempty"`
	Name      string            `yaml:"name"`
	Path      string            `yaml:"path"`
	Template  string            `yaml:"template,omitempty"`
	Fields    map[string]string `yaml:"fields,omitempty"`
	DependsOn []string          `yaml:"depends_on,omitempty"`
}

// EventSpec is the YAML form of a content change event.
type EventSpec struct {
	Kind      content.EventKind      `yaml:"kind"`
	Ref       string                 `yaml:"ref,omitempty"`
	OldParent string                 `yaml:"old_parent,omitempty"`
	ItemID    string                 `yaml:"item_id,omitempty"`
	Database  string                 `yaml:"database,omitempty"`
	Changes   content.FieldChangeSet `yaml:"changes,omitempty"`
}

// ContentWriter is the part of the content store a script edits.
type ContentWriter interface {
	Put(ctx context.Context, it content.Item) (content.IndexableRef, error)
	DeleteVersion(ctx context.Context, ref content.IndexableRef) error
	Delete(ctx context.Context, database string, id content.ItemID) ([]content.ItemID, error)
}

// Publisher receives the events of a script.
type Publisher interface {
	Publish(ctx context.Context, ev content.ChangeEvent) error
}

// LoadScript reads a script file. Unknown fields are rejected.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes and validates a script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return &s, nil
}

// Validate checks that every step converts to items, refs and events.
func (s *Script) Validate() error {
	if s.Database == "" {
		return errors.New("database is required")
	}
	for i, step := range s.Steps {
		if len(step.Put) == 0 && step.DeleteVersion == "" && step.Delete == "" && step.Event == nil {
			return fmt.Errorf("steps[%d]: empty step", i)
		}
		for j, it := range step.Put {
			if _, err := it.Item(s.Database); err != nil {
				return fmt.Errorf("steps[%d].put[%d]: %w", i, j, err)
			}
		}
		if step.DeleteVersion != "" {
			if _, err := s.ref(step.DeleteVersion); err != nil {
				return fmt.Errorf("steps[%d].delete_version: %w", i, err)
			}
		}
		if step.Event != nil {
			if _, err := step.Event.ChangeEvent(s.Database); err != nil {
				return fmt.Errorf("steps[%d].event: %w", i, err)
			}
		}
	}
	return nil
}

// Apply runs step i against w and publishes its event to p.
func (s *Script) Apply(ctx context.Context, i int, w ContentWriter, p Publisher) error {
	step := s.Steps[i]
	for _, spec := range step.Put {
		it, err := spec.Item(s.Database)
		if err != nil {
			return err
		}
		if _, err := w.Put(ctx, it); err != nil {
			return fmt.Errorf("put %s: %w", spec.ID, err)
		}
	}
	if step.DeleteVersion != "" {
		ref, err := s.ref(step.DeleteVersion)
		if err != nil {
			return err
		}
		if err := w.DeleteVersion(ctx, ref); err != nil {
			return fmt.Errorf("delete version %s: %w", ref, err)
		}
	}
	if step.Delete != "" {
		id, err := content.ParseItemID(step.Delete)
		if err != nil {
			return err
		}
		removed, err := w.Delete(ctx, s.Database, id)
		if err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		// The step's own event covers id; each removed descendant gets one.
		for _, child := range removed {
			if child == id {
				continue
			}
			if err := p.Publish(ctx, content.ItemDeleted{ItemID: child, Database: s.Database}); err != nil {
				return err
			}
		}
	}
	if step.Event == nil {
		return nil
	}
	ev, err := step.Event.ChangeEvent(s.Database)
	if err != nil {
		return err
	}
	return p.Publish(ctx, ev)
}

// Run applies every step in order and stops at the first failure.
func (s *Script) Run(ctx context.Context, w ContentWriter, p Publisher) error {
	for i := range s.Steps {
		if err := s.Apply(ctx, i, w, p); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// ref parses a ref, accepting the short "item/language[/version]" form in
// the script's database.
func (s *Script) ref(str string) (content.IndexableRef, error) {
	return parseRef(str, s.Database)
}

func parseRef(str, database string) (content.IndexableRef, error) {
	if !strings.Contains(str, ":") {
		str = database + ":" + str
	}
	return content.ParseRef(str)
}

// Item converts the YAML item, defaulting its database.
func (is ItemSpec) Item(database string) (content.Item, error) {
	if is.Database != "" {
		database = is.Database
	}
	id, err := content.ParseItemID(is.ID)
	if err != nil {
		return content.Item{}, err
	}
	if is.Language == "" {
		return content.Item{}, errors.New("language is required")
	}
	if is.Version < 0 {
		return content.Item{}, fmt.Errorf("invalid version %d", is.Version)
	}
	it := content.Item{
		Ref:      content.NewRef(id, is.Language, content.Version(is.Version), database),
		Name:     is.Name,
		Path:     is.Path,
		Template: is.Template,
		Fields:   is.Fields,
	}
	if is.Parent != "" {
		if it.ParentID, err = content.ParseItemID(is.Parent); err != nil {
			return content.Item{}, fmt.Errorf("parent: %w", err)
		}
	}
	for _, d := range is.DependsOn {
		ref, err := parseRef(d, database)
		if err != nil {
			return content.Item{}, fmt.Errorf("depends_on: %w", err)
		}
		it.DependsOn = append(it.DependsOn, ref)
	}
	return it, nil
}

// ChangeEvent converts the YAML event into the matching variant.
func (es EventSpec) ChangeEvent(database string) (content.ChangeEvent, error) {
	if es.Database != "" {
		database = es.Database
	}
	if es.Kind == content.KindItemDeleted {
		id, err := content.ParseItemID(es.ItemID)
		if err != nil {
			return nil, err
		}
		return content.ItemDeleted{ItemID: id, Database: database}, nil
	}

	ref, err := parseRef(es.Ref, database)
	if err != nil {
		return nil, err
	}
	switch es.Kind {
	case content.KindItemUpdated:
		return content.ItemUpdated{Ref: ref, Changes: es.Changes}, nil
	case content.KindItemMoved:
		old, err := content.ParseItemID(es.OldParent)
		if err != nil {
			return nil, fmt.Errorf("old_parent: %w", err)
		}
		return content.ItemMoved{Ref: ref, OldParentID: old}, nil
	case content.KindItemCopied:
		return content.ItemCopied{Ref: ref}, nil
	case content.KindItemVersionAdded:
		return content.ItemVersionAdded{Ref: ref}, nil
	case content.KindItemVersionDeleted:
		return content.ItemVersionDeleted{Ref: ref}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", es.Kind)
	}
}
