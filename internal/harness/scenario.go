package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/indexsync/internal/config"
	"github.com/roach88/indexsync/internal/pipeline"
)

// Scenario is one end-to-end indexing test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is an inline configuration document, validated like a config file.
	Config yaml.Node `yaml:"config"`

	// Paused marks the index as paused before the steps run.
	Paused bool `yaml:"paused,omitempty"`

	// Bulk runs the steps inside a bulk update context.
	Bulk bool `yaml:"bulk,omitempty"`

	// Content seeds the content store. No events are raised for it.
	Content []pipeline.ItemSpec `yaml:"content,omitempty"`

	// Steps are content edits and the events they raise.
	Steps []pipeline.Step `yaml:"steps"`

	// Assertions validate the final journal and entries.
	Assertions []Assertion `yaml:"assertions"`

	cfg *config.Config
}

// Assertion validates the journal or the final entries.
type Assertion struct {
	Type  string   `yaml:"type"`
	Op    string   `yaml:"op,omitempty"`
	Ref   string   `yaml:"ref,omitempty"`
	Item  string   `yaml:"item,omitempty"`
	Refs  []string `yaml:"refs,omitempty"`
	Count int      `yaml:"count,omitempty"`

	// Path, when set on entry_exists, must equal the entry's path.
	Path string `yaml:"path,omitempty"`
}

// Assertion type constants.
const (
	AssertJournalContains = "journal_contains"
	AssertJournalOrder    = "journal_order"
	AssertJournalCount    = "journal_count"
	AssertEntryExists     = "entry_exists"
	AssertEntryAbsent     = "entry_absent"
	AssertEntryCount      = "entry_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Script returns the steps as a script in the configured database.
func (s *Scenario) Script() *pipeline.Script {
	return &pipeline.Script{Database: s.cfg.Database, Steps: s.Steps}
}

// Settings returns the validated configuration.
func (s *Scenario) Settings() *config.Config {
	return s.cfg
}

// validateScenario checks required fields and resolves the inline config.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Config.Kind == 0 {
		return fmt.Errorf("config is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	raw, err := yaml.Marshal(&s.Config)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	s.cfg = cfg

	script := s.Script()
	seed := &pipeline.Script{Database: cfg.Database, Steps: []pipeline.Step{{Put: s.Content}}}
	if len(s.Content) > 0 {
		if err := seed.Validate(); err != nil {
			return fmt.Errorf("content: %w", err)
		}
	}
	if err := script.Validate(); err != nil {
		return err
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertJournalContains:
		if a.Op == "" || (a.Ref == "" && a.Item == "") {
			return fmt.Errorf("assertions[%d]: op and ref or item are required for journal_contains", index)
		}
	case AssertJournalOrder:
		if len(a.Refs) < 2 {
			return fmt.Errorf("assertions[%d]: at least two refs are required for journal_order", index)
		}
	case AssertJournalCount:
		if a.Op == "" || a.Item == "" {
			return fmt.Errorf("assertions[%d]: op and item are required for journal_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for journal_count", index)
		}
	case AssertEntryExists, AssertEntryAbsent:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for %s", index, a.Type)
		}
	case AssertEntryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for entry_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
