// Package config loads the indexsync configuration file.
//
// The file is YAML. It is validated against an embedded CUE schema, which
// also supplies defaults, and decoded into Config.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded configuration.
type Config struct {
	Database string        `json:"database"`
	Index    IndexConfig   `json:"index"`
	Storage  StorageConfig `json:"storage"`
	Log      LogConfig     `json:"log"`
}

// IndexConfig describes the index the strategy maintains.
type IndexConfig struct {
	Name              string          `json:"name"`
	Crawlers          []CrawlerConfig `json:"crawlers"`
	Parallelism       int             `json:"parallelism"`
	RootBoundaryCheck bool            `json:"root_boundary_check"`
}

// CrawlerConfig describes one crawler of the index.
type CrawlerConfig struct {
	Name                         string   `json:"name"`
	Root                         string   `json:"root"`
	ProcessDependentsOnExclusion bool     `json:"process_dependents_on_exclusion"`
	ExcludedTemplates            []string `json:"excluded_templates"`
	ExcludedItems                []string `json:"excluded_items"`
	Languages                    []string `json:"languages"`
}

// StorageConfig holds on-disk locations.
type StorageConfig struct {
	Content string `json:"content"`
	Index   string `json:"index"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// ValidationError is one schema violation.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationErrors is returned when a file does not satisfy the schema.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.String()
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates YAML configuration bytes and applies defaults.
func Parse(data []byte) (*Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	value := ctx.Encode(raw)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, validationErrors(err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// validationErrors flattens CUE errors into field-path messages.
func validationErrors(err error) ValidationErrors {
	var out ValidationErrors
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		v := ValidationError{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		if seen[v.String()] {
			continue
		}
		seen[v.String()] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Message: err.Error()})
	}
	return out
}
