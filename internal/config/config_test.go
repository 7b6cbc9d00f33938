package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
database: master
index:
  name: sitecore_master_index
  crawlers:
    - name: content
`

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "master", cfg.Database)
	assert.Equal(t, "sitecore_master_index", cfg.Index.Name)
	assert.Equal(t, 1, cfg.Index.Parallelism)
	assert.False(t, cfg.Index.RootBoundaryCheck)
	require.Len(t, cfg.Index.Crawlers, 1)

	c := cfg.Index.Crawlers[0]
	assert.Equal(t, "content", c.Name)
	assert.Equal(t, "", c.Root)
	assert.True(t, c.ProcessDependentsOnExclusion)
	assert.Empty(t, c.ExcludedTemplates)

	assert.Equal(t, "data/content", cfg.Storage.Content)
	assert.Equal(t, "data/index.db", cfg.Storage.Index)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(`
database: web
index:
  name: web_index
  parallelism: 4
  root_boundary_check: true
  crawlers:
    - name: content
      root: /sitecore/content
      process_dependents_on_exclusion: false
      excluded_templates: [folder, "Media folder"]
      excluded_items: ["{11111111-1111-1111-1111-111111111111}"]
      languages: [en, da]
storage:
  content: /var/lib/indexsync/content
  index: /var/lib/indexsync/index.db
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Index.Parallelism)
	assert.True(t, cfg.Index.RootBoundaryCheck)
	c := cfg.Index.Crawlers[0]
	assert.Equal(t, "/sitecore/content", c.Root)
	assert.False(t, c.ProcessDependentsOnExclusion)
	assert.Equal(t, []string{"folder", "Media folder"}, c.ExcludedTemplates)
	assert.Equal(t, []string{"en", "da"}, c.Languages)
	assert.Equal(t, "/var/lib/indexsync/index.db", cfg.Storage.Index)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		path string
	}{
		{
			name: "missing database",
			yaml: "index:\n  name: i\n  crawlers: [{name: c}]\n",
			path: "database",
		},
		{
			name: "no crawlers",
			yaml: "database: master\nindex:\n  name: i\n  crawlers: []\n",
			path: "index.crawlers",
		},
		{
			name: "bad parallelism",
			yaml: "database: master\nindex:\n  name: i\n  parallelism: 0\n  crawlers: [{name: c}]\n",
			path: "index.parallelism",
		},
		{
			name: "bad log level",
			yaml: minimal + "log:\n  level: verbose\n",
			path: "log.level",
		},
		{
			name: "unknown field",
			yaml: minimal + "extra: true\n",
			path: "extra",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %T: %v", err, err)

			found := false
			for _, v := range verrs {
				if strings.HasPrefix(v.Path, tt.path) {
					found = true
				}
			}
			assert.True(t, found, "no error at %q in %v", tt.path, verrs)
		})
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("database: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "master", cfg.Database)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "index", "web")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"index":"web"`)
}
