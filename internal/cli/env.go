package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/indexsync/internal/config"
	"github.com/roach88/indexsync/internal/contentstore"
	"github.com/roach88/indexsync/internal/store"
)

// environment is a loaded config with the stores it names.
type environment struct {
	cfg     *config.Config
	content *contentstore.Store // nil unless requested
	index   *store.Store
}

// installLogger makes cfg's logger the slog default, writing to w.
func installLogger(cfg config.LogConfig, verbose bool, w io.Writer) {
	if verbose {
		cfg.Level = "debug"
	}
	slog.SetDefault(cfg.NewLogger(w))
}

// openEnvironment loads the config and opens the index store, and the
// content store when withContent is set. Failures are reported through f.
func openEnvironment(opts *RootOptions, f *OutputFormatter, withContent bool) (*environment, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err, nil)
	}
	installLogger(cfg.Log, opts.Verbose, f.errWriter())

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Index), 0o755); err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStorage, "failed to create index directory", err, nil)
	}
	slog.Debug("opening index store", "path", cfg.Storage.Index)
	st, err := store.Open(cfg.Storage.Index)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStorage, "failed to open index store", err, nil)
	}
	env := &environment{cfg: cfg, index: st}

	if withContent {
		slog.Debug("opening content store", "path", cfg.Storage.Content)
		cs, err := contentstore.Open(cfg.Storage.Content)
		if err != nil {
			env.Close()
			return nil, f.Fail(ExitCommandError, ErrCodeStorage, "failed to open content store", err, nil)
		}
		env.content = cs
	}
	return env, nil
}

// Close closes the stores, logging failures.
func (e *environment) Close() {
	if e.content != nil {
		if err := e.content.Close(); err != nil {
			slog.Error("error closing content store", "error", err)
		}
	}
	if err := e.index.Close(); err != nil {
		slog.Error("error closing index store", "error", err)
	}
}
