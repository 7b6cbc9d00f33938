package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/indexsync/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                     `json:"valid"`
	Path     string                   `json:"path"`
	Database string                   `json:"database,omitempty"`
	Index    string                   `json:"index,omitempty"`
	Crawlers int                      `json:"crawlers,omitempty"`
	Errors   []config.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a config file against the schema",
		Long: `Validate a config file without opening any store.

Unknown keys, missing required fields and out-of-range values are reported
with the path of the offending field. Defaults to the --config path.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Config
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	f.VerboseLog("Validating %s", path)

	cfg, err := config.Load(path)
	var verrs config.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		if err := f.Success(ValidationResult{Valid: false, Path: path, Errors: verrs}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(verrs)))
	case err != nil:
		return f.Fail(ExitCommandError, ErrCodeConfig, "failed to read config", err, nil)
	}

	return f.Success(ValidationResult{
		Valid:    true,
		Path:     path,
		Database: cfg.Database,
		Index:    cfg.Index.Name,
		Crawlers: len(cfg.Index.Crawlers),
	})
}

func (r ValidationResult) renderText(w io.Writer) error {
	if r.Valid {
		fmt.Fprintf(w, "✓ %s is valid (index %s on %s, %d crawler(s))\n",
			r.Path, r.Index, r.Database, r.Crawlers)
		return nil
	}
	fmt.Fprintf(w, "✗ %s has %d error(s):\n", r.Path, len(r.Errors))
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}
