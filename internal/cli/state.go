package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// PauseResult reports the pause flag after pause or resume.
type PauseResult struct {
	Index  string `json:"index"`
	Paused bool   `json:"paused"`
}

// NewPauseCommand creates the pause command.
func NewPauseCommand(rootOpts *RootOptions) *cobra.Command {
	return newPauseCommand(rootOpts, "pause", "Pause indexing of the configured index", true)
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	return newPauseCommand(rootOpts, "resume", "Resume indexing of the configured index", false)
}

func newPauseCommand(rootOpts *RootOptions, use, short string, paused bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

While an index is paused every change event is ignored; the strategy logs a
warning for each one. Pausing is persisted in the index store.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetPaused(rootOpts, cmd, paused)
		},
	}
}

func runSetPaused(opts *RootOptions, cmd *cobra.Command, paused bool) error {
	f := newFormatter(opts, cmd)
	env, err := openEnvironment(opts, f, false)
	if err != nil {
		return err
	}
	defer env.Close()

	name := env.cfg.Index.Name
	if err := env.index.SetPaused(cmd.Context(), name, paused); err != nil {
		return f.Fail(ExitCommandError, ErrCodeStorage, "failed to update pause state", err, nil)
	}
	return f.Success(PauseResult{Index: name, Paused: paused})
}

func (r PauseResult) renderText(w io.Writer) error {
	state := "resumed"
	if r.Paused {
		state = "paused"
	}
	_, err := fmt.Fprintf(w, "Indexing %s for %s\n", state, r.Index)
	return err
}
