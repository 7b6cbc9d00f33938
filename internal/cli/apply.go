package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/indexsync/internal/contentstore"
	"github.com/roach88/indexsync/internal/metrics"
	"github.com/roach88/indexsync/internal/pipeline"
	"github.com/roach88/indexsync/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	MetricsFile string
}

// ApplyResult summarises one apply run.
type ApplyResult struct {
	Index   string                `json:"index"`
	Steps   int                   `json:"steps"`
	Writes  []store.JournalRecord `json:"writes"`
	Entries int                   `json:"entries"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <events.yaml>",
		Short: "Apply a script of content edits and change events",
		Long: `Apply content edits to the content store and publish the change event
of each edit to the indexing strategy. Prints the index writes the script
caused.

Example:
  indexsync apply --config indexsync.yaml ./events.yaml
  indexsync apply ./events.yaml --metrics-file metrics.prom --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file")

	return cmd
}

func runApply(ctx context.Context, opts *ApplyOptions, scriptPath string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd)

	script, err := pipeline.LoadScript(scriptPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeScript, "failed to load script", err, nil)
	}

	env, err := openEnvironment(opts.RootOptions, f, true)
	if err != nil {
		return err
	}
	defer env.Close()
	name := env.cfg.Index.Name

	reg := prometheus.NewRegistry()
	m := metrics.New()
	m.MustRegister(reg)
	reg.MustRegister(contentstore.NewCollector(env.content))

	p, err := pipeline.Build(env.cfg, env.content, env.index,
		pipeline.WithState(env.index),
		pipeline.WithMetrics(m),
	)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "failed to build pipeline", err, nil)
	}
	defer p.Close()

	before, err := env.index.Journal(ctx, name)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStorage, "failed to read journal", err, nil)
	}

	f.VerboseLog("Applying %d step(s) from %s", len(script.Steps), scriptPath)
	runErr := script.Run(ctx, env.content, p)

	after, err := env.index.Journal(ctx, name)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStorage, "failed to read journal", err, nil)
	}
	count, err := env.index.CountEntries(ctx, name)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStorage, "failed to count entries", err, nil)
	}

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, reg); err != nil {
			slog.Error("failed to write metrics", "path", opts.MetricsFile, "error", err)
		}
	}

	writes := after[len(before):]
	if runErr != nil {
		return f.Fail(ExitFailure, ErrCodeMutation, "apply failed", runErr, writes)
	}
	return f.Success(ApplyResult{
		Index:   name,
		Steps:   len(script.Steps),
		Writes:  writes,
		Entries: count,
	})
}

func (r ApplyResult) renderText(w io.Writer) error {
	fmt.Fprintf(w, "Applied %d step(s) to %s: %d write(s), %d entries\n",
		r.Steps, r.Index, len(r.Writes), r.Entries)
	for _, rec := range r.Writes {
		fmt.Fprintf(w, "  %s\n", formatRecord(rec))
	}
	return nil
}

// formatRecord renders a journal record as "[seq] op target".
func formatRecord(r store.JournalRecord) string {
	target := r.Ref
	if target == "" {
		target = r.ItemID
	}
	return fmt.Sprintf("[%d] %s %s", r.Seq, r.Op, target)
}
