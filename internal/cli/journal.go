package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/indexsync/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Since int64
	Op    string
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show the write journal of the configured index",
		Long: `Show every write applied to the configured index, in sequence order.

Examples:
  indexsync journal
  indexsync journal --since 120 --op delete-item
  indexsync journal --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only show records after this sequence number")
	cmd.Flags().StringVar(&opts.Op, "op", "", "filter to one operation (upsert|delete-item|delete-version)")

	return cmd
}

// journalListing renders journal records; JSON output is the bare list.
type journalListing struct {
	index   string
	records []store.JournalRecord
}

func (l journalListing) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.records)
}

func (l journalListing) renderText(w io.Writer) error {
	if len(l.records) == 0 {
		fmt.Fprintf(w, "No journal records for %s.\n", l.index)
		return nil
	}
	for _, r := range l.records {
		fmt.Fprintln(w, formatRecord(r))
	}
	return nil
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	env, err := openEnvironment(opts.RootOptions, f, false)
	if err != nil {
		return err
	}
	defer env.Close()

	records, err := env.index.Journal(cmd.Context(), env.cfg.Index.Name)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStorage, "failed to read journal", err, nil)
	}
	return f.Success(journalListing{
		index:   env.cfg.Index.Name,
		records: filterJournal(records, opts.Since, opts.Op),
	})
}

func filterJournal(records []store.JournalRecord, since int64, op string) []store.JournalRecord {
	out := make([]store.JournalRecord, 0, len(records))
	for _, r := range records {
		if r.Seq <= since {
			continue
		}
		if op != "" && r.Op != op {
			continue
		}
		out = append(out, r)
	}
	return out
}
