package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/indexsync/internal/crawler"
	"github.com/roach88/indexsync/internal/store"
)

// NewEntriesCommand creates the entries command.
func NewEntriesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "entries",
		Short: "List the entries of the configured index",
		Long: `List every entry of the configured index in write order.

Examples:
  indexsync entries
  indexsync entries --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntries(rootOpts, cmd)
		},
	}
}

// entryListing renders an index's entries; JSON output is the bare list.
type entryListing struct {
	index   string
	entries []store.Entry
}

func (l entryListing) MarshalJSON() ([]byte, error) {
	if l.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.entries)
}

func (l entryListing) renderText(w io.Writer) error {
	if len(l.entries) == 0 {
		fmt.Fprintf(w, "No entries in %s.\n", l.index)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tREF\tPATH\tLATEST")
	for _, e := range l.entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Seq, e.Ref, e.Path, e.Fields[crawler.LatestField])
	}
	return tw.Flush()
}

func runEntries(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	env, err := openEnvironment(opts, f, false)
	if err != nil {
		return err
	}
	defer env.Close()

	entries, err := env.index.Entries(cmd.Context(), env.cfg.Index.Name)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStorage, "failed to read entries", err, nil)
	}
	return f.Success(entryListing{index: env.cfg.Index.Name, entries: entries})
}
