// indexsync keeps a search index in step with content changes.
//
// Usage:
//
//	indexsync validate --config indexsync.yaml
//	indexsync apply --config indexsync.yaml ./events.yaml
//	indexsync entries --format json
//	indexsync pause
//	indexsync test ./internal/harness/testdata/scenarios
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/indexsync/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return
	}

	// Commands report their own failures; anything else came from cobra.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
