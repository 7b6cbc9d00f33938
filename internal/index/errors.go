package index

import (
	"errors"
	"fmt"

	"github.com/roach88/indexsync/internal/content"
)

// Op names a mutation for error reporting.
type Op string

const (
	OpUpdate        Op = "update"
	OpDelete        Op = "delete"
	OpDeleteVersion Op = "delete-version"
	OpRefresh       Op = "refresh"
)

// MutationError reports a failed index mutation.
//
// Mutation failures are never recovered by the synchronous strategy; they
// propagate to whoever raised the content event.
type MutationError struct {
	Op    Op
	Index string
	Ref   content.IndexableRef
	Err   error
}

// Error implements the error interface.
func (e *MutationError) Error() string {
	if e.Ref.Language == "" {
		return fmt.Sprintf("[Index=%s] %s %s: %v", e.Index, e.Op, e.Ref.ItemID, e.Err)
	}
	return fmt.Sprintf("[Index=%s] %s %s: %v", e.Index, e.Op, e.Ref, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// IsMutationError reports whether err wraps a MutationError.
func IsMutationError(err error) bool {
	var me *MutationError
	return errors.As(err, &me)
}
