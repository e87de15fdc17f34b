// Package status exports the error taxonomy surfaced by the core packages.
//
// All errors cross the core boundary unchanged: callers match them with
// errors.Is and decide how to present them.
package status

import (
	"github.com/oneconcern/braid/pkg/errors"
	"github.com/oneconcern/braid/pkg/model"
)

var (
	// ErrValidation indicates a malformed record or a missing required field.
	// Offending records are rejected, never auto-corrected.
	ErrValidation = model.ErrValidation

	// ErrNotFound indicates an operation targeting an absent record id
	ErrNotFound = errors.New("record not found")

	// ErrCycle indicates an edge insertion or a merge that would create a
	// dependency cycle. The operation is fully rejected: no partial state.
	ErrCycle = errors.New("operation would create a dependency cycle")

	// ErrConflict indicates an optimistic-concurrency hash mismatch on save.
	// The caller must reload the record and retry.
	ErrConflict = errors.New("record was modified concurrently")

	// ErrReconciliation indicates a merge produced an unresolvable state, or
	// the branch snapshot provider failed. Retry policy belongs to the caller.
	ErrReconciliation = errors.New("branch reconciliation failed")

	// ErrFileSystem wraps an underlying I/O failure, with the affected path
	ErrFileSystem = errors.New("file system error")
)
