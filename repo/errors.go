// Package repo implements the transaction machine and object writer of
// the commit engine: installing content-addressed objects into a
// fanout directory layout under tempfile→rename semantics, staging ref
// updates, and bracketing mutation with prepare/commit/abort.
package repo

import "errors"

// Sentinel errors returned by the repo package, inspected with
// errors.Is rather than compared as strings.
var (
	// ErrCancelled is returned when a context is done before or during
	// an operation.
	ErrCancelled = errors.New("repo: cancelled")

	// ErrNotFound is returned when a referenced object does not exist
	// in this repo or any parent.
	ErrNotFound = errors.New("repo: object not found")

	// ErrUnsupportedFileType is returned by WriteContent when the
	// FileInfo's Kind is neither Regular nor Symlink.
	ErrUnsupportedFileType = errors.New("repo: unsupported file type")

	// ErrCorruptedObject is returned when a caller-supplied expected
	// checksum does not match the computed checksum of a stream.
	ErrCorruptedObject = errors.New("repo: corrupted object")

	// ErrExhausted is returned when temp-name generation fails after
	// repeated collisions.
	ErrExhausted = errors.New("repo: exhausted temp name attempts")

	// ErrNotInTransaction is returned by any mutating call made outside
	// an active transaction.
	ErrNotInTransaction = errors.New("repo: not in transaction")

	// ErrAlreadyInTransaction is returned by PrepareTransaction when a
	// transaction is already open.
	ErrAlreadyInTransaction = errors.New("repo: already in transaction")
)
