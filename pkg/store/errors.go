package store

import "errors"

var (
	// ErrAffinityViolation is returned by every mutating entry point when the
	// store's affinity predicate rejects the calling context. The call has no
	// effect on the store.
	ErrAffinityViolation = errors.New("store: mutating call outside the designated affinity context")

	// ErrMissingExecutionContext is the panic value raised when a middleware
	// still present in the pipeline has no registered execution scope. The
	// middleware list and the scope registry are always mutated together, so
	// this indicates a bug in the store itself rather than in user code.
	ErrMissingExecutionContext = errors.New("store: middleware has no registered execution scope")
)
