package shared

import "errors"

var (
	// ErrIdempotencyConflict indicates a duplicate key.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
	// ErrNotInitialised indicates a shared store was used without a backend.
	ErrNotInitialised = errors.New("store not initialised")
)
