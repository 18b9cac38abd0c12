package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a source has no persisted data.
	ErrNotFound = errors.New("source not found")
)
