package storage

import "errors"

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrConflict is returned when a unique constraint (username, slug)
	// would be violated.
	ErrConflict = errors.New("object already exists")
)
