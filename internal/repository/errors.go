package repository

import "errors"

// ErrNotFound is returned when a requested record does not exist in the
// database, or when a guarded update matched no row (status changed
// concurrently).
var ErrNotFound = errors.New("not found")
