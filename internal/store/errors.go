package store

import "errors"

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a uniqueness check fails, e.g. a
// username already in use.
var ErrConflict = errors.New("conflict")
