package store

import "errors"

var (
	// ErrNotFound is returned when no record exists at the requested key.
	ErrNotFound = errors.New("store: record not found")
)
