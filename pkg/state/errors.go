package state

import "errors"

// Sentinel errors returned by stores.
var (
	// ErrNotFound is returned when a key has no value.
	ErrNotFound = errors.New("state: key not found")

	// ErrReadOnly is returned when writing to a read-only store.
	ErrReadOnly = errors.New("state: store is read-only")

	// ErrBlankKey is returned for empty keys.
	ErrBlankKey = errors.New("state: key must not be blank")
)
