package state

import (
	"context"
	"strings"
)

// Store is a string key/value store shared between phases.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrBlankKey
	}
	return nil
}
