package state

import (
	"context"
	"os"
	"strings"
)

// EnvStore is a read-only Store over environment variables. Key
// "embedmongo.port.myapp" is read from EMBEDMONGO_PORT_MYAPP.
type EnvStore struct {
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// EnvName maps a store key to its environment variable name: letters are
// upper-cased and every other character except digits becomes '_'.
func EnvName(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range strings.ToUpper(key) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Get implements Store.
func (s EnvStore) Get(_ context.Context, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	lookup := s.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(EnvName(key))
	if !ok || v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Store and always fails with ErrReadOnly.
func (EnvStore) Set(context.Context, string, string) error { return ErrReadOnly }

// Delete implements Store and always fails with ErrReadOnly.
func (EnvStore) Delete(context.Context, string) error { return ErrReadOnly }
