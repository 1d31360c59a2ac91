package state

import (
	"context"
	"errors"
)

// Layered reads from the first store that has a key and writes to every
// store that accepts writes. `embedmongo port` uses it to consult the state
// file before the environment.
type Layered []Store

// Get implements Store.
func (l Layered) Get(ctx context.Context, key string) (string, error) {
	for _, s := range l {
		v, err := s.Get(ctx, key)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", ErrNotFound
}

// Set implements Store. Read-only layers are skipped; the first other
// error aborts.
func (l Layered) Set(ctx context.Context, key, value string) error {
	return l.each(func(s Store) error { return s.Set(ctx, key, value) })
}

// Delete implements Store.
func (l Layered) Delete(ctx context.Context, key string) error {
	return l.each(func(s Store) error { return s.Delete(ctx, key) })
}

func (l Layered) each(fn func(Store) error) error {
	wrote := false
	for _, s := range l {
		err := fn(s)
		if errors.Is(err, ErrReadOnly) {
			continue
		}
		if err != nil {
			return err
		}
		wrote = true
	}
	if !wrote {
		return ErrReadOnly
	}
	return nil
}
