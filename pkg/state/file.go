package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Current on-disk format version.
const fileVersion = 1

// lockRetry is how often a blocked lock attempt is retried.
const lockRetry = 10 * time.Millisecond

// FileStore is a Store persisted as one JSON document. Every operation
// takes an advisory lock on a sibling ".lock" file, so phases in different
// processes see each other's writes and never interleave them.
type FileStore struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex // serialises use of lock within this process
}

type fileData struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values"`
}

// NewFileStore opens (without creating) the store at path. The parent
// directory is created if missing.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("state: file store path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("state: resolve %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("state: create directory for %s: %w", abs, err)
	}
	return &FileStore{path: abs, lock: flock.New(abs + ".lock")}, nil
}

// Path returns the absolute path of the JSON document.
func (s *FileStore) Path() string { return s.path }

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	var (
		v  string
		ok bool
	)
	err := s.withLock(ctx, true, func() error {
		data, err := s.read()
		if err != nil {
			return err
		}
		v, ok = data.Values[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Store.
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return s.update(ctx, func(values map[string]string) bool {
		values[key] = value
		return true
	})
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return s.update(ctx, func(values map[string]string) bool {
		if _, ok := values[key]; !ok {
			return false
		}
		delete(values, key)
		return true
	})
}

// Snapshot returns every key and value currently on disk.
func (s *FileStore) Snapshot(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	err := s.withLock(ctx, true, func() error {
		data, err := s.read()
		out = data.Values
		return err
	})
	return out, err
}

func (s *FileStore) update(ctx context.Context, fn func(map[string]string) bool) error {
	return s.withLock(ctx, false, func() error {
		data, err := s.read()
		if err != nil {
			return err
		}
		if !fn(data.Values) {
			return nil
		}
		return s.write(data)
	})
}

func (s *FileStore) withLock(ctx context.Context, shared bool, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = s.lock.TryRLockContext(ctx, lockRetry)
	} else {
		locked, err = s.lock.TryLockContext(ctx, lockRetry)
	}
	if err != nil {
		return fmt.Errorf("state: lock %s: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("state: lock %s: not acquired", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	return fn()
}

func (s *FileStore) read() (*fileData, error) {
	data := &fileData{Version: fileVersion, Values: map[string]string{}}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: read %s: %w", s.path, err)
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("state: parse %s: %w", s.path, err)
	}
	if data.Values == nil {
		data.Values = map[string]string{}
	}
	return data, nil
}

// write replaces the document atomically: temp file, then rename.
func (s *FileStore) write(data *fileData) error {
	data.Version = fileVersion
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("state: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("state: replace %s: %w", s.path, err)
	}
	return nil
}
