package state

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// awaitPoll re-reads the store even without a change notification, for
// filesystems where inotify events are not delivered.
const awaitPoll = 500 * time.Millisecond

// Await blocks until key has a value, another process writes it, or ctx
// ends. It is how a detached `start` learns that its supervisor published
// the running instance.
func (s *FileStore) Await(ctx context.Context, key string) (string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("state: watch %s: %w", s.path, err)
	}
	defer watcher.Close()

	// The document is replaced by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return "", fmt.Errorf("state: watch %s: %w", s.path, err)
	}

	ticker := time.NewTicker(awaitPoll)
	defer ticker.Stop()

	for {
		v, err := s.Get(ctx, key)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}

	wait:
		for {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case ev, ok := <-watcher.Events:
				if !ok {
					return "", errors.New("state: watcher closed")
				}
				if ev.Name == s.path {
					break wait
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return "", errors.New("state: watcher closed")
				}
				return "", fmt.Errorf("state: watch %s: %w", s.path, err)
			case <-ticker.C:
				break wait
			}
		}
	}
}
