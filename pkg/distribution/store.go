package distribution

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"

	"github.com/getmockd/embedmongo/pkg/logging"
)

const lockRetry = 100 * time.Millisecond

// Store downloads distributions once and serves them from a cache
// directory. Concurrent phases fetching the same archive wait for each
// other through a lock file.
type Store struct {
	dir    string
	client *http.Client
	log    *slog.Logger
}

// NewStore creates a store rooted at dir. A nil client uses
// http.DefaultClient.
func NewStore(dir string, client *http.Client, log *slog.Logger) *Store {
	if client == nil {
		client = http.DefaultClient
	}
	return &Store{dir: dir, client: client, log: logging.Component(log, "distribution")}
}

// Dir returns the cache root.
func (s *Store) Dir() string { return s.dir }

// BinName returns the executable file name of tool on this OS.
func BinName(tool string) string {
	if runtime.GOOS == "windows" {
		return tool + ".exe"
	}
	return tool
}

// Fetch returns the bin directory of d, downloading and unpacking the
// archive if it is not cached yet.
func (s *Store) Fetch(ctx context.Context, d Distribution) (string, error) {
	fail := func(err error) (string, error) {
		return "", &Error{Version: d.Version, Err: err}
	}

	target := filepath.Join(s.dir, d.Name())
	bin := filepath.Join(target, "bin")
	if cached(bin) {
		s.log.Debug("using cached distribution", "path", bin)
		return bin, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fail(err)
	}
	lock := flock.New(filepath.Join(s.dir, d.Name()+".lock"))
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fail(fmt.Errorf("lock cache: %w", err))
	}
	if !locked {
		return fail(fmt.Errorf("lock cache: %s is held", lock.Path()))
	}
	defer func() { _ = lock.Unlock() }()

	// Another process may have finished while we waited for the lock.
	if cached(bin) {
		return bin, nil
	}

	s.log.Info("downloading MongoDB", "url", d.URL)
	archive, err := s.download(ctx, d)
	if err != nil {
		return fail(err)
	}
	defer os.Remove(archive)

	partial := target + ".partial"
	_ = os.RemoveAll(partial)
	if err := extract(archive, d.Format, filepath.Join(partial, "bin")); err != nil {
		_ = os.RemoveAll(partial)
		return fail(err)
	}
	_ = os.RemoveAll(target)
	if err := os.Rename(partial, target); err != nil {
		_ = os.RemoveAll(partial)
		return fail(err)
	}
	if !cached(bin) {
		return fail(fmt.Errorf("archive %s has no %s", d.Archive, BinName("mongod")))
	}

	s.log.Info("distribution ready", "path", bin)
	return bin, nil
}

func cached(bin string) bool {
	fi, err := os.Stat(filepath.Join(bin, BinName("mongod")))
	return err == nil && fi.Mode().IsRegular()
}

func (s *Store) download(ctx context.Context, d Distribution) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", d.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: %s", d.URL, resp.Status)
	}

	f, err := os.CreateTemp(s.dir, d.Name()+"-*.download")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("download %s: %w", d.URL, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
