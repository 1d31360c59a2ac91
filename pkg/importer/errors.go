package importer

import (
	"errors"
	"fmt"
)

// Configuration errors, reported before any job is launched.
var (
	ErrFileRequired       = errors.New("importer: import file is required")
	ErrDatabaseRequired   = errors.New("importer: database is required, set defaultImportDatabase or the import's database")
	ErrCollectionRequired = errors.New("importer: collection is required")
	ErrNotJSONArray       = errors.New("importer: file is not a JSON array")
)

// ErrJobFailed matches every *JobError.
var ErrJobFailed = errors.New("importer: import failed")

// ErrLaunch wraps a failure to start the import executable.
var ErrLaunch = errors.New("importer: cannot launch import")

// JobError reports one import that exited non-zero or ran out of time.
type JobError struct {
	File       string
	Database   string
	Collection string
	ExitCode   int
	TimedOut   bool
	Err        error
}

func (e *JobError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("cannot import %q into %s.%s: timed out", e.File, e.Database, e.Collection)
	}
	return fmt.Sprintf("cannot import %q into %s.%s: exit code %d", e.File, e.Database, e.Collection, e.ExitCode)
}

func (e *JobError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrJobFailed) true for job errors.
func (e *JobError) Is(target error) bool { return target == ErrJobFailed }
