package distribution

import (
	"errors"
	"fmt"
)

// ErrDistribution marks every failure to resolve or fetch a distribution.
var ErrDistribution = errors.New("distribution: unavailable")

// Error reports a distribution failure for the configured version text,
// quoted verbatim so users see exactly what they asked for.
type Error struct {
	Version string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("could not obtain MongoDB %q: %v", e.Version, e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches ErrDistribution.
func (e *Error) Is(target error) bool { return target == ErrDistribution }
