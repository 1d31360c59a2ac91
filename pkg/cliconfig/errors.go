package cliconfig

import "errors"

// ErrInvalidConfig wraps every configuration problem found before a phase
// starts work.
var ErrInvalidConfig = errors.New("invalid configuration")
