package scripts

import (
	"errors"
	"fmt"
)

var (
	// ErrDatabaseNameMissing is returned before any file is read.
	ErrDatabaseNameMissing = errors.New("scripts: database name is missing")

	// ErrUnknownCharset reports a charset label with no known encoding.
	ErrUnknownCharset = errors.New("scripts: unknown charset")

	// ErrUnknownEvaluator reports an evaluator name other than auto,
	// driver or shell.
	ErrUnknownEvaluator = errors.New("scripts: unknown evaluator")
)

// EvalError carries the message a failed evaluation reported.
type EvalError struct {
	Message string
	Err     error
}

func (e *EvalError) Error() string { return e.Message }

func (e *EvalError) Unwrap() error { return e.Err }

// FileError names the script file whose evaluation failed.
type FileError struct {
	File    string
	Message string
	Err     error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("error while executing instructions from file %q: %s", e.File, e.Message)
}

func (e *FileError) Unwrap() error { return e.Err }
