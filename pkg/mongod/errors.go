package mongod

import "errors"

var (
	// ErrStart wraps every failure to bring the server up.
	ErrStart = errors.New("mongod: start failed")

	// ErrConfig reports an unusable Config.
	ErrConfig = errors.New("mongod: invalid configuration")

	// ErrExited is returned when the server exits on its own.
	ErrExited = errors.New("mongod: process exited")

	// ErrState is returned for an operation the current state forbids.
	ErrState = errors.New("mongod: invalid state transition")
)
