package cli

import (
	"errors"
	"fmt"
)

// Common CLI errors
var (
	ErrNoInstance     = errors.New("no running instance - start one with: embedmongo start")
	ErrAlreadyRunning = errors.New("an instance is already running for this project - stop it with: embedmongo stop")
)

// exitError carries the exit status of a command run by `run --`.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.code)
}
