//go:build !windows

package proc

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

var (
	signalTerm os.Signal = syscall.SIGTERM
	signalKill os.Signal = syscall.SIGKILL
)

// TermName returns the name of the graceful shutdown signal.
func TermName() string { return "SIGTERM" }

// KillName returns the name of the force kill signal.
func KillName() string { return "SIGKILL" }

// Alive reports whether pid exists, using signal 0. A process owned by
// another user (EPERM) counts as alive. Where the platform exposes process
// state, an exited process its parent has not reaped yet counts as gone.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err != nil && !errors.Is(err, unix.EPERM) {
		return false
	}
	return !zombie(pid)
}

// DetachAttr starts a child in its own session so it survives the
// terminal and process group of the invoking phase.
func DetachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
