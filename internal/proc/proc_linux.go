//go:build linux

package proc

import (
	"bytes"
	"os"
	"strconv"
	"syscall"
)

// ChildAttr starts a managed child in its own process group and has the
// kernel kill it if the starting thread dies. Callers must keep the
// goroutine that starts the child on a locked OS thread for the death
// signal to track the right thread; see StartLocked.
func ChildAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}

// zombie reports whether /proc shows pid as exited but not yet reaped.
// The command name in the stat line may itself contain parentheses, so the
// state is read after the last one.
func zombie(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return false
	}
	i := bytes.LastIndexByte(b, ')')
	if i < 0 || i+2 >= len(b) {
		return false
	}
	return b[i+2] == 'Z'
}
