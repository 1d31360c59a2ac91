//go:build !linux && !windows

package proc

import "syscall"

// ChildAttr starts a managed child in its own process group. There is no
// parent death signal on this platform; the supervisor failsafe covers it.
func ChildAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func zombie(int) bool { return false }
