// Package proc signals and inspects OS processes by PID.
package proc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// pollInterval is how often Stop checks whether the process has exited.
const pollInterval = 100 * time.Millisecond

// ErrStillRunning is returned when a process survives the kill signal.
var ErrStillRunning = errors.New("proc: process still running after kill")

// Stop asks pid to terminate, waits up to grace for it to exit, then kills
// it. A process that is already gone is not an error.
func Stop(pid int, grace time.Duration) error {
	if !Alive(pid) {
		return nil
	}

	if err := signal(pid, signalTerm); err != nil && Alive(pid) {
		return fmt.Errorf("proc: send %s to %d: %w", TermName(), pid, err)
	}
	if waitExit(pid, grace) {
		return nil
	}

	if err := signal(pid, signalKill); err != nil && Alive(pid) {
		return fmt.Errorf("proc: send %s to %d: %w", KillName(), pid, err)
	}
	if waitExit(pid, 5*time.Second) {
		return nil
	}
	return ErrStillRunning
}

// Kill sends the force kill signal to pid.
func Kill(pid int) error {
	return signal(pid, signalKill)
}

func waitExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !Alive(pid) {
			return true
		}
		time.Sleep(pollInterval)
	}
	return !Alive(pid)
}

func signal(pid int, sig os.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(sig)
}

// StartLocked starts cmd from a goroutine locked to its OS thread and keeps
// that thread alive until cmd exits, so a parent death signal set in
// cmd.SysProcAttr fires only when this process dies. The result of
// cmd.Wait is delivered on the returned channel.
func StartLocked(cmd *exec.Cmd) (<-chan error, error) {
	started := make(chan error, 1)
	done := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := cmd.Start(); err != nil {
			started <- err
			return
		}
		started <- nil
		done <- cmd.Wait()
	}()
	if err := <-started; err != nil {
		return nil, err
	}
	return done, nil
}

// Terminate sends the graceful shutdown signal to p.
func Terminate(p *os.Process) error {
	return p.Signal(signalTerm)
}
