//go:build !windows

package mongod

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/embedmongo/internal/proc"
	"github.com/getmockd/embedmongo/pkg/output"
)

// fakeMongod writes an executable that ignores its arguments and sleeps.
func fakeMongod(t *testing.T) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	path := filepath.Join(t.TempDir(), "mongod")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexec sleep 30\n"), 0o755))
	return path
}

// Triggering the failsafe on its own leaves no server process behind.
func TestFailsafe_StandaloneLeavesNoProcess(t *testing.T) {
	l := &ExecLauncher{Bin: fakeMongod(t), Grace: 2 * time.Second}
	p, err := l.Launch(context.Background(), Config{Port: 1}, []string{"--port", "1"}, output.Discard())
	require.NoError(t, err)
	pid := p.PID()
	require.True(t, proc.Alive(pid))

	inst := &Instance{proc: p}
	f := ArmFailsafe(inst.Stop, FailsafeOptions{Signals: []os.Signal{}})
	defer f.Close()

	require.NoError(t, f.Trigger())
	<-p.Done()
	assert.False(t, proc.Alive(pid))
}

func TestFailsafe_Signal(t *testing.T) {
	l := &ExecLauncher{Bin: fakeMongod(t), Grace: 2 * time.Second}
	p, err := l.Launch(context.Background(), Config{Port: 1}, nil, nil)
	require.NoError(t, err)

	f := ArmFailsafe(p.Stop, FailsafeOptions{Signals: []os.Signal{syscall.SIGUSR1}})
	defer f.Close()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	select {
	case <-f.Triggered():
	case <-time.After(10 * time.Second):
		t.Fatal("failsafe did not fire on signal")
	}
	<-p.Done()
	assert.False(t, proc.Alive(p.PID()))
}

func TestExecLauncher_StopIsIdempotent(t *testing.T) {
	l := &ExecLauncher{Bin: fakeMongod(t)}
	p, err := l.Launch(context.Background(), Config{Port: 1}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, p.Stop(context.Background()))
	require.NoError(t, p.Stop(context.Background()))
	assert.Error(t, p.Err(), "terminated by signal")
}

func TestExecLauncher_MissingBinary(t *testing.T) {
	l := &ExecLauncher{Bin: filepath.Join(t.TempDir(), "nope")}
	_, err := l.Launch(context.Background(), Config{Port: 1}, nil, nil)
	assert.Error(t, err)
}
