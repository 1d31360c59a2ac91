//go:build !windows

package proc

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSleep(t *testing.T, args ...string) (*exec.Cmd, <-chan error) {
	t.Helper()
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	cmd := exec.Command("sleep", args...)
	cmd.SysProcAttr = ChildAttr()
	done, err := StartLocked(cmd)
	require.NoError(t, err)
	return cmd, done
}

func TestAlive(t *testing.T) {
	assert.True(t, Alive(os.Getpid()))
	assert.False(t, Alive(0))
	assert.False(t, Alive(-1))
}

func TestStop_TerminatesChild(t *testing.T) {
	cmd, done := startSleep(t, "30")
	pid := cmd.Process.Pid
	require.True(t, Alive(pid))

	require.NoError(t, Stop(pid, 5*time.Second))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("child was not reaped")
	}
	assert.False(t, Alive(pid))
}

func TestStop_AlreadyExited(t *testing.T) {
	cmd, done := startSleep(t, "0")
	<-done
	assert.NoError(t, Stop(cmd.Process.Pid, time.Second))
}

func TestStartLocked_StartError(t *testing.T) {
	_, err := StartLocked(exec.Command("/nonexistent/binary"))
	assert.Error(t, err)
}
