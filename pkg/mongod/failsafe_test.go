package mongod

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestFailsafe_TriggerRunsStopOnce(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	var calls atomic.Int32
	f := ArmFailsafe(func(context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	}, FailsafeOptions{Signals: []os.Signal{}})
	defer f.Close()

	assert.EqualError(t, f.Trigger(), "boom")
	assert.EqualError(t, f.Trigger(), "boom")
	assert.Equal(t, int32(1), calls.Load())

	select {
	case <-f.Triggered():
	default:
		t.Fatal("Triggered not closed")
	}
}

func TestFailsafe_ReleaseDoesNotStop(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	var calls atomic.Int32
	f := ArmFailsafe(func(context.Context) error {
		calls.Add(1)
		return nil
	}, FailsafeOptions{Signals: []os.Signal{}})
	f.Close()
	f.Close()
	assert.Equal(t, int32(0), calls.Load())
}

func TestFailsafe_WatchedProcessExit(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	parent := exec.Command("sleep", "0.2")
	require.NoError(t, parent.Start())
	go func() { _ = parent.Wait() }()

	var calls atomic.Int32
	f := ArmFailsafe(func(context.Context) error {
		calls.Add(1)
		return nil
	}, FailsafeOptions{WatchPID: parent.Process.Pid, PollInterval: 20 * time.Millisecond, Signals: []os.Signal{}})
	defer f.Close()

	select {
	case <-f.Triggered():
	case <-time.After(5 * time.Second):
		t.Fatal("failsafe did not fire after the watched process exited")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestFailsafe_StandaloneOnFakeInstance(t *testing.T) {
	l := &fakeLauncher{}
	p, err := l.Launch(context.Background(), Config{Port: 0}, nil, nil)
	require.NoError(t, err)
	inst := &Instance{proc: p}

	f := ArmFailsafe(inst.Stop, FailsafeOptions{Signals: []os.Signal{}})
	defer f.Close()
	require.NoError(t, f.Trigger())
	assert.False(t, l.launched[0].alive())
}
