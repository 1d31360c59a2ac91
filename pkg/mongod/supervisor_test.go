package mongod

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/getmockd/embedmongo/pkg/output"
	"github.com/getmockd/embedmongo/pkg/ports"
	"github.com/getmockd/embedmongo/pkg/state"
	"github.com/getmockd/embedmongo/pkg/version"
)

var leakOpts = []goleak.Option{
	goleak.IgnoreAnyFunction("os/signal.loop"),
	goleak.IgnoreTopFunction("os/signal.signal_recv"),
}

func newTestSupervisor(t *testing.T, l Launcher, store state.Store, reg *state.Registry) *Supervisor {
	t.Helper()
	return New(Options{
		Config: Config{
			Version:    version.Resolve(nil, "3.6.23", ""),
			BindIP:     "127.0.0.1",
			RandomPort: true,
		},
		Launcher: l,
		Project:  "demo",
		Store:    store,
		Registry: reg,
		Ping:     noPing,
		Failsafe: FailsafeOptions{Signals: []os.Signal{}},
	})
}

func TestSupervisor_StartPublishesBeforeReturning(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	ctx := context.Background()
	store := state.NewMemoryStore()
	reg := state.NewRegistry()
	l := &fakeLauncher{}
	s := newTestSupervisor(t, l, store, reg)
	assert.Equal(t, StateIdle, s.State())

	inst, err := s.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, s.State())

	_, port := inst.Endpoint()
	published, err := ports.Lookup(ctx, store, "demo")
	require.NoError(t, err)
	assert.Equal(t, port, published)

	rec, err := state.LoadInstance(ctx, store, "demo")
	require.NoError(t, err)
	assert.Equal(t, inst.ID, rec.ID)
	assert.Equal(t, "fake", rec.Launcher)
	assert.Equal(t, os.Getpid(), rec.SupervisorPID)
	assert.Equal(t, "3.6.23", rec.Version)

	got, ok := state.Lookup[*Instance](reg, state.InstanceKey)
	require.True(t, ok)
	assert.Same(t, inst, got)

	dataDir := inst.Config.DataDir
	assert.DirExists(t, dataDir)

	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, StateStopped, s.State())

	_, err = ports.Lookup(ctx, store, "demo")
	assert.ErrorIs(t, err, state.ErrNotFound)
	_, err = state.LoadInstance(ctx, store, "demo")
	assert.ErrorIs(t, err, state.ErrNotFound)
	_, ok = reg.Get(state.InstanceKey)
	assert.False(t, ok)
	assert.NoDirExists(t, dataDir, "temporary data directory is removed")
}

func TestSupervisor_CommandsChannelSeesLaunch(t *testing.T) {
	var console bytes.Buffer
	sinks, err := output.RouteTo(&console, "console", output.FileOptions{})
	require.NoError(t, err)

	s := New(Options{
		Config:   Config{Version: version.Resolve(nil, "3.6.23", ""), RandomPort: true},
		Launcher: &fakeLauncher{},
		Sinks:    sinks,
		Ping:     noPing,
		Failsafe: FailsafeOptions{Signals: []os.Signal{}},
	})
	_, err = s.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, sinks.Close())

	assert.Contains(t, console.String(), output.PrefixCommands+"mongod --port ")
}

func TestSupervisor_ExplicitPortAndDataDir(t *testing.T) {
	port, err := ports.Allocate()
	require.NoError(t, err)
	dir := t.TempDir()

	s := New(Options{
		Config:   Config{Version: version.Resolve(nil, "3.6.23", ""), Port: port, DataDir: dir},
		Launcher: &fakeLauncher{},
		Ping:     noPing,
		Failsafe: FailsafeOptions{Signals: []os.Signal{}},
	})
	inst, err := s.Start(context.Background())
	require.NoError(t, err)
	_, got := inst.Endpoint()
	assert.Equal(t, port, got)

	require.NoError(t, s.Stop(context.Background()))
	assert.DirExists(t, dir, "configured data directory is kept")
}

func TestSupervisor_LaunchFailure(t *testing.T) {
	s := newTestSupervisor(t, &fakeLauncher{err: errors.New("no such file")}, nil, nil)

	_, err := s.Start(context.Background())
	require.ErrorIs(t, err, ErrStart)
	assert.Contains(t, err.Error(), "no such file")
	assert.Equal(t, StateFailed, s.State())

	// a failed supervisor cannot be restarted, and stopping it is a no-op
	_, err = s.Start(context.Background())
	assert.ErrorIs(t, err, ErrState)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestSupervisor_ExitBeforeReady(t *testing.T) {
	s := newTestSupervisor(t, &fakeLauncher{exitEarly: true}, nil, nil)

	_, err := s.Start(context.Background())
	require.ErrorIs(t, err, ErrStart)
	assert.ErrorIs(t, err, ErrExited)
	assert.Equal(t, StateFailed, s.State())
}

func TestSupervisor_PingFailureStopsProcess(t *testing.T) {
	l := &fakeLauncher{}
	s := New(Options{
		Config:   Config{Version: version.Resolve(nil, "3.6.23", ""), RandomPort: true, StartTimeout: 300 * time.Millisecond},
		Launcher: l,
		Ping:     func(context.Context, string, int) error { return errors.New("not master") },
		Failsafe: FailsafeOptions{Signals: []os.Signal{}},
	})

	_, err := s.Start(context.Background())
	require.ErrorIs(t, err, ErrStart)
	require.Len(t, l.launched, 1)
	assert.False(t, l.launched[0].alive())
}

func TestSupervisor_InvalidConfig(t *testing.T) {
	s := New(Options{
		Config:   Config{Version: version.Resolve(nil, "3.6.23", ""), Port: -1},
		Launcher: &fakeLauncher{},
	})
	_, err := s.Start(context.Background())
	assert.ErrorIs(t, err, ErrConfig)
	assert.Equal(t, StateFailed, s.State())
}

// Cancelling Wait returns without stopping the server.
func TestSupervisor_WaitCancelled(t *testing.T) {
	l := &fakeLauncher{}
	s := newTestSupervisor(t, l, nil, nil)
	_, err := s.Start(context.Background())
	require.NoError(t, err)
	defer s.Stop(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Wait(ctx) }()

	require.Eventually(t, func() bool { return s.State() == StateWaiting }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after cancel")
	}
	assert.Equal(t, StateRunning, s.State())
	assert.True(t, l.launched[0].alive())
}

func TestSupervisor_WaitEndsOnStop(t *testing.T) {
	s := newTestSupervisor(t, &fakeLauncher{}, nil, nil)
	_, err := s.Start(context.Background())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Wait(context.Background()) }()
	require.Eventually(t, func() bool { return s.State() == StateWaiting }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after Stop")
	}
}

func TestSupervisor_WaitReportsUnexpectedExit(t *testing.T) {
	l := &fakeLauncher{}
	s := newTestSupervisor(t, l, nil, nil)
	_, err := s.Start(context.Background())
	require.NoError(t, err)
	defer s.Stop(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		l.launched[0].exit(errors.New("signal: killed"))
	}()
	err = s.Wait(context.Background())
	assert.ErrorIs(t, err, ErrExited)
}

func TestSupervisor_ConcurrentStop(t *testing.T) {
	l := &fakeLauncher{}
	s := newTestSupervisor(t, l, state.NewMemoryStore(), nil)
	_, err := s.Start(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Stop(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), l.launched[0].stops.Load())
	assert.Equal(t, StateStopped, s.State())
}

func TestSupervisor_WaitBeforeStartFails(t *testing.T) {
	s := newTestSupervisor(t, &fakeLauncher{}, nil, nil)
	assert.ErrorIs(t, s.Wait(context.Background()), ErrState)
}

func TestSupervisor_FailsafeTriggerStopsServer(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	l := &fakeLauncher{}
	store := state.NewMemoryStore()
	s := newTestSupervisor(t, l, store, nil)
	_, err := s.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Failsafe().Trigger())

	assert.False(t, l.launched[0].alive())
	assert.Equal(t, StateStopped, s.State())
	_, err = ports.Lookup(context.Background(), store, "demo")
	assert.ErrorIs(t, err, state.ErrNotFound)
}
