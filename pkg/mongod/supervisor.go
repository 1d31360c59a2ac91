package mongod

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/getmockd/embedmongo/pkg/logging"
	"github.com/getmockd/embedmongo/pkg/output"
	"github.com/getmockd/embedmongo/pkg/ports"
	"github.com/getmockd/embedmongo/pkg/state"
)

// Options configure a Supervisor.
type Options struct {
	Config   Config
	Launcher Launcher
	Sinks    *output.Sinks

	// Project identifies the build; the port and instance record are
	// published under it. Required when Store is set.
	Project string

	// Store, when set, receives the published port and instance record.
	Store state.Store

	// Registry, when set, receives the *Instance under state.InstanceKey.
	Registry *state.Registry

	// BinDir is recorded for later phases that need sibling tools.
	BinDir string

	// Ping confirms readiness after the port accepts connections. Nil
	// uses DriverPing for versions the driver supports.
	Ping Pinger

	Failsafe FailsafeOptions
	Log      *slog.Logger
}

// Supervisor owns the lifecycle of one server.
type Supervisor struct {
	opts Options
	log  *slog.Logger

	mu       sync.Mutex
	state    State
	inst     *Instance
	failsafe *Failsafe
	tempDir  string
	stopErr  error
	stopped  chan struct{}
}

// New creates an idle Supervisor.
func New(opts Options) *Supervisor {
	if opts.Sinks == nil {
		opts.Sinks = output.Discard()
	}
	return &Supervisor{
		opts:    opts,
		log:     logging.Component(opts.Log, "mongod"),
		stopped: make(chan struct{}),
	}
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Instance returns the running instance, or nil.
func (s *Supervisor) Instance() *Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inst
}

func (s *Supervisor) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(to)
}

func (s *Supervisor) transitionLocked(to State) error {
	if !canTransition(s.state, to) {
		return fmt.Errorf("%w: %s → %s", ErrState, s.state, to)
	}
	s.log.Debug("state change", "from", s.state.String(), "to", to.String())
	s.state = to
	return nil
}

// Start configures, launches and publishes the server. It returns once
// the server accepts connections. On failure the Supervisor is Failed and
// nothing is left running.
func (s *Supervisor) Start(ctx context.Context) (*Instance, error) {
	if err := s.transition(StateConfiguring); err != nil {
		return nil, err
	}

	cfg, err := s.configure()
	if err != nil {
		s.fail()
		return nil, fmt.Errorf("%w: %w", ErrStart, err)
	}
	args := BuildArgs(cfg)

	if err := s.transition(StateStarting); err != nil {
		s.fail()
		return nil, err
	}

	s.log.Info("starting mongod",
		"version", cfg.Version.String(), "port", cfg.Port, "launcher", s.opts.Launcher.Name())

	p, err := s.opts.Launcher.Launch(ctx, cfg, args, s.opts.Sinks)
	if err != nil {
		s.fail()
		return nil, fmt.Errorf("%w: %w", ErrStart, err)
	}

	ping := s.opts.Ping
	if ping == nil && pingSupported(cfg) {
		ping = DriverPing
	}
	rctx, cancel := context.WithTimeout(ctx, startTimeout(cfg))
	err = waitReady(rctx, p, ping)
	cancel()
	if err != nil {
		_ = p.Stop(context.Background())
		s.fail()
		return nil, fmt.Errorf("%w: %w", ErrStart, err)
	}

	inst := &Instance{
		ID:        state.NewInstanceID(),
		Config:    cfg,
		Args:      args,
		Launcher:  s.opts.Launcher.Name(),
		StartedAt: time.Now().UTC(),
		proc:      p,
	}

	s.mu.Lock()
	s.inst = inst
	err = s.transitionLocked(StateRunning)
	s.mu.Unlock()
	if err != nil {
		_ = p.Stop(context.Background())
		return nil, err
	}

	// The failsafe is armed before anything can block on the instance.
	s.mu.Lock()
	s.failsafe = ArmFailsafe(s.Stop, s.failsafeOptions())
	s.mu.Unlock()

	if err := s.publish(ctx, inst); err != nil {
		_ = s.Stop(context.Background())
		return nil, fmt.Errorf("%w: %w", ErrStart, err)
	}

	host, port := inst.Endpoint()
	s.log.Info("mongod running", "host", host, "port", port, "pid", inst.PID(), "id", inst.ID)
	return inst, nil
}

func (s *Supervisor) failsafeOptions() FailsafeOptions {
	fo := s.opts.Failsafe
	if fo.Log == nil {
		fo.Log = s.opts.Log
	}
	return fo
}

// configure resolves the port and data directory.
func (s *Supervisor) configure() (Config, error) {
	cfg := s.opts.Config
	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	if cfg.RandomPort || cfg.Port == 0 {
		port, err := ports.Allocate()
		if err != nil {
			return cfg, err
		}
		cfg.Port = port
		s.log.Debug("allocated port", "port", port)
	}

	if cfg.DataDir == "" {
		dir, err := os.MkdirTemp("", "embedmongo-data-")
		if err != nil {
			return cfg, fmt.Errorf("create data directory: %w", err)
		}
		s.tempDir = dir
		cfg.DataDir = dir
	} else if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return cfg, fmt.Errorf("create data directory: %w", err)
	}
	return cfg, nil
}

func (s *Supervisor) publish(ctx context.Context, inst *Instance) error {
	if s.opts.Registry != nil {
		s.opts.Registry.Put(state.InstanceKey, inst)
	}
	if s.opts.Store == nil {
		return nil
	}
	_, port := inst.Endpoint()
	if err := ports.Publish(ctx, s.opts.Store, s.opts.Project, port); err != nil {
		return err
	}
	return state.SaveInstance(ctx, s.opts.Store, inst.Record(s.opts.Project, os.Getpid(), s.opts.BinDir))
}

func (s *Supervisor) unpublish(ctx context.Context) {
	if s.opts.Registry != nil {
		s.opts.Registry.Remove(state.InstanceKey)
	}
	if s.opts.Store == nil || s.opts.Project == "" {
		return
	}
	if err := state.RemoveInstance(ctx, s.opts.Store, s.opts.Project); err != nil {
		s.log.Warn("could not remove instance record", "error", err)
	}
	if err := ports.Unpublish(ctx, s.opts.Store, s.opts.Project); err != nil {
		s.log.Warn("could not remove published port", "error", err)
	}
}

func (s *Supervisor) fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	s.removeTempDirLocked()
}

func (s *Supervisor) removeTempDirLocked() {
	if s.tempDir == "" {
		return
	}
	if err := os.RemoveAll(s.tempDir); err != nil {
		s.log.Warn("could not remove data directory", "path", s.tempDir, "error", err)
	}
	s.tempDir = ""
}

// Wait blocks until ctx is cancelled or the server exits. Cancellation
// returns nil and leaves the server running.
func (s *Supervisor) Wait(ctx context.Context) error {
	s.mu.Lock()
	inst := s.inst
	if err := s.transitionLocked(StateWaiting); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.log.Info("waiting; interrupt to stop", "address", inst.Address())

	select {
	case <-ctx.Done():
		s.mu.Lock()
		if s.state == StateWaiting {
			_ = s.transitionLocked(StateRunning)
		}
		s.mu.Unlock()
		return nil
	case <-s.stopped:
		return nil
	case <-inst.Done():
		if st := s.State(); st == StateStopping || st == StateStopped {
			<-s.stopped
			return nil
		}
		return fmt.Errorf("%w while waiting: %v", ErrExited, inst.proc.Err())
	}
}

// Stop terminates the server and withdraws what Start published. It is
// safe to call from several goroutines and more than once; every call
// returns the result of the first. Stopping a Supervisor that never
// reached Running is a no-op.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateStopping:
		s.mu.Unlock()
		<-s.stopped
		return s.stopErr
	case StateStopped:
		s.mu.Unlock()
		return s.stopErr
	case StateRunning, StateWaiting:
	default:
		s.mu.Unlock()
		return nil
	}
	_ = s.transitionLocked(StateStopping)
	inst, fs := s.inst, s.failsafe
	s.mu.Unlock()

	if fs != nil {
		fs.Release()
	}

	s.log.Info("stopping mongod", "id", inst.ID)
	err := inst.Stop(ctx)
	s.unpublish(ctx)

	s.mu.Lock()
	if err != nil {
		s.stopErr = fmt.Errorf("mongod: stop: %w", err)
	}
	s.removeTempDirLocked()
	_ = s.transitionLocked(StateStopped)
	close(s.stopped)
	s.mu.Unlock()

	if err == nil {
		s.log.Info("mongod stopped", "id", inst.ID)
	}
	return s.stopErr
}

// Failsafe returns the failsafe armed by Start, or nil.
func (s *Supervisor) Failsafe() *Failsafe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failsafe
}
