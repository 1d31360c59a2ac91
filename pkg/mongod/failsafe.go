package mongod

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getmockd/embedmongo/internal/proc"
	"github.com/getmockd/embedmongo/pkg/logging"
)

// failsafeStopTimeout bounds the stop run by a triggered failsafe.
const failsafeStopTimeout = 30 * time.Second

// FailsafeOptions configure a Failsafe.
type FailsafeOptions struct {
	// WatchPID, when positive, triggers the failsafe once that process
	// is gone. The detached supervisor watches the build that started it.
	WatchPID int

	// PollInterval for WatchPID. Defaults to one second.
	PollInterval time.Duration

	// Signals trigger the failsafe. Defaults to SIGINT and SIGTERM;
	// an empty non-nil slice disables signal handling.
	Signals []os.Signal

	Log *slog.Logger
}

// Failsafe runs a stop function at most once, when triggered by a signal,
// by the watched process disappearing, or by an explicit Trigger.
type Failsafe struct {
	stop func(context.Context) error
	log  *slog.Logger

	once      sync.Once
	err       error
	triggered chan struct{}

	quit     chan struct{}
	quitOnce sync.Once
	sigs     chan os.Signal
	wg       sync.WaitGroup
}

// ArmFailsafe registers stop and starts watching for triggers.
func ArmFailsafe(stop func(context.Context) error, opts FailsafeOptions) *Failsafe {
	f := &Failsafe{
		stop:      stop,
		log:       logging.Component(opts.Log, "failsafe"),
		triggered: make(chan struct{}),
		quit:      make(chan struct{}),
	}

	signals := opts.Signals
	if signals == nil {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	if len(signals) > 0 {
		f.sigs = make(chan os.Signal, 1)
		signal.Notify(f.sigs, signals...)
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	f.wg.Add(1)
	go f.watch(opts.WatchPID, interval)
	return f
}

func (f *Failsafe) watch(pid int, interval time.Duration) {
	defer f.wg.Done()

	var tick <-chan time.Time
	if pid > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-f.quit:
			return
		case sig := <-f.sigs:
			f.log.Info("signal received, stopping mongod", "signal", sig.String())
			_ = f.Trigger()
			return
		case <-tick:
			if !proc.Alive(pid) {
				f.log.Info("watched process exited, stopping mongod", "pid", pid)
				_ = f.Trigger()
				return
			}
		}
	}
}

// Trigger runs the stop function unless it already ran, and returns its
// result.
func (f *Failsafe) Trigger() error {
	f.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), failsafeStopTimeout)
		defer cancel()
		f.err = f.stop(ctx)
		if f.err != nil {
			f.log.Error("failsafe stop failed", "error", f.err)
		}
		close(f.triggered)
	})
	return f.err
}

// Triggered is closed once the stop function has run.
func (f *Failsafe) Triggered() <-chan struct{} { return f.triggered }

// Release stops watching for triggers without running the stop function.
// It does not wait for a Trigger already in progress.
func (f *Failsafe) Release() {
	f.quitOnce.Do(func() {
		if f.sigs != nil {
			signal.Stop(f.sigs)
		}
		close(f.quit)
	})
}

// Close releases the failsafe and waits for its watcher to exit.
func (f *Failsafe) Close() {
	f.Release()
	f.wg.Wait()
}
