package mongod

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/getmockd/embedmongo/internal/proc"
	"github.com/getmockd/embedmongo/pkg/output"
)

// DefaultStopGrace is how long a local server gets to shut down after
// the graceful signal before it is killed.
const DefaultStopGrace = 10 * time.Second

// ExecLauncher runs a local mongod executable.
type ExecLauncher struct {
	// Bin is the path of the mongod executable.
	Bin string

	// Grace defaults to DefaultStopGrace.
	Grace time.Duration
}

// Name implements Launcher.
func (l *ExecLauncher) Name() string { return "exec" }

// Launch implements Launcher. The child gets a parent death signal on
// Linux so it cannot outlive this process.
func (l *ExecLauncher) Launch(_ context.Context, cfg Config, args []string, sinks *output.Sinks) (Process, error) {
	if sinks == nil {
		sinks = output.Discard()
	}
	cmd := exec.Command(l.Bin, args...)
	cmd.Stdout = sinks.Stdout
	cmd.Stderr = sinks.Stderr
	cmd.SysProcAttr = proc.ChildAttr()

	fmt.Fprintln(sinks.Commands, output.CommandLine(l.Bin, args))

	done, err := proc.StartLocked(cmd)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", l.Bin, err)
	}

	grace := l.Grace
	if grace <= 0 {
		grace = DefaultStopGrace
	}
	p := &execProcess{cmd: cmd, host: cfg.Host(), port: cfg.Port, grace: grace, done: make(chan struct{})}
	go func() {
		p.err = <-done
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd   *exec.Cmd
	host  string
	port  int
	grace time.Duration

	done chan struct{}
	err  error

	stopOnce sync.Once
	stopErr  error
}

func (p *execProcess) PID() int                { return p.cmd.Process.Pid }
func (p *execProcess) ContainerID() string     { return "" }
func (p *execProcess) Endpoint() (string, int) { return p.host, p.port }
func (p *execProcess) Done() <-chan struct{}   { return p.done }

func (p *execProcess) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *execProcess) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() { p.stopErr = p.stop(ctx) })
	return p.stopErr
}

func (p *execProcess) stop(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := proc.Terminate(p.cmd.Process); err == nil {
		timer := time.NewTimer(p.grace)
		defer timer.Stop()
		select {
		case <-p.done:
			return nil
		case <-timer.C:
		case <-ctx.Done():
		}
	}

	if err := p.cmd.Process.Kill(); err != nil {
		select {
		case <-p.done:
			return nil
		default:
			return fmt.Errorf("mongod: kill %d: %w", p.PID(), err)
		}
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("mongod: %d did not exit after %s", p.PID(), proc.KillName())
	}
}
