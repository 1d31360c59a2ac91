package importer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/getmockd/embedmongo/pkg/output"
	"github.com/getmockd/embedmongo/pkg/version"
)

// Launcher starts one import job.
type Launcher interface {
	Launch(ctx context.Context, job Job) (Handle, error)
}

// Handle is a launched job. Wait blocks until it ends and returns a
// *JobError when it failed.
type Handle interface {
	Wait() error
}

// MongoImportLauncher runs the mongoimport executable against a running
// server.
type MongoImportLauncher struct {
	Bin     string
	Host    string
	Port    int
	Version version.Descriptor
	Sinks   *output.Sinks
}

// Args builds the mongoimport command line for job. Input is always a JSON
// array.
func (l *MongoImportLauncher) Args(job Job) []string {
	args := []string{
		"--host", l.Host,
		"--port", strconv.Itoa(l.Port),
		"--db", job.Database,
		"--collection", job.Collection,
		"--file", job.File,
		"--jsonArray",
	}
	if job.Drop {
		args = append(args, "--drop")
	}
	if job.Upsert {
		// --upsert was replaced by --mode in 3.4 and later removed.
		if l.Version.AtLeast(3, 4) {
			args = append(args, "--mode=upsert")
		} else {
			args = append(args, "--upsert")
		}
	}
	return args
}

// Launch implements Launcher. The job's timeout starts now.
func (l *MongoImportLauncher) Launch(ctx context.Context, job Job) (Handle, error) {
	sinks := l.Sinks
	if sinks == nil {
		sinks = output.Discard()
	}
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	args := l.Args(job)
	jctx, cancel := context.WithTimeout(ctx, timeout)
	cmd := exec.CommandContext(jctx, l.Bin, args...)
	cmd.Stdout = sinks.Stdout
	cmd.Stderr = sinks.Stderr
	cmd.WaitDelay = 5 * time.Second

	fmt.Fprintln(sinks.Commands, output.CommandLine(l.Bin, args))
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w %s: %w", ErrLaunch, l.Bin, err)
	}
	return &execHandle{cmd: cmd, ctx: jctx, cancel: cancel, job: job}, nil
}

type execHandle struct {
	cmd    *exec.Cmd
	ctx    context.Context
	cancel context.CancelFunc
	job    Job
}

func (h *execHandle) Wait() error {
	defer h.cancel()
	err := h.cmd.Wait()
	if err == nil {
		return nil
	}

	je := &JobError{
		File:       h.job.File,
		Database:   h.job.Database,
		Collection: h.job.Collection,
		ExitCode:   -1,
		Err:        err,
	}
	switch {
	case errors.Is(h.ctx.Err(), context.DeadlineExceeded):
		je.TimedOut = true
	case h.ctx.Err() != nil:
		je.Err = errors.Join(err, h.ctx.Err())
	default:
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			je.ExitCode = ee.ExitCode()
		}
	}
	return je
}
