package mongod

import (
	"context"

	"github.com/getmockd/embedmongo/pkg/output"
)

// Launcher starts a server process.
type Launcher interface {
	// Name identifies the launcher in instance records ("exec", "docker").
	Name() string

	// Launch starts the server with args and returns once the process
	// exists. Readiness is checked by the Supervisor.
	Launch(ctx context.Context, cfg Config, args []string, sinks *output.Sinks) (Process, error)
}

// Process is a launched server.
type Process interface {
	// PID is the OS process id, or 0 when not local.
	PID() int

	// ContainerID is set by container launchers.
	ContainerID() string

	// Endpoint is where clients reach the server.
	Endpoint() (host string, port int)

	// Done is closed when the process has exited.
	Done() <-chan struct{}

	// Err returns the exit error once Done is closed.
	Err() error

	// Stop terminates the process and waits for it to exit.
	Stop(ctx context.Context) error
}
