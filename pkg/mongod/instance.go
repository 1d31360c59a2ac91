package mongod

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/getmockd/embedmongo/pkg/state"
)

// Instance is a running server. It is shared by pointer between phases of
// one process through a state.Registry.
type Instance struct {
	ID        string
	Config    Config
	Args      []string
	Launcher  string
	StartedAt time.Time

	proc Process
}

// Endpoint returns where clients reach the server.
func (i *Instance) Endpoint() (string, int) { return i.proc.Endpoint() }

// Address returns host:port.
func (i *Instance) Address() string {
	host, port := i.Endpoint()
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// URI returns a connection string for the instance.
func (i *Instance) URI() string {
	host, port := i.Endpoint()
	return URI(host, port)
}

// PID returns the server's process id, or 0 for containers.
func (i *Instance) PID() int { return i.proc.PID() }

// Done is closed when the server process has exited.
func (i *Instance) Done() <-chan struct{} { return i.proc.Done() }

// Stop terminates the server. Repeated calls return the first result.
func (i *Instance) Stop(ctx context.Context) error { return i.proc.Stop(ctx) }

// Record describes the instance for phases in other processes.
func (i *Instance) Record(project string, supervisorPID int, binDir string) *state.InstanceRecord {
	host, port := i.Endpoint()
	return &state.InstanceRecord{
		ID:            i.ID,
		Project:       project,
		SupervisorPID: supervisorPID,
		ServerPID:     i.proc.PID(),
		ContainerID:   i.proc.ContainerID(),
		Launcher:      i.Launcher,
		Host:          host,
		Port:          port,
		Version:       i.Config.Version.DownloadPath(),
		DataDir:       i.Config.DataDir,
		BinDir:        binDir,
		StartedAt:     i.StartedAt,
	}
}
