package mongod

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/getmockd/embedmongo/pkg/output"
)

const containerPort = "27017/tcp"

// ContainerLauncher runs mongod in a Docker container from the official
// image. The container's port 27017 is published on the configured host
// port.
type ContainerLauncher struct {
	// Image defaults to "mongo:<version>".
	Image string

	// PollInterval is how often the container state is checked after
	// start. Defaults to two seconds.
	PollInterval time.Duration
}

// Name implements Launcher.
func (l *ContainerLauncher) Name() string { return "docker" }

// Launch implements Launcher.
func (l *ContainerLauncher) Launch(ctx context.Context, cfg Config, args []string, sinks *output.Sinks) (Process, error) {
	if sinks == nil {
		sinks = output.Discard()
	}
	image := l.Image
	if image == "" {
		image = "mongo:" + cfg.Version.DownloadPath()
	}
	cmd := append([]string{"mongod", "--bind_ip_all"}, containerArgs(args)...)
	fmt.Fprintf(sinks.Commands, "docker run -p %d:27017 %s %s\n", cfg.Port, image, strings.Join(cmd, " "))

	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			Cmd:          cmd,
			ExposedPorts: []string{fmt.Sprintf("%d:27017/tcp", cfg.Port)},
			WaitingFor:   wait.ForListeningPort(containerPort).WithStartupTimeout(startTimeout(cfg)),
			LogConsumerCfg: &testcontainers.LogConsumerConfig{
				Consumers: []testcontainers.LogConsumer{&sinkConsumer{sinks: sinks}},
			},
		},
		Started: true,
	}
	c, err := testcontainers.GenericContainer(ctx, req)
	if err != nil {
		if c != nil {
			_ = c.Terminate(context.Background())
		}
		return nil, fmt.Errorf("run container %s: %w", image, err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		return nil, fmt.Errorf("container host: %w", err)
	}
	mapped, err := c.MappedPort(ctx, containerPort)
	if err != nil {
		_ = c.Terminate(context.Background())
		return nil, fmt.Errorf("container port: %w", err)
	}

	interval := l.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	p := &containerProcess{c: c, host: host, port: mapped.Int(), done: make(chan struct{}), quit: make(chan struct{})}
	go p.watch(interval)
	return p, nil
}

// containerArgs drops the options the container manages itself.
func containerArgs(args []string) []string {
	withValue := map[string]bool{"--port": true, "--dbpath": true, "--bind_ip": true}
	var out []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case withValue[a]:
			i++
		case a == "--ipv6", strings.HasPrefix(a, "--unixSocketPrefix"):
		default:
			out = append(out, a)
		}
	}
	return out
}

type sinkConsumer struct {
	sinks *output.Sinks
}

// Accept implements testcontainers.LogConsumer.
func (s *sinkConsumer) Accept(l testcontainers.Log) {
	if l.LogType == testcontainers.StderrLog {
		_, _ = s.sinks.Stderr.Write(l.Content)
		return
	}
	_, _ = s.sinks.Stdout.Write(l.Content)
}

type containerProcess struct {
	c    testcontainers.Container
	host string
	port int

	done     chan struct{}
	doneOnce sync.Once
	quit     chan struct{}
	err      error

	stopOnce sync.Once
	stopErr  error
}

func (p *containerProcess) PID() int                { return 0 }
func (p *containerProcess) ContainerID() string     { return p.c.GetContainerID() }
func (p *containerProcess) Endpoint() (string, int) { return p.host, p.port }
func (p *containerProcess) Done() <-chan struct{}   { return p.done }

func (p *containerProcess) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *containerProcess) finish(err error) {
	p.doneOnce.Do(func() {
		p.err = err
		close(p.done)
	})
}

// watch marks the process done when the container stops running.
func (p *containerProcess) watch(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-p.quit:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			st, err := p.c.State(ctx)
			cancel()
			if err == nil && !st.Running {
				p.finish(fmt.Errorf("%w: container exited with code %d", ErrExited, st.ExitCode))
				return
			}
		}
	}
}

func (p *containerProcess) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.stopErr = p.c.Terminate(ctx)
		p.finish(nil)
	})
	return p.stopErr
}

func startTimeout(cfg Config) time.Duration {
	if cfg.StartTimeout > 0 {
		return cfg.StartTimeout
	}
	return DefaultStartTimeout
}
