package mongod

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/getmockd/embedmongo/pkg/output"
)

// fakeLauncher "starts" a server by listening on the configured port.
type fakeLauncher struct {
	err       error
	exitEarly bool

	mu       sync.Mutex
	launched []*fakeProcess
	args     [][]string
}

func (l *fakeLauncher) Name() string { return "fake" }

func (l *fakeLauncher) Launch(_ context.Context, cfg Config, args []string, sinks *output.Sinks) (Process, error) {
	if l.err != nil {
		return nil, l.err
	}
	if sinks == nil {
		sinks = output.Discard()
	}
	fmt.Fprintln(sinks.Commands, output.CommandLine("mongod", args))

	p := &fakeProcess{host: cfg.Host(), port: cfg.Port, done: make(chan struct{})}
	if l.exitEarly {
		p.exit(errors.New("exit status 100"))
	} else {
		ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Host(), fmt.Sprint(cfg.Port)))
		if err != nil {
			return nil, err
		}
		p.ln = ln
		go func() {
			for {
				c, err := ln.Accept()
				if err != nil {
					return
				}
				_ = c.Close()
			}
		}()
	}

	l.mu.Lock()
	l.launched = append(l.launched, p)
	l.args = append(l.args, args)
	l.mu.Unlock()
	return p, nil
}

type fakeProcess struct {
	ln   net.Listener
	host string
	port int

	done  chan struct{}
	once  sync.Once
	err   error
	stops atomic.Int32
}

func (p *fakeProcess) PID() int                { return 0 }
func (p *fakeProcess) ContainerID() string     { return "" }
func (p *fakeProcess) Endpoint() (string, int) { return p.host, p.port }
func (p *fakeProcess) Done() <-chan struct{}   { return p.done }
func (p *fakeProcess) Err() error              { return p.err }

func (p *fakeProcess) exit(err error) {
	p.once.Do(func() {
		p.err = err
		if p.ln != nil {
			_ = p.ln.Close()
		}
		close(p.done)
	})
}

func (p *fakeProcess) Stop(context.Context) error {
	p.stops.Add(1)
	p.exit(nil)
	return nil
}

func (p *fakeProcess) alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func noPing(context.Context, string, int) error { return nil }
