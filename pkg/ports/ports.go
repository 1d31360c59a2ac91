// Package ports allocates TCP ports for the server and publishes the chosen
// port so later phases, possibly in other processes, can find it.
//
// Allocate asks the operating system for a free ephemeral port by binding
// port 0 and releasing it again. Nothing reserves the port after Allocate
// returns: another process may bind it before mongod does. Callers accept
// that window.
package ports

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getmockd/embedmongo/pkg/state"
)

// KeyPrefix prefixes the store key of a project's published port.
const KeyPrefix = "embedmongo.port"

// ErrBlankProject is returned when publishing or looking up a port without
// a project identity.
var ErrBlankProject = errors.New("ports: project identity must not be blank")

const (
	// recentTTL is how long a handed-out port is kept from being handed
	// out again by this process.
	recentTTL = 2 * time.Second

	// maxAttempts bounds retries when the OS keeps offering recent ports.
	maxAttempts = 8
)

var (
	recentMu sync.Mutex
	recent   = map[int]time.Time{}
)

// Allocate returns a port that was free at the moment of return. The port
// is not held open.
func Allocate() (int, error) {
	var port int
	for range maxAttempts {
		p, err := ephemeral()
		if err != nil {
			return 0, err
		}
		port = p
		if claim(p) {
			return p, nil
		}
	}
	// The OS keeps recycling the same few ports; its answer is still free.
	return port, nil
}

func ephemeral() (int, error) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("ports: allocate: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if err := ln.Close(); err != nil {
		return 0, fmt.Errorf("ports: release %d: %w", port, err)
	}
	return port, nil
}

// claim records p as handed out unless it already was within recentTTL.
func claim(p int) bool {
	now := time.Now()
	recentMu.Lock()
	defer recentMu.Unlock()
	if at, ok := recent[p]; ok && now.Sub(at) < recentTTL {
		return false
	}
	recent[p] = now
	if len(recent) > 4096 {
		for q, at := range recent {
			if now.Sub(at) >= recentTTL {
				delete(recent, q)
			}
		}
	}
	return true
}

// IsAvailable reports whether port can be bound right now.
func IsAvailable(port int) bool {
	return Check(port) == nil
}

// Check returns the bind error for port, or nil if it is free.
func Check(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	_ = ln.Close()
	return nil
}

// Key returns the store key for project's published port.
func Key(project string) (string, error) {
	if strings.TrimSpace(project) == "" {
		return "", ErrBlankProject
	}
	return KeyPrefix + "." + project, nil
}

// Publish records port for project in s.
func Publish(ctx context.Context, s state.Store, project string, port int) error {
	key, err := Key(project)
	if err != nil {
		return err
	}
	if err := s.Set(ctx, key, strconv.Itoa(port)); err != nil {
		return fmt.Errorf("ports: publish %s: %w", key, err)
	}
	return nil
}

// Lookup returns the port published for project. A missing value is
// reported as state.ErrNotFound.
func Lookup(ctx context.Context, s state.Store, project string) (int, error) {
	key, err := Key(project)
	if err != nil {
		return 0, err
	}
	raw, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("ports: %s holds %q, not a port", key, raw)
	}
	return port, nil
}

// Unpublish removes project's published port.
func Unpublish(ctx context.Context, s state.Store, project string) error {
	key, err := Key(project)
	if err != nil {
		return err
	}
	return s.Delete(ctx, key)
}
