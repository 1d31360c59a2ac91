package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// InstanceKey is the well-known name of the running instance, both in a
// Registry and (suffixed with the project) in a Store.
const InstanceKey = "embedmongo.mongod"

// InstanceRecord describes a running server for phases in other processes.
type InstanceRecord struct {
	ID            string    `json:"id"`
	Project       string    `json:"project"`
	SupervisorPID int       `json:"supervisorPid"`
	ServerPID     int       `json:"serverPid,omitempty"`
	ContainerID   string    `json:"containerId,omitempty"`
	Launcher      string    `json:"launcher"`
	Host          string    `json:"host"`
	Port          int       `json:"port"`
	Version       string    `json:"version"`
	DataDir       string    `json:"dataDir,omitempty"`
	BinDir        string    `json:"binDir,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
}

// NewInstanceID returns a fresh instance identifier.
func NewInstanceID() string {
	return uuid.NewString()
}

// Address returns host:port.
func (r *InstanceRecord) Address() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// InstanceStoreKey is the store key holding the record for project.
func InstanceStoreKey(project string) string {
	return InstanceKey + "." + project
}

// SaveInstance publishes rec under its project's key.
func SaveInstance(ctx context.Context, s Store, rec *InstanceRecord) error {
	if rec.Project == "" {
		return errors.New("state: instance record has no project")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("state: encode instance: %w", err)
	}
	return s.Set(ctx, InstanceStoreKey(rec.Project), string(data))
}

// LoadInstance reads the record published for project. A missing record
// is reported as ErrNotFound.
func LoadInstance(ctx context.Context, s Store, project string) (*InstanceRecord, error) {
	raw, err := s.Get(ctx, InstanceStoreKey(project))
	if err != nil {
		return nil, err
	}
	return DecodeInstance(raw)
}

// DecodeInstance parses a record as stored by SaveInstance.
func DecodeInstance(raw string) (*InstanceRecord, error) {
	var rec InstanceRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("state: decode instance: %w", err)
	}
	return &rec, nil
}

// RemoveInstance deletes the record for project.
func RemoveInstance(ctx context.Context, s Store, project string) error {
	return s.Delete(ctx, InstanceStoreKey(project))
}
