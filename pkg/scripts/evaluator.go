package scripts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/getmockd/embedmongo/pkg/distribution"
	"github.com/getmockd/embedmongo/pkg/mongod"
	"github.com/getmockd/embedmongo/pkg/output"
	"github.com/getmockd/embedmongo/pkg/version"
)

// Evaluator names.
const (
	EvaluatorAuto   = "auto"
	EvaluatorDriver = "driver"
	EvaluatorShell  = "shell"
)

// Conn identifies the server and database scripts run against.
type Conn struct {
	Host     string
	Port     int
	Database string
	Version  version.Descriptor
}

// Evaluator opens sessions that evaluate scripts.
type Evaluator interface {
	Open(ctx context.Context, conn Conn) (Session, error)
}

// Session evaluates scripts against one database. A failed evaluation
// returns an *EvalError.
type Session interface {
	Eval(ctx context.Context, code string) error
	Close(ctx context.Context) error
}

// NewEvaluator picks an evaluator by name. Auto uses the driver for
// servers from 3.6 up to 4.2, where eval still exists and the driver can
// connect, and the shell otherwise.
func NewEvaluator(kind string, v version.Descriptor, shellBin string, sinks *output.Sinks) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", EvaluatorAuto:
		if v.AtLeast(3, 6) && !v.AtLeast(4, 2) {
			return &MongoEvaluator{}, nil
		}
		return &ShellEvaluator{Bin: shellBin, Sinks: sinks}, nil
	case EvaluatorDriver:
		return &MongoEvaluator{}, nil
	case EvaluatorShell:
		return &ShellEvaluator{Bin: shellBin, Sinks: sinks}, nil
	}
	return nil, fmt.Errorf("%w: %q (valid: auto, driver, shell)", ErrUnknownEvaluator, kind)
}

// FindShell returns the legacy mongo shell from binDir when present, then
// mongosh or mongo from PATH, or "".
func FindShell(binDir string) string {
	if binDir != "" {
		p := filepath.Join(binDir, distribution.BinName("mongo"))
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	for _, name := range []string{"mongosh", "mongo"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

// MongoEvaluator sends the eval command through the Go driver.
type MongoEvaluator struct {
	// ConnectTimeout bounds server selection. Defaults to 10s.
	ConnectTimeout time.Duration
}

// Open implements Evaluator.
func (e *MongoEvaluator) Open(ctx context.Context, conn Conn) (Session, error) {
	timeout := e.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(mongod.URI(conn.Host, conn.Port)).
		SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("scripts: unable to connect to %s:%d: %w", conn.Host, conn.Port, err)
	}
	return &driverSession{client: client, db: client.Database(conn.Database)}, nil
}

type driverSession struct {
	client *mongo.Client
	db     *mongo.Database
}

func (s *driverSession) Eval(ctx context.Context, code string) error {
	cmd := bson.D{{Key: "eval", Value: code}, {Key: "args", Value: bson.A{}}}
	return evalError(s.db.RunCommand(ctx, cmd).Err())
}

func (s *driverSession) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// evalError turns a server-side command failure into an *EvalError.
func evalError(err error) error {
	if err == nil {
		return nil
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return &EvalError{Message: ce.Message, Err: err}
	}
	return err
}

// ShellEvaluator runs each script with the mongo or mongosh shell.
type ShellEvaluator struct {
	Bin   string
	Sinks *output.Sinks
}

// Open implements Evaluator.
func (e *ShellEvaluator) Open(_ context.Context, conn Conn) (Session, error) {
	if e.Bin == "" {
		return nil, errors.New("scripts: no mongo or mongosh shell found, set the shell binary")
	}
	sinks := e.Sinks
	if sinks == nil {
		sinks = output.Discard()
	}
	return &shellSession{bin: e.Bin, conn: conn, sinks: sinks}, nil
}

type shellSession struct {
	bin   string
	conn  Conn
	sinks *output.Sinks
}

func (s *shellSession) args(code string) []string {
	return []string{
		"--quiet",
		"--host", s.conn.Host,
		"--port", strconv.Itoa(s.conn.Port),
		s.conn.Database,
		"--eval", code,
	}
}

func (s *shellSession) Eval(ctx context.Context, code string) error {
	args := s.args(code)
	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, s.bin, args...)
	cmd.Stdout = io.MultiWriter(s.sinks.Stdout, &buf)
	cmd.Stderr = io.MultiWriter(s.sinks.Stderr, &buf)

	fmt.Fprintln(s.sinks.Commands, output.CommandLine(s.bin, args[:len(args)-1])+" <script>")
	err := cmd.Run()
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return fmt.Errorf("scripts: run %s: %w", s.bin, err)
	}
	msg := strings.TrimSpace(buf.String())
	if msg == "" {
		msg = err.Error()
	}
	return &EvalError{Message: msg, Err: err}
}

func (s *shellSession) Close(context.Context) error { return nil }
