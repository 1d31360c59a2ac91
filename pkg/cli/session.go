package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/embedmongo/pkg/cliconfig"
	"github.com/getmockd/embedmongo/pkg/distribution"
	"github.com/getmockd/embedmongo/pkg/logging"
	"github.com/getmockd/embedmongo/pkg/mongod"
	"github.com/getmockd/embedmongo/pkg/output"
	"github.com/getmockd/embedmongo/pkg/paths"
	"github.com/getmockd/embedmongo/pkg/ports"
	"github.com/getmockd/embedmongo/pkg/state"
	"github.com/getmockd/embedmongo/pkg/version"
)

// downloadTimeout bounds a single distribution download.
const downloadTimeout = 15 * time.Minute

// session is what one command invocation works with: the effective
// config, the logger, the output sinks and the shared state store.
type session struct {
	cfg   *cliconfig.Config
	log   *slog.Logger
	sinks *output.Sinks

	// file is the writable state file; store layers the environment
	// beneath it for lookups.
	file  *state.FileStore
	store state.Store
}

// loadConfig builds the effective config of cmd: files and environment
// from cliconfig.LoadAll, then the flags given on the command line.
func loadConfig(cmd *cobra.Command) (*cliconfig.Config, error) {
	cfg, err := cliconfig.LoadAll(configPath)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, cmd.Flags()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newSession loads the config and opens sinks and state for cmd. Close
// must be called when the command is done.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	sinks, err := output.Route(cfg.Logging, output.FileOptions{Path: cfg.LogFile, Encoding: cfg.LogFileEncoding})
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
		Output: os.Stderr,
	}
	if sinks.FilePath() != "" {
		logCfg.Tee = sinks.Commands
	}
	log := logging.New(logCfg).With("phase", cmd.Name(), "project", cfg.Project)

	if err := paths.EnsureDir(filepath.Dir(cfg.StateFile)); err != nil {
		_ = sinks.Close()
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	file, err := state.NewFileStore(cfg.StateFile)
	if err != nil {
		_ = sinks.Close()
		return nil, err
	}

	return &session{
		cfg:   cfg,
		log:   log,
		sinks: sinks,
		file:  file,
		store: state.Layered{file, state.EnvStore{}},
	}, nil
}

// Close flushes and closes the output sinks.
func (s *session) Close() error {
	return s.sinks.Close()
}

// skipped reports whether the phase is configured to do nothing.
func (s *session) skipped() bool {
	if s.cfg.Skip {
		s.log.Info("skipping")
		return true
	}
	return false
}

// descriptor resolves the configured server version.
func (s *session) descriptor() version.Descriptor {
	return version.Resolve(s.log, s.cfg.Version, s.cfg.Features)
}

// launcher returns the launcher for the configured backend and the bin
// directory sibling tools are taken from.
func (s *session) launcher(ctx context.Context, desc version.Descriptor) (mongod.Launcher, string, error) {
	if s.cfg.Launcher == cliconfig.LauncherDocker {
		return &mongod.ContainerLauncher{Image: s.cfg.Image}, s.cfg.BinDir, nil
	}
	bin, binDir, err := s.mongodBinary(ctx, desc)
	if err != nil {
		return nil, "", err
	}
	return &mongod.ExecLauncher{Bin: bin}, binDir, nil
}

// mongodBinary locates mongod: an explicit executable, a bin directory,
// or a downloaded distribution.
func (s *session) mongodBinary(ctx context.Context, desc version.Descriptor) (bin, binDir string, err error) {
	switch {
	case s.cfg.MongodBin != "":
		binDir = s.cfg.BinDir
		if binDir == "" && filepath.IsAbs(s.cfg.MongodBin) {
			binDir = filepath.Dir(s.cfg.MongodBin)
		}
		return s.cfg.MongodBin, binDir, nil
	case s.cfg.BinDir != "":
		return filepath.Join(s.cfg.BinDir, distribution.BinName("mongod")), s.cfg.BinDir, nil
	}

	dist, err := distribution.Resolve(desc, distribution.Options{
		BaseURL:  s.cfg.DownloadPath,
		Distro:   s.cfg.Distro,
		Platform: distribution.Current(),
	})
	if err != nil {
		return "", "", err
	}
	store := distribution.NewStore(s.cfg.CacheDir, distribution.NewClient(s.cfg.Proxy, downloadTimeout), s.log)
	binDir, err = store.Fetch(ctx, dist)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(binDir, distribution.BinName("mongod")), binDir, nil
}

// tool finds a MongoDB tool: the configured path, the bin directory,
// then PATH. The bare name is returned when nothing matches so the
// launch reports the missing executable.
func tool(configured, binDir, name string) string {
	if configured != "" {
		return configured
	}
	if binDir != "" {
		p := filepath.Join(binDir, distribution.BinName(name))
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p
		}
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return distribution.BinName(name)
}

// endpoint is where the import and scripts phases find the server.
type endpoint struct {
	Host    string
	Port    int
	Version version.Descriptor
	BinDir  string
}

// endpointOf describes an instance started in this process.
func endpointOf(inst *mongod.Instance, binDir string) endpoint {
	host, port := inst.Endpoint()
	return endpoint{Host: host, Port: port, Version: inst.Config.Version, BinDir: binDir}
}

// endpoint locates the running server: an instance started by this
// process, then the published instance record, then a published port,
// then a port given explicitly in the config. The published port wins
// over the record's own port.
func (s *session) endpoint(ctx context.Context) (endpoint, error) {
	if inst, ok := state.Lookup[*mongod.Instance](registry, state.InstanceKey); ok {
		binDir := s.cfg.BinDir
		if v, ok := state.Lookup[string](registry, binDirKey); ok {
			binDir = v
		}
		return endpointOf(inst, binDir), nil
	}

	ep := endpoint{
		Host:    "127.0.0.1",
		Version: s.descriptor(),
		BinDir:  s.cfg.BinDir,
	}
	if s.cfg.BindIP != "" {
		ep.Host = mongod.Config{BindIP: s.cfg.BindIP}.Host()
	}

	rec, err := state.LoadInstance(ctx, s.store, s.cfg.Project)
	switch {
	case err == nil:
		ep.Host, ep.Port = rec.Host, rec.Port
		if rec.Version != "" {
			ep.Version = version.Resolve(s.log, rec.Version, s.cfg.Features)
		}
		if ep.BinDir == "" {
			ep.BinDir = rec.BinDir
		}
	case !errors.Is(err, state.ErrNotFound):
		return endpoint{}, err
	}

	port, err := ports.Lookup(ctx, s.store, s.cfg.Project)
	switch {
	case err == nil:
		ep.Port = port
	case !errors.Is(err, state.ErrNotFound):
		return endpoint{}, err
	}

	if ep.Port == 0 && s.cfg.Sources["port"] != cliconfig.SourceDefault {
		ep.Port = s.cfg.Port
	}
	if ep.Port == 0 {
		return endpoint{}, fmt.Errorf("%w (project %q)", ErrNoInstance, s.cfg.Project)
	}
	s.log.Debug("using server", "host", ep.Host, "port", ep.Port, "version", ep.Version.String())
	return ep, nil
}
