package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/embedmongo/internal/proc"
	"github.com/getmockd/embedmongo/pkg/cliconfig"
	"github.com/getmockd/embedmongo/pkg/mongod"
	"github.com/getmockd/embedmongo/pkg/paths"
	"github.com/getmockd/embedmongo/pkg/state"
)

// binDirKey names the bin directory of the in-process instance in the
// registry.
const binDirKey = "embedmongo.binDir"

// supervisorGrace is added to the start timeout while start waits for the
// detached supervisor to publish its instance; it covers downloading.
const supervisorGrace = 10 * time.Minute

var superviseWatchPID int

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a MongoDB server",
	Long: `Start a MongoDB server and publish its port for later phases.

The version is resolved and its distribution downloaded into the cache
directory unless --mongod-bin or --bin-dir points at a local installation.
start returns as soon as the server accepts connections and leaves it running
under a detached supervisor; stop ends it. With --wait, start runs the server
in the foreground until interrupted instead.`,
	Example: `  # Start the default version on port 27017
  embedmongo start

  # Start 4.0.2 on a free port and print where it listens
  embedmongo start --version 4.0.2 --random-port --json

  # Use a local installation
  embedmongo start --bin-dir /opt/mongodb/bin

  # Run in Docker
  embedmongo start --launcher docker --version 6.0

  # Keep the server in the foreground
  embedmongo start --wait`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

// superviseCmd is the detached child start leaves running.
var superviseCmd = &cobra.Command{
	Use:    "supervise",
	Short:  "Run a server until stopped (used by start)",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runSupervise,
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(superviseCmd)

	for _, cmd := range []*cobra.Command{startCmd, superviseCmd} {
		fs := cmd.Flags()
		addServerFlags(fs)
		addOutputFlags(fs)
		addBinaryFlags(fs)
		addDistributionFlags(fs)
		boolFlag(fs, "wait", "wait", false, "Run in the foreground until interrupted",
			func(c *cliconfig.Config) *bool { return &c.Wait })
	}
	superviseCmd.Flags().IntVar(&superviseWatchPID, "watch-pid", 0, "Stop the server once this process is gone")
}

func runStart(cmd *cobra.Command, _ []string) error {
	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	if sess.skipped() {
		return nil
	}

	ctx := cmd.Context()
	if !sess.cfg.Wait {
		return startDetached(ctx, cmd, sess)
	}

	sup, inst, err := startServer(ctx, sess, mongod.FailsafeOptions{})
	if err != nil {
		return err
	}
	if err := printStarted(inst.Record(sess.cfg.Project, os.Getpid(), "")); err != nil {
		_ = sup.Stop(context.Background())
		return err
	}
	waitErr := sup.Wait(ctx)
	return errors.Join(waitErr, sup.Stop(context.Background()))
}

func runSupervise(cmd *cobra.Command, _ []string) error {
	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	sup, _, err := startServer(ctx, sess, mongod.FailsafeOptions{WatchPID: superviseWatchPID})
	if err != nil {
		return err
	}
	waitErr := sup.Wait(ctx)
	return errors.Join(waitErr, sup.Stop(context.Background()))
}

// startServer resolves, launches and publishes the server in this process.
func startServer(ctx context.Context, sess *session, fo mongod.FailsafeOptions) (*mongod.Supervisor, *mongod.Instance, error) {
	cfg := sess.cfg
	desc := sess.descriptor()

	launcher, binDir, err := sess.launcher(ctx, desc)
	if err != nil {
		return nil, nil, err
	}

	mc := mongod.Config{
		Version:          desc,
		BindIP:           cfg.BindIP,
		Port:             cfg.Port,
		RandomPort:       cfg.RandomPort,
		DataDir:          cfg.DataDir,
		AuthEnabled:      cfg.AuthEnabled,
		Journal:          cfg.Journal,
		StorageEngine:    cfg.StorageEngine,
		UnixSocketPrefix: cfg.UnixSocketPrefix,
		ExtraArgs:        cfg.ExtraArgs,
		StartTimeout:     time.Duration(cfg.StartTimeout) * time.Second,
	}
	if cfg.BindIP == "" && cfg.Launcher == cliconfig.LauncherExec {
		ipv6, err := mongod.LocalhostIsIPv6()
		if err != nil {
			sess.log.Debug("could not resolve localhost", "error", err)
		}
		mc.IPv6 = ipv6
	}

	sup := mongod.New(mongod.Options{
		Config:   mc,
		Launcher: launcher,
		Sinks:    sess.sinks,
		Project:  cfg.Project,
		Store:    sess.file,
		Registry: registry,
		BinDir:   binDir,
		Failsafe: fo,
		Log:      sess.log,
	})
	inst, err := sup.Start(ctx)
	if err != nil {
		return nil, nil, err
	}
	registry.Put(binDirKey, binDir)
	return sup, inst, nil
}

// startDetached re-runs this command as a supervisor process and returns
// once the supervisor has published the instance record.
func startDetached(ctx context.Context, cmd *cobra.Command, sess *session) error {
	project := sess.cfg.Project
	key := state.InstanceStoreKey(project)

	if rec, err := state.LoadInstance(ctx, sess.file, project); err == nil {
		if proc.Alive(rec.SupervisorPID) {
			return fmt.Errorf("%w (project %q, port %d, PID %d)", ErrAlreadyRunning, project, rec.Port, rec.SupervisorPID)
		}
		sess.log.Warn("removing stale instance record", "supervisorPid", rec.SupervisorPID)
		if err := sess.file.Delete(ctx, key); err != nil {
			return err
		}
	}

	logPath := paths.SupervisorLog(project)
	if err := paths.EnsureDir(paths.Runtime()); err != nil {
		return fmt.Errorf("create runtime directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, paths.FileMode)
	if err != nil {
		return fmt.Errorf("open supervisor log: %w", err)
	}
	defer logFile.Close()

	args := append([]string{superviseCmd.Name()}, forwardFlags(cmd.Flags(), "wait")...)
	args = append(args, "--watch-pid="+strconv.Itoa(os.Getppid()))

	child := exec.Command(os.Args[0], args...)
	child.Stdout = logFile
	child.Stderr = logFile
	child.SysProcAttr = proc.DetachAttr()
	if err := child.Start(); err != nil {
		return fmt.Errorf("%w: start supervisor: %w", mongod.ErrStart, err)
	}
	sess.log.Debug("supervisor started", "pid", child.Process.Pid, "log", logPath)

	exited := make(chan error, 1)
	go func() { exited <- child.Wait() }()

	timeout := time.Duration(sess.cfg.StartTimeout)*time.Second + supervisorGrace
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type published struct {
		raw string
		err error
	}
	got := make(chan published, 1)
	go func() {
		raw, err := sess.file.Await(actx, key)
		got <- published{raw, err}
	}()

	select {
	case err := <-exited:
		return fmt.Errorf("%w: supervisor exited: %v (see %s)", mongod.ErrStart, err, logPath)
	case p := <-got:
		if p.err != nil {
			_ = proc.Kill(child.Process.Pid)
			return fmt.Errorf("%w: waiting for supervisor: %w (see %s)", mongod.ErrStart, p.err, logPath)
		}
		rec, err := state.DecodeInstance(p.raw)
		if err != nil {
			return err
		}
		return printStarted(rec)
	}
}

func printStarted(rec *state.InstanceRecord) error {
	return printResult(rec, func() error {
		fmt.Printf("mongod %s running at %s (project %s, PID %d)\n", rec.Version, rec.Address(), rec.Project, rec.SupervisorPID)
		return nil
	})
}
