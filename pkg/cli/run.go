package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/getmockd/embedmongo/pkg/importer"
	"github.com/getmockd/embedmongo/pkg/mongod"
	"github.com/getmockd/embedmongo/pkg/ports"
	"github.com/getmockd/embedmongo/pkg/state"
)

// Variables exported to the command run by `run --`.
const (
	envPort = "EMBEDMONGO_PORT"
	envURI  = "EMBEDMONGO_URI"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [-- command [args...]]",
	Short: "Start, seed and stop a server around a command",
	Long: `Start a server, run the imports and scripts, run the given command, and
stop the server again, all in one process.

The command sees EMBEDMONGO_PORT, EMBEDMONGO_URI and the project's
EMBEDMONGO_PORT_<PROJECT> variable. Its exit status becomes the exit status
of run. Without a command, run stops the server right after seeding it, which
checks the imports and scripts.`,
	Example: `  # Test against a fresh server on a free port
  embedmongo run --random-port --import app.users=testdata/users.json -- go test ./...

  # Seed with scripts as well
  embedmongo run --version 4.0.2 --scripts-directory db/seed --database-name app -- npm test`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	fs := runCmd.Flags()
	addServerFlags(fs)
	addOutputFlags(fs)
	addBinaryFlags(fs)
	addDistributionFlags(fs)
	addImportFlags(fs)
	addScriptsFlags(fs)
}

func runRun(cmd *cobra.Command, args []string) error {
	if n := cmd.ArgsLenAtDash(); n > 0 {
		return fmt.Errorf("unexpected arguments before --: %v", args[:n])
	}

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	if sess.skipped() {
		if len(args) == 0 {
			return nil
		}
		return runChild(cmd.Context(), args, os.Environ())
	}

	if err := checkPhases(sess); err != nil {
		return err
	}
	ctx := cmd.Context()
	sup, inst, err := startServer(ctx, sess, mongod.FailsafeOptions{})
	if err != nil {
		return err
	}
	err = runPhases(ctx, sess, inst, args)
	return errors.Join(err, sup.Stop(context.Background()))
}

// checkPhases rejects import and script settings before a server starts.
func checkPhases(sess *session) error {
	cfg := sess.cfg
	if len(cfg.Imports) > 0 {
		p := &importer.Pipeline{Verify: cfg.VerifyImports, Log: sess.log}
		if _, err := p.Check(cfg.Imports, cfg.DefaultImportDatabase); err != nil {
			return err
		}
	}
	if cfg.Scripts.Directory != "" {
		return checkScripts(sess)
	}
	return nil
}

// runPhases seeds the in-process instance and runs args against it.
func runPhases(ctx context.Context, sess *session, inst *mongod.Instance, args []string) error {
	ep, err := sess.endpoint(ctx)
	if err != nil {
		return err
	}
	if err := runImports(ctx, sess, ep); err != nil {
		return err
	}
	if sess.cfg.Scripts.Directory != "" {
		if err := runScripts(ctx, sess, ep); err != nil {
			return err
		}
	}
	if len(args) == 0 {
		return nil
	}

	env, err := childEnv(sess.cfg.Project, inst)
	if err != nil {
		return err
	}
	sess.log.Info("running command", "command", args[0])
	return runChild(ctx, args, env)
}

// childEnv is the environment of the command run by `run --`.
func childEnv(project string, inst *mongod.Instance) ([]string, error) {
	key, err := ports.Key(project)
	if err != nil {
		return nil, err
	}
	_, port := inst.Endpoint()
	p := strconv.Itoa(port)
	return append(os.Environ(),
		envPort+"="+p,
		state.EnvName(key)+"="+p,
		envURI+"="+inst.URI(),
	), nil
}

// runChild runs args with the console attached. A non-zero exit status is
// returned as an *exitError.
func runChild(ctx context.Context, args, env []string) error {
	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Env = env
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	err := c.Run()
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code := ee.ExitCode()
		if code < 0 {
			code = 1
		}
		return &exitError{code: code}
	}
	return err
}
