package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/embedmongo/internal/proc"
	"github.com/getmockd/embedmongo/pkg/cli/internal/output"
	"github.com/getmockd/embedmongo/pkg/mongod"
	"github.com/getmockd/embedmongo/pkg/ports"
	"github.com/getmockd/embedmongo/pkg/state"
)

var (
	stopTimeout int
	stopForce   bool
)

// StopOutput is the JSON result of stop.
type StopOutput struct {
	Project string `json:"project"`
	ID      string `json:"id"`
	Address string `json:"address"`
	Stopped bool   `json:"stopped"`
	Stale   bool   `json:"stale,omitempty"`
}

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the server started by start",
	Long: `Stop the server published for the project.

The supervisor left running by start is asked to shut down, which stops the
server and withdraws its port and instance record. A supervisor that does not
exit within --timeout is killed, and whatever it left behind is cleaned up.`,
	Example: `  # Stop the server of the current project
  embedmongo stop

  # Stop another project's server
  embedmongo stop --project billing

  # Kill immediately
  embedmongo stop --force`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.Flags().IntVar(&stopTimeout, "timeout", 30, "Seconds to wait for a graceful shutdown")
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Kill the supervisor and server without a graceful shutdown")
}

func runStop(cmd *cobra.Command, _ []string) error {
	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	if sess.skipped() {
		return nil
	}

	rec, err := state.LoadInstance(cmd.Context(), sess.file, sess.cfg.Project)
	if errors.Is(err, state.ErrNotFound) {
		return fmt.Errorf("%w (project %q)", ErrNoInstance, sess.cfg.Project)
	}
	if err != nil {
		return err
	}

	out, err := stopRecord(cmd.Context(), sess, rec, time.Duration(stopTimeout)*time.Second, stopForce)
	if err != nil {
		return err
	}
	return printResult(out, func() error {
		if out.Stale {
			fmt.Printf("Removed stale instance record for %s (%s)\n", out.Project, out.Address)
			return nil
		}
		fmt.Printf("mongod at %s stopped\n", out.Address)
		return nil
	})
}

// stopRecord ends the supervisor of rec, then removes what a supervisor
// that did not exit cleanly left behind.
func stopRecord(ctx context.Context, sess *session, rec *state.InstanceRecord, grace time.Duration, force bool) (*StopOutput, error) {
	out := &StopOutput{Project: rec.Project, ID: rec.ID, Address: rec.Address()}

	supervised := rec.SupervisorPID > 0 && rec.SupervisorPID != os.Getpid() && proc.Alive(rec.SupervisorPID)
	if !supervised {
		out.Stale = true
	}

	if supervised {
		sess.log.Info("stopping supervisor", "pid", rec.SupervisorPID, "signal", stopSignalName(force))
		var err error
		if force {
			err = proc.Kill(rec.SupervisorPID)
		} else {
			err = proc.Stop(rec.SupervisorPID, grace)
		}
		if err != nil {
			return nil, fmt.Errorf("stop supervisor %d: %w", rec.SupervisorPID, err)
		}
	}

	// A clean shutdown already withdrew the record.
	if _, err := state.LoadInstance(ctx, sess.file, rec.Project); errors.Is(err, state.ErrNotFound) {
		out.Stopped = true
		return out, nil
	}

	if rec.ServerPID > 0 && proc.Alive(rec.ServerPID) {
		sess.log.Warn("server outlived its supervisor, killing it", "pid", rec.ServerPID)
		if err := proc.Stop(rec.ServerPID, mongod.DefaultStopGrace); err != nil {
			return nil, fmt.Errorf("stop mongod %d: %w", rec.ServerPID, err)
		}
	}
	if rec.ContainerID != "" {
		output.Warn("container %s is left to the container runtime's reaper", rec.ContainerID)
	}
	if err := state.RemoveInstance(ctx, sess.file, rec.Project); err != nil {
		return nil, err
	}
	if err := ports.Unpublish(ctx, sess.file, rec.Project); err != nil {
		return nil, err
	}
	out.Stopped = true
	return out, nil
}

func stopSignalName(force bool) string {
	if force {
		return proc.KillName()
	}
	return proc.TermName()
}
