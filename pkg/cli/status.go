package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/embedmongo/internal/proc"
	"github.com/getmockd/embedmongo/pkg/cli/internal/output"
	"github.com/getmockd/embedmongo/pkg/mongod"
	"github.com/getmockd/embedmongo/pkg/ports"
	"github.com/getmockd/embedmongo/pkg/state"
)

// StatusOutput is the JSON result of status.
type StatusOutput struct {
	*state.InstanceRecord
	Running bool   `json:"running"`
	URI     string `json:"uri"`
	Uptime  string `json:"uptime,omitempty"`
}

// PortOutput is the JSON result of port.
type PortOutput struct {
	Project string `json:"project"`
	Port    int    `json:"port"`
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the server published for the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		rec, err := state.LoadInstance(cmd.Context(), sess.store, sess.cfg.Project)
		if errors.Is(err, state.ErrNotFound) {
			return fmt.Errorf("%w (project %q)", ErrNoInstance, sess.cfg.Project)
		}
		if err != nil {
			return err
		}

		out := StatusOutput{
			InstanceRecord: rec,
			Running:        rec.SupervisorPID > 0 && proc.Alive(rec.SupervisorPID),
			URI:            mongod.URI(rec.Host, rec.Port),
		}
		if !rec.StartedAt.IsZero() {
			out.Uptime = time.Since(rec.StartedAt).Round(time.Second).String()
		}
		return printResult(out, func() error {
			status := "running"
			if !out.Running {
				status = "not running (stale record)"
			}
			return output.Fields(
				output.Field{Label: "Project", Value: rec.Project},
				output.Field{Label: "Status", Value: status},
				output.Field{Label: "Version", Value: rec.Version},
				output.Field{Label: "Address", Value: rec.Address()},
				output.Field{Label: "URI", Value: out.URI},
				output.Field{Label: "Launcher", Value: rec.Launcher},
				output.Field{Label: "Supervisor PID", Value: rec.SupervisorPID},
				output.Field{Label: "Server PID", Value: pidText(rec.ServerPID)},
				output.Field{Label: "Container", Value: rec.ContainerID},
				output.Field{Label: "Data", Value: rec.DataDir},
				output.Field{Label: "Uptime", Value: out.Uptime},
				output.Field{Label: "ID", Value: rec.ID},
			)
		})
	},
}

// portCmd represents the port command
var portCmd = &cobra.Command{
	Use:   "port",
	Short: "Print the port published for the project",
	Long: `Print the port published for the project.

The port is read from the state file, or from the EMBEDMONGO_PORT_<PROJECT>
environment variable, so processes forked by a build can find the server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		port, err := lookupPort(cmd, sess)
		if err != nil {
			return err
		}
		return printResult(PortOutput{Project: sess.cfg.Project, Port: port}, func() error {
			fmt.Println(port)
			return nil
		})
	},
}

// envCmd represents the env command
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the connection variables of the project",
	Long: `Print the variables run passes to its command, one NAME=value per line,
for the server published for the project.`,
	Example: `  # Load into a POSIX shell
  eval "$(embedmongo env | sed 's/^/export /')"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		ep, err := sess.endpoint(cmd.Context())
		if err != nil {
			return err
		}
		key, err := ports.Key(sess.cfg.Project)
		if err != nil {
			return err
		}
		p := strconv.Itoa(ep.Port)
		vars := [][2]string{
			{envPort, p},
			{state.EnvName(key), p},
			{envURI, mongod.URI(ep.Host, ep.Port)},
		}
		if jsonOutput {
			m := make(map[string]string, len(vars))
			for _, v := range vars {
				m[v[0]] = v[1]
			}
			return output.JSON(m)
		}
		for _, v := range vars {
			fmt.Printf("%s=%s\n", v[0], v[1])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(portCmd)
	rootCmd.AddCommand(envCmd)
}

func lookupPort(cmd *cobra.Command, sess *session) (int, error) {
	port, err := ports.Lookup(cmd.Context(), sess.store, sess.cfg.Project)
	if errors.Is(err, state.ErrNotFound) {
		return 0, fmt.Errorf("%w (project %q)", ErrNoInstance, sess.cfg.Project)
	}
	return port, err
}

func pidText(pid int) string {
	if pid <= 0 {
		return ""
	}
	return strconv.Itoa(pid)
}
