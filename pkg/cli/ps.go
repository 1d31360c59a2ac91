package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/embedmongo/internal/proc"
	"github.com/getmockd/embedmongo/pkg/cli/internal/output"
	"github.com/getmockd/embedmongo/pkg/state"
)

// PsEntry is one instance listed by ps.
type PsEntry struct {
	*state.InstanceRecord
	Running bool `json:"running"`
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List the instances of every project in the state file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		entries, err := listInstances(cmd, sess)
		if err != nil {
			return err
		}
		return printResult(map[string]any{"instances": entries}, func() error {
			if len(entries) == 0 {
				fmt.Println("No running embedmongo instances.")
				return nil
			}
			w := output.Table()
			fmt.Fprintln(w, "PROJECT\tVERSION\tADDRESS\tLAUNCHER\tPID\tSTATUS")
			for _, e := range entries {
				status := "running"
				if !e.Running {
					status = "stale"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", e.Project, e.Version, e.Address(), e.Launcher, e.SupervisorPID, status)
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(psCmd)
}

// listInstances decodes every instance record in the state file, sorted
// by project.
func listInstances(cmd *cobra.Command, sess *session) ([]PsEntry, error) {
	values, err := sess.file.Snapshot(cmd.Context())
	if err != nil {
		return nil, err
	}
	entries := []PsEntry{}
	for key, raw := range values {
		if !strings.HasPrefix(key, state.InstanceKey+".") {
			continue
		}
		rec, err := state.DecodeInstance(raw)
		if err != nil {
			output.Warn("skipping %s: %v", key, err)
			continue
		}
		entries = append(entries, PsEntry{InstanceRecord: rec, Running: proc.Alive(rec.SupervisorPID)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Project < entries[j].Project })
	return entries, nil
}
