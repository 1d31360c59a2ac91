package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/embedmongo/pkg/paths"
)

var logsLines int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the log of the project's detached supervisor",
	Long: `Show the log of the supervisor process start leaves running.

The supervisor log holds embedmongo's own messages and, with the console
logging style, the server output. Use it when start reports that the
supervisor exited.`,
	Example: `  # Last 50 lines
  embedmongo logs

  # Everything
  embedmongo logs -n 0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path := paths.SupervisorLog(cfg.Project)
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no supervisor log for project %q at %s", cfg.Project, path)
		}
		if err != nil {
			return err
		}
		defer f.Close()
		return tail(os.Stdout, f, logsLines)
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of lines to show (0 for all)")
}

// tail copies the last n lines of r to w, or all of r when n <= 0.
func tail(w io.Writer, r io.Reader, n int) error {
	if n <= 0 {
		_, err := io.Copy(w, r)
		return err
	}
	ring := make([]string, 0, n)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return err
	}
	for _, line := range ring {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
