package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/embedmongo/pkg/cliconfig"
	"github.com/getmockd/embedmongo/pkg/state"
)

var (
	// Persistent flags available to all subcommands
	configPath string
	jsonOutput bool

	// registry shares the running instance between the phases of one
	// process (run).
	registry = state.NewRegistry()

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "embedmongo",
	Short: "embedmongo runs a throwaway MongoDB server for builds and tests",
	Long: `embedmongo downloads, starts, seeds and stops a MongoDB server for the
duration of a build.

Phases run as separate commands (start, import, scripts, stop) that find each
other through a shared state file, or together in one process with run.

Configuration can be provided via flags, EMBEDMONGO_* environment variables,
or a configuration file. By default, embedmongo reads .embedmongo.yaml from
the current directory and config.yaml from the user config directory.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Main()
}

// Execute runs the root command and exits with its status.
// This is called by main.main().
func Execute() {
	os.Exit(Main())
}

// Main runs the root command and returns the process exit status. A
// command run by `run --` passes its own status through.
func Main() int {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to config file (env: "+cliconfig.EnvConfig+")")
	pf.BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
	addCommonFlags(pf)
}
