package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/embedmongo/internal/proc"
	"github.com/getmockd/embedmongo/pkg/cliconfig"
	"github.com/getmockd/embedmongo/pkg/distribution"
	"github.com/getmockd/embedmongo/pkg/ports"
	"github.com/getmockd/embedmongo/pkg/scripts"
	"github.com/getmockd/embedmongo/pkg/state"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common setup issues and validate configuration",
	Long: `Diagnose common setup issues and validate configuration.

doctor loads the configuration the other commands would use and checks the
port, the MongoDB executables, the distribution download and the state file.`,
	Example: `  # Run all checks with defaults
  embedmongo doctor

  # Check a specific version and config file
  embedmongo doctor --config ci.yaml --version 4.0.2`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	fs := doctorCmd.Flags()
	addServerFlags(fs)
	addBinaryFlags(fs)
	addDistributionFlags(fs)
	stringFlag(fs, "mongoimport-bin", "mongoimportBin", "", "mongoimport executable (default: from --bin-dir or PATH)",
		func(c *cliconfig.Config) *string { return &c.ImportBin })
	stringFlag(fs, "shell-bin", "scripts.shellBin", "", "mongo or mongosh executable for the shell evaluator",
		func(c *cliconfig.Config) *string { return &c.Scripts.ShellBin })
}

// doctorCheck holds the result of a single doctor check.
type doctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "fail", "info"
	Detail string `json:"detail"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	var checks []doctorCheck
	allPassed := true
	add := func(name, status, detail string) {
		if status == "fail" {
			allPassed = false
		}
		checks = append(checks, doctorCheck{Name: name, Status: status, Detail: detail})
	}

	sess, err := newSession(cmd)
	if err != nil {
		add("config", "fail", err.Error())
		return printDoctor(checks, allPassed)
	}
	defer sess.Close()
	cfg := sess.cfg

	if found := configFiles(); len(found) > 0 {
		add("config", "ok", strings.Join(found, ", "))
	} else {
		add("config", "info", "no config file, using flags, environment and defaults")
	}

	desc := sess.descriptor()
	if desc.Known() {
		add("version", "ok", desc.Name()+" ("+desc.Features().String()+")")
	} else {
		add("version", "info", fmt.Sprintf("%q is not a known release; it will be downloaded by name", cfg.Version))
	}

	if cfg.RandomPort {
		add("port", "info", "allocated at start")
	} else if err := ports.Check(cfg.Port); err != nil {
		add("port", "fail", fmt.Sprintf("%d: %v", cfg.Port, err))
	} else {
		add("port", "ok", fmt.Sprintf("%d available", cfg.Port))
	}

	binDir := cfg.BinDir
	switch {
	case cfg.Launcher == cliconfig.LauncherDocker:
		image := cfg.Image
		if image == "" {
			image = "mongo:" + desc.DownloadPath()
		}
		add("mongod", "info", "runs in Docker image "+image)
	case cfg.MongodBin != "" || cfg.BinDir != "":
		bin := cfg.MongodBin
		if bin == "" {
			bin = filepath.Join(cfg.BinDir, distribution.BinName("mongod"))
		}
		if fi, err := os.Stat(bin); err != nil || fi.IsDir() {
			add("mongod", "fail", bin+" not found")
		} else {
			add("mongod", "ok", bin)
		}
	default:
		dist, err := distribution.Resolve(desc, distribution.Options{
			BaseURL:  cfg.DownloadPath,
			Distro:   cfg.Distro,
			Platform: distribution.Current(),
		})
		if err != nil {
			add("mongod", "fail", err.Error())
			break
		}
		cached := filepath.Join(cfg.CacheDir, dist.Name(), "bin")
		if _, err := os.Stat(filepath.Join(cached, distribution.BinName("mongod"))); err == nil {
			binDir = cached
			add("mongod", "ok", "cached in "+cached)
		} else {
			add("mongod", "info", "will download "+dist.URL)
		}
	}

	add(toolCheck("mongoimport", tool(cfg.ImportBin, binDir, "mongoimport")))

	shell := cfg.Scripts.ShellBin
	if shell == "" {
		shell = scripts.FindShell(binDir)
	}
	if shell == "" {
		add("shell", "info", "no mongo or mongosh found; scripts need 3.6 to 4.2 servers")
	} else {
		add("shell", "ok", shell)
	}

	rec, err := state.LoadInstance(cmd.Context(), sess.file, cfg.Project)
	switch {
	case err == nil && proc.Alive(rec.SupervisorPID):
		add("instance", "ok", fmt.Sprintf("running at %s (PID %d)", rec.Address(), rec.SupervisorPID))
	case err == nil:
		add("instance", "info", fmt.Sprintf("stale record for %s; stop removes it", rec.Address()))
	case errors.Is(err, state.ErrNotFound):
		add("instance", "info", "none running for project "+cfg.Project)
	default:
		add("state_file", "fail", err.Error())
	}

	return printDoctor(checks, allPassed)
}

// toolCheck reports whether a MongoDB tool resolved to an executable.
func toolCheck(name, path string) (string, string, string) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return name, "ok", path
		}
	}
	return name, "info", "not found; needed by the " + strings.TrimPrefix(name, "mongo") + " phase"
}

// configFiles lists the config files the other commands would read.
func configFiles() []string {
	var found []string
	if p := cliconfig.FindGlobalConfig(); p != "" {
		found = append(found, p)
	}
	if configPath != "" {
		return append(found, configPath)
	}
	if p := os.Getenv(cliconfig.EnvConfig); p != "" {
		return append(found, p)
	}
	if p, err := cliconfig.FindLocalConfig(); err == nil && p != "" {
		found = append(found, p)
	}
	return found
}

func printDoctor(checks []doctorCheck, allPassed bool) error {
	return printResult(map[string]any{"checks": checks, "allPassed": allPassed}, func() error {
		fmt.Println("embedmongo doctor")
		fmt.Println("=================")
		fmt.Println()
		for _, c := range checks {
			switch c.Status {
			case "ok":
				fmt.Printf("  ✓ %s: %s\n", c.Name, c.Detail)
			case "fail":
				fmt.Printf("  ✗ %s: %s\n", c.Name, c.Detail)
			default:
				fmt.Printf("  • %s: %s\n", c.Name, c.Detail)
			}
		}
		fmt.Println()
		if allPassed {
			fmt.Println("All checks passed!")
		} else {
			fmt.Println("Some checks failed. See above for details.")
		}
		return nil
	})
}
