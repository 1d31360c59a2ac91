package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/getmockd/embedmongo/pkg/cliconfig"
	"github.com/getmockd/embedmongo/pkg/scripts"
)

// scriptsCmd represents the scripts command
var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "Evaluate a directory of JavaScript files against the running server",
	Long: `Evaluate every file of the scripts directory against one database.

Files run in name order, each wrapped in a function so its variables stay
local. The first failing file stops the phase and its error names the file.
A scripts directory that does not exist is skipped.

Servers from 3.6 up to 4.2 evaluate scripts through the driver's eval
command; other versions need the mongo or mongosh shell, taken from
--shell-bin, the bin directory, or PATH.`,
	Example: `  # Seed the app database
  embedmongo scripts --scripts-directory db/seed --database-name app

  # Only .js files, decoded as Latin-1
  embedmongo scripts --scripts-directory db/seed --database-name app --scripts-pattern '*.js' --scripts-charset iso-8859-1`,
	Args: cobra.NoArgs,
	RunE: runScriptsCmd,
}

func init() {
	rootCmd.AddCommand(scriptsCmd)

	fs := scriptsCmd.Flags()
	addScriptsFlags(fs)
	addOutputFlags(fs)
	addBinaryFlags(fs)
	intFlag(fs, "port", "p", "port", 0, "Server port when no instance is published",
		func(c *cliconfig.Config) *int { return &c.Port })
}

func runScriptsCmd(cmd *cobra.Command, _ []string) error {
	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	if sess.skipped() {
		return nil
	}

	if err := checkScripts(sess); err != nil {
		return err
	}
	ctx := cmd.Context()
	ep, err := sess.endpoint(ctx)
	if err != nil {
		return err
	}
	return runScripts(ctx, sess, ep)
}

// checkScripts reports script settings that would fail once a server is
// reachable.
func checkScripts(sess *session) error {
	sc := sess.cfg.Scripts
	r := &scripts.Runner{Charset: sc.Charset, Pattern: sc.Pattern}
	return r.Check(sc.Database)
}

// runScripts evaluates the configured scripts directory against ep.
func runScripts(ctx context.Context, sess *session, ep endpoint) error {
	sc := sess.cfg.Scripts
	shell := sc.ShellBin
	if shell == "" {
		shell = scripts.FindShell(ep.BinDir)
	}
	ev, err := scripts.NewEvaluator(sc.Evaluator, ep.Version, shell, sess.sinks)
	if err != nil {
		return err
	}
	r := &scripts.Runner{
		Evaluator: ev,
		Charset:   sc.Charset,
		Pattern:   sc.Pattern,
		Log:       sess.log,
	}
	return r.Run(ctx, sc.Directory, scripts.Conn{
		Host:     ep.Host,
		Port:     ep.Port,
		Database: sc.Database,
		Version:  ep.Version,
	})
}
