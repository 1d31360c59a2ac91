package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getmockd/embedmongo/pkg/cliconfig"
	"github.com/getmockd/embedmongo/pkg/importer"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import JSON files into the running server",
	Long: `Import JSON array files into the running server with mongoimport.

Imports come from the imports list of the config file, or from --import flags,
which replace it. A file entry that names a directory imports every .json file
in it, each into the collection named after the file. Every import is checked
before the first one starts. Imports run one after another, or all at once
with --parallel; the first failure stops the rest.`,
	Example: `  # Import into the default database, collection named after the file
  embedmongo import --default-import-database app --import testdata/users.json

  # Name database and collection explicitly
  embedmongo import --import app.users=testdata/users.json --import app.orders=testdata/orders.json

  # Import concurrently, then keep the server until interrupted
  embedmongo import --parallel --wait`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	fs := importCmd.Flags()
	addImportFlags(fs)
	addOutputFlags(fs)
	addBinaryFlags(fs)
	intFlag(fs, "port", "p", "port", 0, "Server port when no instance is published",
		func(c *cliconfig.Config) *int { return &c.Port })
	boolFlag(fs, "wait", "importWait", false, "Block until interrupted after importing",
		func(c *cliconfig.Config) *bool { return &c.ImportWait })
}

func runImport(cmd *cobra.Command, _ []string) error {
	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	if sess.skipped() {
		return nil
	}

	ctx := cmd.Context()
	ep, err := sess.endpoint(ctx)
	if err != nil {
		return err
	}
	if err := runImports(ctx, sess, ep); err != nil {
		return err
	}

	if sess.cfg.ImportWait {
		sess.log.Info("imports done; waiting until interrupted")
		waitForInterrupt(ctx)
	}
	return nil
}

// runImports runs the configured imports against ep.
func runImports(ctx context.Context, sess *session, ep endpoint) error {
	cfg := sess.cfg
	p := &importer.Pipeline{
		Launcher: &importer.MongoImportLauncher{
			Bin:     tool(cfg.ImportBin, ep.BinDir, "mongoimport"),
			Host:    ep.Host,
			Port:    ep.Port,
			Version: ep.Version,
			Sinks:   sess.sinks,
		},
		Verify: cfg.VerifyImports,
		Log:    sess.log,
	}
	return p.Run(ctx, cfg.Imports, cfg.DefaultImportDatabase, cfg.Parallel)
}

// waitForInterrupt blocks until ctx is done or the process is interrupted.
func waitForInterrupt(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}
