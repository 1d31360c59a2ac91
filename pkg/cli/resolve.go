package cli

import (
	"github.com/spf13/cobra"

	"github.com/getmockd/embedmongo/pkg/cli/internal/output"
	"github.com/getmockd/embedmongo/pkg/cliconfig"
	"github.com/getmockd/embedmongo/pkg/distribution"
	"github.com/getmockd/embedmongo/pkg/version"
)

// ResolveOutput is the JSON result of resolve.
type ResolveOutput struct {
	Version      version.Descriptor         `json:"version"`
	Distribution *distribution.Distribution `json:"distribution,omitempty"`
	Error        string                     `json:"error,omitempty"`
}

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve [version]",
	Short: "Show how a version resolves and where it downloads from",
	Long: `Show how a version string resolves: the release it names, its features,
and the archive start would download for this platform.

Without an argument the configured version is resolved. Unknown versions are
reported with a warning and downloaded by their literal name.`,
	Example: `  embedmongo resolve 4.0.2
  embedmongo resolve V3_6 --features SYNC_DELAY,STORAGE_ENGINE
  embedmongo resolve 6.0.5 --distro ubuntu2204 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	fs := resolveCmd.Flags()
	addDistributionFlags(fs)
	stringFlag(fs, "features", "features", "", "Comma-separated feature list replacing the version's defaults",
		func(c *cliconfig.Config) *string { return &c.Features })
}

func runResolve(cmd *cobra.Command, args []string) error {
	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	if len(args) == 1 {
		sess.cfg.Version = args[0]
	}
	desc := sess.descriptor()
	out := ResolveOutput{Version: desc}

	dist, err := distribution.Resolve(desc, distribution.Options{
		BaseURL:  sess.cfg.DownloadPath,
		Distro:   sess.cfg.Distro,
		Platform: distribution.Current(),
	})
	if err != nil {
		out.Error = err.Error()
	} else {
		out.Distribution = &dist
	}

	return printResult(out, func() error {
		fields := []output.Field{
			{Label: "Version", Value: desc.Name()},
			{Label: "Known", Value: desc.Known()},
			{Label: "Download path", Value: desc.DownloadPath()},
			{Label: "Features", Value: desc.Features().String()},
		}
		if out.Distribution != nil {
			fields = append(fields,
				output.Field{Label: "Platform", Value: dist.OS + "/" + dist.Arch},
				output.Field{Label: "Archive", Value: dist.Archive},
				output.Field{Label: "URL", Value: dist.URL},
			)
		} else {
			fields = append(fields, output.Field{Label: "Error", Value: out.Error})
		}
		return output.Fields(fields...)
	})
}
