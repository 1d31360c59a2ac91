package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/getmockd/embedmongo/pkg/cli/internal/output"
	"github.com/getmockd/embedmongo/pkg/version"
)

// VersionOutput represents JSON output format
type VersionOutput struct {
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	Date          string `json:"date"`
	Go            string `json:"go"`
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	KnownReleases int    `json:"knownReleases"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show embedmongo version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := Version
		commit := Commit
		date := BuildDate

		if info, ok := debug.ReadBuildInfo(); ok {
			if v == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
				v = info.Main.Version
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					if commit == "none" {
						commit = setting.Value
					}
				case "vcs.time":
					if date == "unknown" {
						date = setting.Value
					}
				case "vcs.modified":
					if setting.Value == "true" {
						commit += "-dirty"
					}
				}
			}
		}

		out := VersionOutput{
			Version:       v,
			Commit:        commit,
			Date:          date,
			Go:            runtime.Version(),
			OS:            runtime.GOOS,
			Arch:          runtime.GOARCH,
			KnownReleases: len(version.Known()),
		}

		if jsonOutput {
			return output.JSON(out)
		}

		if len(v) > 0 && v[0] != 'v' && v != "dev" && v != "(devel)" {
			v = "v" + v
		}
		fmt.Printf("embedmongo %s (%s, %s)\n", v, out.Commit, out.Date)
		fmt.Printf("%s %s/%s, %d known MongoDB releases\n", out.Go, out.OS, out.Arch, out.KnownReleases)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
