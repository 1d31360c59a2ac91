package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/embedmongo/pkg/cli/internal/output"
)

var configShowSources bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the effective configuration",
	Long: `Display the configuration the other commands would use, after config
files, EMBEDMONGO_* environment variables and flags have been merged.

With --sources, every value that did not come from the defaults is listed with
where it came from.`,
	Example: `  # Show the effective configuration
  embedmongo config

  # Show where values came from
  embedmongo config --sources

  # Output as JSON
  embedmongo config --json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)

	fs := configCmd.Flags()
	fs.BoolVar(&configShowSources, "sources", false, "List where each value came from")
	addServerFlags(fs)
	addOutputFlags(fs)
	addBinaryFlags(fs)
	addDistributionFlags(fs)
	addImportFlags(fs)
	addScriptsFlags(fs)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	shown := *cfg
	if shown.Proxy.Password != "" {
		shown.Proxy.Password = "********"
	}

	if configShowSources {
		keys := make([]string, 0, len(cfg.Sources))
		for k := range cfg.Sources {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return printResult(cfg.Sources, func() error {
			w := output.Table()
			fmt.Fprintln(w, "KEY\tSOURCE")
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\n", k, cfg.Sources[k])
			}
			return w.Flush()
		})
	}

	return printResult(&shown, func() error {
		data, err := yaml.Marshal(&shown)
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		fmt.Println("# Effective configuration (" + sourceSummary() + ")")
		fmt.Print(string(data))
		return nil
	})
}

// sourceSummary names the config files that contributed values.
func sourceSummary() string {
	files := configFiles()
	if len(files) == 0 {
		return "no config file"
	}
	return strings.Join(files, ", ")
}
