// embedmongo CLI - runs a throwaway MongoDB server for builds and tests
package main

import "github.com/getmockd/embedmongo/pkg/cli"

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	cli.Execute()
}
