// filament is the command-line interface for running file-based matching
// passes and converting run reports.
package main

import (
	"os"

	"github.com/filamentproject/filament/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
	os.Exit(cli.Execute())
}
