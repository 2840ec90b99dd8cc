// Command goshawk is the network video recorder control binary: it runs the
// recording server and carries the offline administration subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/commands"
)

// Populated by the release build via -ldflags.
var version, commit, date = "dev", "none", "unknown"

func main() {
	commands.Version, commands.Commit, commands.BuildDate = version, commit, date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
