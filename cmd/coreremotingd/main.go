// Command coreremotingd runs a CoreRemoting server process: it loads
// configuration, wires logging/telemetry/metrics, accepts connections on
// a transport.Listener, and dispatches calls into a registry.Registry.
package main

import (
	"fmt"
	"os"

	"github.com/coreremoting/coreremoting/cmd/coreremotingd/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
