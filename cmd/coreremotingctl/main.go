// Command coreremotingctl is the CoreRemoting client and configuration
// tool: it bootstraps config.yaml, caches per-channel login credentials,
// and invokes registered service methods over a client.Session.
package main

import (
	"fmt"
	"os"

	"github.com/coreremoting/coreremoting/cmd/coreremotingctl/commands"
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
