package commands

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/coreremoting/coreremoting/internal/cli/output"
	"github.com/coreremoting/coreremoting/pkg/config"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Check whether a CoreRemoting server is reachable on its configured
channel by attempting a TCP dial.

Examples:
  # Check status using the default/explicit config file
  coreremotingd status
  coreremotingd status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus reports whether the configured channel is reachable.
type ServerStatus struct {
	Reachable bool   `json:"reachable" yaml:"reachable"`
	Address   string `json:"address" yaml:"address"`
	Message   string `json:"message" yaml:"message"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	status := ServerStatus{Address: addr}

	conn, dialErr := net.DialTimeout("tcp", addr, 2*time.Second)
	if dialErr == nil {
		_ = conn.Close()
		status.Reachable = true
		status.Message = "Server is reachable"
	} else {
		status.Message = fmt.Sprintf("Server is not reachable: %v", dialErr)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

func printStatusTable(status ServerStatus) {
	fmt.Println()
	fmt.Println("CoreRemoting Server Status")
	fmt.Println("==========================")
	fmt.Println()
	fmt.Printf("  Address:    %s\n", status.Address)
	if status.Reachable {
		fmt.Printf("  Status:     \033[32m● Reachable\033[0m\n")
	} else {
		fmt.Printf("  Status:     \033[31m○ Unreachable\033[0m\n")
	}
	fmt.Println()
	fmt.Printf("  %s\n", status.Message)
	fmt.Println()
}
