package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreremoting/coreremoting/cmd/coreremotingctl/cmdutil"
	"github.com/coreremoting/coreremoting/internal/cli/prompt"
	"github.com/coreremoting/coreremoting/pkg/config"
)

var (
	initForce          bool
	initNoninteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a CoreRemoting configuration file",
	Long: `Write a starter config.yaml that both coreremotingd and
coreremotingctl read, at $XDG_CONFIG_HOME/coreremoting/config.yaml unless
--config names a different path.

By default this walks through the channel address, port, and message
encryption interactively; --non-interactive accepts the built-in defaults
instead.

Examples:
  coreremotingctl init
  coreremotingctl init --non-interactive
  coreremotingctl init --config ./config.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	initCmd.Flags().BoolVar(&initNoninteractive, "non-interactive", false, "Accept defaults without prompting")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if config.DefaultConfigExists() && path == config.GetDefaultConfigPath() && !initForce {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.GetDefaultConfig()

	if !initNoninteractive {
		host, err := prompt.Input("Channel host", cfg.Server.Host)
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
		cfg.Server.Host = host
		cfg.Client.Host = host

		port, err := prompt.InputPort("Channel port", cfg.Server.Port)
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
		cfg.Server.Port = port
		cfg.Client.Port = port

		encrypt, err := prompt.Confirm("Enable message encryption", cfg.Crypto.MessageEncryption)
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
		cfg.Crypto.MessageEncryption = encrypt
	}

	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Configuration written to %s", path))
	return nil
}
