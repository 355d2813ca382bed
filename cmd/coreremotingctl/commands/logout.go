package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreremoting/coreremoting/cmd/coreremotingctl/cmdutil"
	"github.com/coreremoting/coreremoting/internal/cli/credentials"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear cached credentials",
	Long: `Clear the cached credential list for the current context.

This keeps the channel address so a later login can reuse it.

Examples:
  coreremotingctl logout`,
	RunE: runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	contextName := store.GetCurrentContextName()
	if contextName == "" {
		return fmt.Errorf("not logged in - no current context")
	}

	if err := store.ClearCurrentContext(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Cleared credentials for context %q", contextName))
	return nil
}
