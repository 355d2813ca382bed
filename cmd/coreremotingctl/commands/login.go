package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreremoting/coreremoting/cmd/coreremotingctl/cmdutil"
	"github.com/coreremoting/coreremoting/internal/cli/credentials"
	"github.com/coreremoting/coreremoting/internal/cli/prompt"
)

var (
	loginAddress  string
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Cache credentials for a CoreRemoting channel",
	Long: `Cache a username/password credential pair for a channel address so
that "coreremotingctl call" and "coreremotingctl ping" can present it
during the auth phase of the handshake without prompting every time.

coreremotingctl never contacts the server during login: the credentials
are validated the first time they're presented, on the next call.

Examples:
  coreremotingctl login --address localhost:4050 --username admin
  coreremotingctl login -u admin -p secret`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginAddress, "address", "", "Channel address, host:port (required on first login)")
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username credential")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password credential")
}

func runLogin(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	address := loginAddress
	if address == "" {
		if ctx, err := store.GetCurrentContext(); err == nil {
			address = ctx.Address
		}
	}
	if address == "" {
		return fmt.Errorf("no channel address specified and no saved context found\n\n" +
			"Specify the channel address:\n" +
			"  coreremotingctl login --address host:port")
	}

	username := loginUsername
	if username == "" {
		username, err = prompt.InputRequired("Username")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	password := loginPassword
	if password == "" {
		password, err = prompt.Password("Password")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	contextName := store.GetCurrentContextName()
	if contextName == "" {
		contextName = credentials.DefaultContextName
	}

	ctx := &credentials.Context{
		Address: address,
		Credentials: []credentials.Credential{
			{Name: "username", Value: username},
			{Name: "password", Value: password},
		},
	}

	if err := store.SetContext(contextName, ctx); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	if err := store.UseContext(contextName); err != nil {
		return fmt.Errorf("failed to set current context: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Credentials cached for %s (context %q)", address, contextName))
	return nil
}
