package commands

import (
	"context"
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/coreremoting/coreremoting/pkg/config"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/protocol/xdrcodec"
)

var callCmd = &cobra.Command{
	Use:   "call <service> <method> [arg...]",
	Short: "Invoke a registered service method",
	Long: `Dial the configured channel, authenticate with any cached login
credentials, and invoke <method> on <service>, passing each remaining
argument as a string parameter (spec §4.8).

coreremotingctl has no compile-time knowledge of a service's real
argument types, so every argument is sent string-typed; methods taking
non-string parameters need a purpose-built client instead.

Examples:
  coreremotingctl call Echo Say "hello there"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCall,
}

func runCall(cmd *cobra.Command, args []string) error {
	serviceName, methodName, callArgs := args[0], args[1], args[2:]

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	ctx := context.Background()
	sess, err := dialSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Disconnect()

	codec := xdrcodec.New()
	params := make([]protocol.ParamMsg, len(callArgs))
	for i, a := range callArgs {
		blob, err := protocol.EncodeValue(codec, a)
		if err != nil {
			return fmt.Errorf("encode argument %d: %w", i, err)
		}
		params[i] = protocol.ParamMsg{Name: fmt.Sprintf("arg%d", i), TypeName: "string", ValueBlob: blob}
	}

	_, result, err := sess.Invoke(ctx, serviceName, methodName, nil, params)
	if err != nil {
		return fmt.Errorf("call %s.%s: %w", serviceName, methodName, err)
	}

	if result.IsReturnNull {
		fmt.Println("(null)")
		return nil
	}

	if ret, err := protocol.DecodeValue(codec, result.ReturnBlob, reflect.TypeOf("")); err == nil {
		fmt.Println(ret.Interface().(string))
		return nil
	}

	fmt.Printf("%d bytes returned\n", len(result.ReturnBlob))
	return nil
}
