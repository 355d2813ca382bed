package commands

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"

	"github.com/coreremoting/coreremoting/pkg/config"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/protocol/xdrcodec"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Round-trip the built-in Echo service",
	Long: `Dial the configured channel, authenticate, and call the daemon's
built-in Echo.Say method, reporting the round-trip latency.

This exercises the full handshake/auth/dispatch path end-to-end and is
the quickest way to check that a coreremotingd instance is actually
usable, as opposed to merely accepting TCP connections.

Examples:
  coreremotingctl ping`,
	RunE: runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
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
	blob, err := protocol.EncodeValue(codec, "ping")
	if err != nil {
		return err
	}

	start := time.Now()
	_, result, err := sess.Invoke(ctx, "Echo", "Say", nil, []protocol.ParamMsg{
		{Name: "message", TypeName: "string", ValueBlob: blob},
	})
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	reply := ""
	if got, err := protocol.DecodeValue(codec, result.ReturnBlob, reflect.TypeOf("")); err == nil {
		reply = got.Interface().(string)
	}

	fmt.Printf("pong: %q (%s)\n", reply, elapsed)
	return nil
}
