package commands

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/coreremoting/coreremoting/client"
	"github.com/coreremoting/coreremoting/internal/cli/credentials"
	"github.com/coreremoting/coreremoting/pkg/config"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/protocol/xdrcodec"
	"github.com/coreremoting/coreremoting/transport"
)

// dialSession resolves the channel address and cached credentials from
// the current context (falling back to cfg.Client when no context has
// been logged into) and returns a connected client.Session. The caller
// must Disconnect it.
func dialSession(ctx context.Context, cfg *config.Config) (*client.Session, error) {
	address := fmt.Sprintf("%s:%d", cfg.Client.Host, cfg.Client.Port)
	var creds []protocol.Credential

	store, err := credentials.NewStore()
	if err == nil {
		if cctx, err := store.GetCurrentContext(); err == nil {
			if cctx.Address != "" {
				address = cctx.Address
			}
			for _, c := range cctx.Credentials {
				creds = append(creds, protocol.Credential{Name: c.Name, Value: c.Value})
			}
		}
	}

	sess := client.New(client.Config{
		Dial: func(ctx context.Context) (transport.Transport, error) {
			conn, err := net.DialTimeout("tcp", address, time.Duration(cfg.Client.ConnectionTimeoutSeconds)*time.Second)
			if err != nil {
				return nil, err
			}
			// Reuses the server's frame-size bound; the client config
			// carries no separate one since a session only ever talks to
			// one deployment's configured limit.
			return transport.NewStreamTransport(conn, uint32(cfg.Server.MaxFrameBytes)), nil
		},
		Serializer:        xdrcodec.New(),
		RequestEncryption: cfg.Crypto.MessageEncryption,
		Credentials:       creds,
		ConnectionTimeout: time.Duration(cfg.Client.ConnectionTimeoutSeconds) * time.Second,
		InvocationTimeout: time.Duration(cfg.Client.InvocationTimeoutSeconds) * time.Second,
		AutoReconnect:     cfg.Client.AutoReconnect,
	})

	if err := sess.Connect(ctx, nil); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", address, err)
	}
	return sess, nil
}
