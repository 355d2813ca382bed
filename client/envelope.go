package client

import (
	"context"
	"fmt"

	"github.com/coreremoting/coreremoting/corecrypto"
	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/wire"
)

// sendEnvelope mirrors session.Session.SendEnvelope from the client's side
// of the wire: it signs with the client's own key and encrypts under the
// shared secret once the handshake has negotiated one.
func (s *Session) sendEnvelope(ctx context.Context, env *wire.Envelope) error {
	s.mu.RLock()
	secret := s.sharedSecret
	clientKey := s.cfg.ClientKey
	t := s.transport
	s.mu.RUnlock()

	if len(secret) > 0 {
		if clientKey == nil {
			return faults.New(faults.KindInternalError, "encrypted session has no client signing key configured")
		}
		payload, iv, err := corecrypto.SecuredPayload(secret, clientKey, env.Payload)
		if err != nil {
			return faults.New(faults.KindCryptoFailed, fmt.Sprintf("secure payload: %v", err))
		}
		env.Payload = payload
		env.IV = iv
	}
	return t.Send(ctx, env.Encode())
}

// receiveEnvelope mirrors session.Session.ReceiveEnvelope, verifying
// against the server's public key learned during hello (spec §4.3/§4.7).
func (s *Session) receiveEnvelope(ctx context.Context) (*wire.Envelope, error) {
	s.mu.RLock()
	secret := s.sharedSecret
	serverPubKey := s.serverPublicKey
	t := s.transport
	s.mu.RUnlock()

	data, err := t.Receive(ctx)
	if err != nil {
		return nil, err
	}
	env, err := wire.Decode(data)
	if err != nil {
		return nil, faults.New(faults.KindProtocolViolation, err.Error())
	}

	encrypted := len(secret) > 0
	if encrypted != (len(env.IV) > 0) {
		return nil, faults.New(faults.KindProtocolViolation, "envelope encryption mode does not match session mode")
	}
	if !encrypted {
		return env, nil
	}

	if serverPubKey == nil {
		return nil, faults.New(faults.KindInternalError, "encrypted session has no server public key configured")
	}
	plaintext, err := corecrypto.OpenSecuredPayload(secret, serverPubKey, env.Payload, env.IV)
	if err != nil {
		return nil, faults.New(faults.KindCryptoFailed, fmt.Sprintf("open payload: %v", err))
	}
	env.Payload = plaintext
	env.IV = nil
	return env, nil
}
