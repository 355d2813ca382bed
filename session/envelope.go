package session

import (
	"context"
	"fmt"

	"github.com/coreremoting/coreremoting/corecrypto"
	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/wire"
)

// SendEnvelope encrypts and signs env's payload when the session
// negotiated a shared secret during handshake, then writes the encoded
// envelope to the transport. Plaintext sessions send env unmodified (spec
// §4.3's disabled-encryption mode). Callers own correlation id assignment.
func (s *Session) SendEnvelope(ctx context.Context, env *wire.Envelope) error {
	if len(s.SharedSecret) > 0 {
		if s.SigningKey == nil {
			return faults.New(faults.KindInternalError, "encrypted session has no signing key configured")
		}
		payload, iv, err := corecrypto.SecuredPayload(s.SharedSecret, s.SigningKey, env.Payload)
		if err != nil {
			return faults.New(faults.KindCryptoFailed, fmt.Sprintf("secure payload: %v", err))
		}
		env.Payload = payload
		env.IV = iv
	}
	return s.Transport.Send(ctx, env.Encode())
}

// ReceiveEnvelope reads and decodes the next frame, opening and verifying
// its payload against the remembered client public key when the session
// is encrypted (spec §4.3/§4.7). Mode mismatches -- an IV present on a
// plaintext session or absent on an encrypted one -- are a
// protocol_violation (Open Question 2).
func (s *Session) ReceiveEnvelope(ctx context.Context) (*wire.Envelope, error) {
	data, err := s.Transport.Receive(ctx)
	if err != nil {
		return nil, err
	}
	env, err := wire.Decode(data)
	if err != nil {
		return nil, faults.New(faults.KindProtocolViolation, err.Error())
	}

	encrypted := len(s.SharedSecret) > 0
	if encrypted != (len(env.IV) > 0) {
		return nil, faults.New(faults.KindProtocolViolation, "envelope encryption mode does not match session mode")
	}
	if !encrypted {
		return env, nil
	}

	if s.ClientPublicKey == nil {
		return nil, faults.New(faults.KindInternalError, "encrypted session has no client public key configured")
	}
	plaintext, err := corecrypto.OpenSecuredPayload(s.SharedSecret, s.ClientPublicKey, env.Payload, env.IV)
	if err != nil {
		return nil, faults.New(faults.KindCryptoFailed, fmt.Sprintf("open payload: %v", err))
	}
	env.Payload = plaintext
	env.IV = nil
	return env, nil
}
