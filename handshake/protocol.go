package handshake

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/binary"
	"fmt"

	"github.com/coreremoting/coreremoting/authprovider"
	"github.com/coreremoting/coreremoting/corecrypto"
	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/wire"
)

// encodeHelloReply frames the server's public key alongside the wrapped
// symmetric key in the hello reply's single payload field, the same
// length-prefixed-pair shape corecrypto.SecuredPayload uses for
// ciphertext+signature.
func encodeHelloReply(serverPubKey, wrappedSecret []byte) []byte {
	var buf bytes.Buffer
	writeHelloLP(&buf, serverPubKey)
	writeHelloLP(&buf, wrappedSecret)
	return buf.Bytes()
}

func decodeHelloReply(payload []byte) (serverPubKey, wrappedSecret []byte, err error) {
	r := bytes.NewReader(payload)
	if serverPubKey, err = readHelloLP(r); err != nil {
		return nil, nil, err
	}
	if wrappedSecret, err = readHelloLP(r); err != nil {
		return nil, nil, err
	}
	return serverPubKey, wrappedSecret, nil
}

func writeHelloLP(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func readHelloLP(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := r.Read(lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	out := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// sendEnvelope is the minimal transport-facing operation both client and
// server handshake drivers need -- a bare Send, since no session/crypto
// context exists yet to route through the usual session send path.
type sendEnvelope func(ctx context.Context, envelope *wire.Envelope) error
type receiveEnvelope func(ctx context.Context) (*wire.Envelope, error)

// ClientHelloResult carries what the client learns from the server's
// hello reply (spec §4.7 steps 1-2).
type ClientHelloResult struct {
	SessionID       []byte
	SharedSecret    []byte         // nil iff the session stayed plaintext
	ServerPublicKey *rsa.PublicKey // nil iff the session stayed plaintext
}

// RunClientHello performs the client side of spec §4.7 steps 1-2: send an
// unencrypted/unsigned hello carrying the RSA public key blob (or an
// empty payload for a plaintext session), then unwrap the server's reply.
func RunClientHello(ctx context.Context, send sendEnvelope, recv receiveEnvelope, clientKey *rsa.PrivateKey, wantEncryption bool) (*ClientHelloResult, error) {
	var payload []byte
	if wantEncryption {
		blob, err := corecrypto.MarshalPublicKey(&clientKey.PublicKey)
		if err != nil {
			return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("marshal public key: %v", err))
		}
		payload = blob
	}

	if err := send(ctx, &wire.Envelope{Type: wire.MessageHello, Payload: payload}); err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("send hello: %v", err))
	}

	reply, err := recv(ctx)
	if err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("receive hello ack: %v", err))
	}
	if reply.Type != wire.MessageHello {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("expected hello ack, got %q", reply.Type))
	}

	result := &ClientHelloResult{SessionID: reply.CorrelationID}
	if !wantEncryption || len(reply.Payload) == 0 {
		return result, nil
	}

	serverPubKeyBlob, wrappedSecret, err := decodeHelloReply(reply.Payload)
	if err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("decode hello reply: %v", err))
	}
	serverPubKey, err := corecrypto.ParsePublicKey(serverPubKeyBlob)
	if err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("parse server public key: %v", err))
	}
	rawSecret, err := corecrypto.UnwrapKey(clientKey, wrappedSecret)
	if err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("unwrap shared secret: %v", err))
	}
	sessionKey, err := corecrypto.DeriveSessionKey(rawSecret, result.SessionID)
	if err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("derive session key: %v", err))
	}
	result.SharedSecret = sessionKey
	result.ServerPublicKey = serverPubKey
	return result, nil
}

// ServerHelloResult carries what the server decided from a client's hello.
type ServerHelloResult struct {
	SharedSecret    []byte // nil iff plaintext
	ClientPublicKey *rsa.PublicKey
}

// RunServerHello performs the server side of spec §4.7 steps 1-2 and
// replies on send. sessionID is the freshly allocated session id, carried
// back as the reply envelope's correlation_id. serverKey signs this
// session's outbound encrypted envelopes; its public half is returned to
// the client alongside the wrapped shared secret so the client can verify
// them, and is required whenever the client's hello requests encryption.
func RunServerHello(ctx context.Context, send sendEnvelope, hello *wire.Envelope, sessionID []byte, serverKey *rsa.PrivateKey) (*ServerHelloResult, error) {
	if len(hello.Payload) == 0 {
		if err := send(ctx, &wire.Envelope{Type: wire.MessageHello, CorrelationID: sessionID}); err != nil {
			return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("send hello ack: %v", err))
		}
		return &ServerHelloResult{}, nil
	}

	if serverKey == nil {
		return nil, faults.New(faults.KindHandshakeFailed, "client requested encryption but server has no signing key configured")
	}

	clientKey, err := corecrypto.ParsePublicKey(hello.Payload)
	if err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("parse client public key: %v", err))
	}

	rawSecret, err := corecrypto.GenerateSymmetricKey()
	if err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("generate shared secret: %v", err))
	}

	wrapped, err := corecrypto.WrapKey(clientKey, rawSecret)
	if err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("wrap shared secret: %v", err))
	}

	serverPubKeyBlob, err := corecrypto.MarshalPublicKey(&serverKey.PublicKey)
	if err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("marshal server public key: %v", err))
	}

	payload := encodeHelloReply(serverPubKeyBlob, wrapped)
	if err := send(ctx, &wire.Envelope{Type: wire.MessageHello, CorrelationID: sessionID, Payload: payload}); err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("send hello ack: %v", err))
	}

	sessionKey, err := corecrypto.DeriveSessionKey(rawSecret, sessionID)
	if err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("derive session key: %v", err))
	}

	return &ServerHelloResult{SharedSecret: sessionKey, ClientPublicKey: clientKey}, nil
}

// RunClientAuth performs the client side of spec §4.7 step 3, sending a
// credential list and returning the server's decoded auth_response.
// send/recv are supplied by the caller since whether the envelope is
// encrypted depends on session state the handshake package doesn't own.
func RunClientAuth(ctx context.Context, send sendEnvelope, recv receiveEnvelope, serializer protocol.Serializer, creds []protocol.Credential) (*protocol.AuthResponseMessage, error) {
	msg := protocol.AuthMessage{Credentials: creds}
	payload, err := serializer.Serialize(&msg)
	if err != nil {
		return nil, faults.New(faults.KindSerializationFailed, fmt.Sprintf("serialize auth message: %v", err))
	}

	if err := send(ctx, &wire.Envelope{Type: wire.MessageAuth, Payload: payload}); err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("send auth: %v", err))
	}

	reply, err := recv(ctx)
	if err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("receive auth_response: %v", err))
	}
	if reply.Type == wire.MessageError {
		return nil, faults.New(faults.KindAuthFailed, "server rejected authentication")
	}
	if reply.Type != wire.MessageAuthResponse {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("expected auth_response, got %q", reply.Type))
	}

	var resp protocol.AuthResponseMessage
	if err := serializer.Deserialize(reply.Payload, &resp); err != nil {
		return nil, faults.New(faults.KindSerializationFailed, fmt.Sprintf("deserialize auth_response: %v", err))
	}
	if !resp.IsAuthenticated {
		return nil, faults.New(faults.KindAuthFailed, "authentication rejected")
	}
	return &resp, nil
}

// RunServerAuth performs the server side of spec §4.7 step 3: decode the
// client's credentials, validate them through provider, and reply with
// auth_response (or an error envelope on failure).
func RunServerAuth(ctx context.Context, send sendEnvelope, authEnvelope *wire.Envelope, serializer protocol.Serializer, provider authprovider.Provider) (*authprovider.Identity, error) {
	var msg protocol.AuthMessage
	if err := serializer.Deserialize(authEnvelope.Payload, &msg); err != nil {
		_ = send(ctx, &wire.Envelope{Type: wire.MessageError, Error: true})
		return nil, faults.New(faults.KindSerializationFailed, fmt.Sprintf("deserialize auth message: %v", err))
	}

	creds := make([]authprovider.Credential, 0, len(msg.Credentials))
	for _, c := range msg.Credentials {
		creds = append(creds, authprovider.Credential{Name: c.Name, Value: c.Value})
	}

	identity, err := provider.Authenticate(ctx, creds)
	if err != nil {
		_ = send(ctx, &wire.Envelope{Type: wire.MessageError, Error: true})
		return nil, faults.New(faults.KindAuthFailed, err.Error())
	}

	resp := protocol.AuthResponseMessage{
		IsAuthenticated:    true,
		Name:               identity.Name,
		Domain:             identity.Domain,
		AuthenticationType: identity.AuthenticationType,
		Roles:              identity.Roles,
	}
	payload, err := serializer.Serialize(&resp)
	if err != nil {
		return nil, faults.New(faults.KindSerializationFailed, fmt.Sprintf("serialize auth_response: %v", err))
	}
	if err := send(ctx, &wire.Envelope{Type: wire.MessageAuthResponse, Payload: payload}); err != nil {
		return nil, faults.New(faults.KindHandshakeFailed, fmt.Sprintf("send auth_response: %v", err))
	}

	return identity, nil
}
