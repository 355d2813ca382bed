package server

import (
	"context"

	"github.com/coreremoting/coreremoting/dispatch"
	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/handshake"
	"github.com/coreremoting/coreremoting/internal/logger"
	"github.com/coreremoting/coreremoting/internal/telemetry"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/session"
	"github.com/coreremoting/coreremoting/transport"
	"github.com/coreremoting/coreremoting/wire"
)

// bareSend/bareRecv talk directly to t, bypassing session crypto --
// handshake's hello phase runs before a session's encryption mode is
// known, so it cannot use session.SendEnvelope/ReceiveEnvelope yet.
func bareSend(t transport.Transport) func(context.Context, *wire.Envelope) error {
	return func(ctx context.Context, env *wire.Envelope) error {
		return t.Send(ctx, env.Encode())
	}
}

func bareRecv(t transport.Transport) func(context.Context) (*wire.Envelope, error) {
	return func(ctx context.Context) (*wire.Envelope, error) {
		raw, err := t.Receive(ctx)
		if err != nil {
			return nil, err
		}
		return wire.Decode(raw)
	}
}

// handleConnection runs the full lifetime of one accepted transport: the
// hello/auth handshake (spec §4.7), then the call/delegate-result receive
// loop, until the peer disconnects, sends "goodbye", or ctx is cancelled.
func (s *Server) handleConnection(ctx context.Context, t transport.Transport) {
	peer := t.RemoteAddr()

	helloEnv, err := bareRecv(t)(ctx)
	if err != nil {
		logger.Debug("server: hello receive failed", "peer", peer, "error", err)
		_ = t.Close()
		return
	}
	if helloEnv.Type != wire.MessageHello {
		logger.Debug("server: expected hello, got different envelope", "peer", peer, "type", helloEnv.Type)
		_ = t.Close()
		return
	}
	if s.cfg.RequireEncryption && len(helloEnv.Payload) == 0 {
		logger.Warn("server: rejecting plaintext hello, encryption required", "peer", peer)
		_ = t.Close()
		return
	}

	sess := s.Sessions.Create(peer, t)
	sess.Serializer = s.cfg.Serializer
	sess.SigningKey = s.cfg.ServerKey

	helloCtx, helloSpan := telemetry.StartHandshakeSpan(ctx, "hello", telemetry.SessionID(sess.ID.String()))
	helloResult, err := handshake.RunServerHello(helloCtx, bareSend(t), helloEnv, sess.ID[:], s.cfg.ServerKey)
	if err != nil {
		telemetry.RecordError(helloCtx, err)
		helloSpan.End()
		logger.Debug("server: hello exchange failed", "peer", peer, "error", err)
		s.disposeSession(sess, "handshake_failed")
		s.Sessions.Remove(sess.ID)
		return
	}
	helloSpan.End()
	sess.SharedSecret = helloResult.SharedSecret
	sess.ClientPublicKey = helloResult.ClientPublicKey

	if !s.runAuth(ctx, sess) {
		s.disposeSession(sess, "handshake_failed")
		s.Sessions.Remove(sess.ID)
		return
	}

	s.receiveLoop(ctx, sess)
	s.disposeSession(sess, "client_disconnect")
	s.Sessions.Remove(sess.ID)
}

func (s *Server) runAuth(ctx context.Context, sess *session.Session) bool {
	authCtx := ctx
	if s.cfg.AuthTimeout > 0 {
		var cancel context.CancelFunc
		authCtx, cancel = context.WithTimeout(ctx, s.cfg.AuthTimeout)
		defer cancel()
	}

	authCtx, authSpan := telemetry.StartHandshakeSpan(authCtx, "auth", telemetry.SessionID(sess.ID.String()))
	defer authSpan.End()

	authEnv, err := sess.ReceiveEnvelope(authCtx)
	if err != nil {
		telemetry.RecordError(authCtx, err)
		logger.Debug("server: auth receive failed", "session", sess.ID, "error", err)
		return false
	}
	if authEnv.Type != wire.MessageAuth {
		logger.Debug("server: expected auth, got different envelope", "session", sess.ID, "type", authEnv.Type)
		return false
	}

	identity, err := handshake.RunServerAuth(authCtx, sess.SendEnvelope, authEnv, sess.Serializer, s.cfg.AuthProvider)
	if err != nil {
		telemetry.RecordError(authCtx, err)
		logger.Warn("server: authentication rejected", "session", sess.ID, "error", err)
		return false
	}
	sess.Identity = identity
	return true
}

// receiveLoop dispatches every envelope the session receives after
// authentication until the peer disconnects or sends "goodbye" (spec
// §4.8 steps 1-6).
func (s *Server) receiveLoop(ctx context.Context, sess *session.Session) {
	for {
		env, err := sess.ReceiveEnvelope(ctx)
		if err != nil {
			logger.Debug("server: session receive ended", "session", sess.ID, "error", err)
			return
		}

		switch env.Type {
		case wire.MessageCall:
			s.handleCall(ctx, sess, env)
		case wire.MessageResult:
			s.completeDelegateReply(sess, env)
		case wire.MessageGoodbye:
			return
		default:
			logger.Debug("server: ignoring unrecognized envelope", "session", sess.ID, "type", env.Type)
		}
	}
}

func (s *Server) handleCall(ctx context.Context, sess *session.Session, env *wire.Envelope) {
	var callMsg protocol.MethodCallMessage
	if err := sess.Serializer.Deserialize(env.Payload, &callMsg); err != nil {
		s.respond(ctx, sess, env.CorrelationID, dispatch.Outcome{
			Fault: faultChainPtr(faults.New(faults.KindArgumentMismatch, "malformed call payload")),
		})
		return
	}

	corrID := env.CorrelationID
	s.dispatcher.Submit(ctx, sess, callMsg, func(outcome dispatch.Outcome) {
		s.respond(ctx, sess, corrID, outcome)
	})
}

func (s *Server) respond(ctx context.Context, sess *session.Session, corrID []byte, outcome dispatch.Outcome) {
	env := &wire.Envelope{Type: wire.MessageResult, CorrelationID: corrID}

	if outcome.Fault != nil {
		env.Error = true
		payload, err := sess.Serializer.Serialize(outcome.Fault)
		if err != nil {
			logger.Error("server: failed to serialize fault", "session", sess.ID, "error", err)
			return
		}
		env.Payload = payload
	} else {
		payload, err := sess.Serializer.Serialize(outcome.Result)
		if err != nil {
			logger.Error("server: failed to serialize result", "session", sess.ID, "error", err)
			return
		}
		env.Payload = payload
	}

	if err := sess.SendEnvelope(ctx, env); err != nil {
		logger.Debug("server: failed to send result", "session", sess.ID, "error", err)
	}
}

// completeDelegateReply routes an inbound "result" envelope to the
// session's pending table: the server never originates "call" envelopes,
// so every "result" it receives replies to a delegate invocation the
// session's proxies sent (spec §4.9/§4.11).
func (s *Server) completeDelegateReply(sess *session.Session, env *wire.Envelope) {
	if len(env.CorrelationID) != wire.CorrelationIDSize {
		logger.Debug("server: result envelope has no correlation id", "session", sess.ID)
		return
	}
	var corrID [16]byte
	copy(corrID[:], env.CorrelationID)

	if env.Error {
		var chain protocol.FaultChain
		if err := sess.Serializer.Deserialize(env.Payload, &chain); err != nil {
			sess.Pending.Complete(corrID, nil, faults.New(faults.KindSerializationFailed, "malformed fault chain"))
			return
		}
		sess.Pending.Complete(corrID, nil, faults.FromChain(chain))
		return
	}
	sess.Pending.Complete(corrID, env.Payload, nil)
}

func faultChainPtr(f *faults.Fault) *protocol.FaultChain {
	chain := f.ToChain()
	return &chain
}
