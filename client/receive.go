package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/internal/logger"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/wire"
)

// receiveLoop dispatches every envelope the session receives after auth:
// "result" completes an outstanding Invoke, "delegate" invokes a locally
// registered callback, "goodbye" signals the server closed the session
// (spec §4.8/§4.9/§4.11).
func (s *Session) receiveLoop() {
	defer close(s.receiveDone)
	for {
		select {
		case <-s.stopReceive:
			return
		default:
		}

		env, err := s.receiveEnvelope(context.Background())
		if err != nil {
			select {
			case <-s.stopReceive:
				return
			default:
			}
			s.handleReceiveError(err)
			return
		}

		switch env.Type {
		case wire.MessageResult:
			s.completeResult(env)
		case wire.MessageDelegate:
			s.handleDelegateInvocation(env)
		case wire.MessageGoodbye:
			s.handleReceiveError(faults.New(faults.KindConnectionLost, "server closed session"))
			return
		default:
			logger.Debug("client: ignoring unrecognized envelope", "type", env.Type)
		}
	}
}

func (s *Session) handleReceiveError(err error) {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return
	}
	s.connected = false
	t := s.transport
	s.mu.Unlock()

	_ = t.Close()
	s.pending.DrainWithError(faults.New(faults.KindConnectionLost, fmt.Sprintf("receive loop ended: %v", err)))
}

func (s *Session) completeResult(env *wire.Envelope) {
	if len(env.CorrelationID) != wire.CorrelationIDSize {
		logger.Debug("client: result envelope has no correlation id")
		return
	}
	var corrID [16]byte
	copy(corrID[:], env.CorrelationID)

	if env.Error {
		var chain protocol.FaultChain
		if err := s.cfg.Serializer.Deserialize(env.Payload, &chain); err != nil {
			s.pending.Complete(corrID, nil, faults.New(faults.KindSerializationFailed, "malformed fault chain"))
			return
		}
		s.pending.Complete(corrID, nil, faults.FromChain(chain))
		return
	}

	var result protocol.MethodCallResultMessage
	if err := s.cfg.Serializer.Deserialize(env.Payload, &result); err != nil {
		s.pending.Complete(corrID, nil, faults.New(faults.KindSerializationFailed, "malformed result"))
		return
	}
	s.pending.Complete(corrID, &result, nil)
}

// handleDelegateInvocation runs a locally registered callback for an
// inbound server-to-client delegate invocation and, if the server expects
// a reply, ships it back as a "result" envelope (spec §4.9).
func (s *Session) handleDelegateInvocation(env *wire.Envelope) {
	var msg protocol.RemoteDelegateInvocationMessage
	if err := s.cfg.Serializer.Deserialize(env.Payload, &msg); err != nil {
		logger.Warn("client: malformed delegate invocation", "error", err)
		return
	}

	cb, _, ok := s.handlers.Lookup(msg.HandlerKey)
	if !ok {
		logger.Warn("client: delegate invocation for unknown handler key")
		if len(env.CorrelationID) == wire.CorrelationIDSize {
			s.replyDelegateFault(env.CorrelationID, faults.New(faults.KindInternalError, "unknown delegate handler"))
		}
		return
	}

	replyBlob, err := cb(msg.ArgBlobs)
	if len(env.CorrelationID) != wire.CorrelationIDSize {
		return
	}
	if err != nil {
		var f *faults.Fault
		if !errors.As(err, &f) {
			f = faults.New(faults.KindServiceFaulted, err.Error())
		}
		s.replyDelegateFault(env.CorrelationID, f)
		return
	}
	s.replyDelegateSuccess(env.CorrelationID, replyBlob)
}

func (s *Session) replyDelegateSuccess(corrID []byte, payload []byte) {
	env := &wire.Envelope{Type: wire.MessageResult, CorrelationID: corrID, Payload: payload}
	if err := s.sendEnvelope(context.Background(), env); err != nil {
		logger.Debug("client: failed to send delegate reply", "error", err)
	}
}

func (s *Session) replyDelegateFault(corrID []byte, f *faults.Fault) {
	chain := f.ToChain()
	payload, err := s.cfg.Serializer.Serialize(&chain)
	if err != nil {
		logger.Error("client: failed to serialize delegate fault", "error", err)
		return
	}
	env := &wire.Envelope{Type: wire.MessageResult, CorrelationID: corrID, Error: true, Payload: payload}
	if err := s.sendEnvelope(context.Background(), env); err != nil {
		logger.Debug("client: failed to send delegate fault reply", "error", err)
	}
}
