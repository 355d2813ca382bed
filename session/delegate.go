package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coreremoting/coreremoting/delegate"
	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/internal/telemetry"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/wire"
)

// DelegateProxies implements dispatch.SessionContext: it exposes the
// session's own proxy registry so the dispatcher can materialize
// server-side proxy delegates bound to this session (spec §4.9).
func (s *Session) DelegateProxies() *delegate.ProxyRegistry {
	return s.Proxies
}

// InvokeDelegate implements delegate.Invoker: it ships msg to the peer as
// a "delegate" envelope and, for synchronous invocations (oneWay false),
// blocks until the peer's matching "result" envelope completes the
// session's pending-call slot or ctx is done (spec §4.9).
func (s *Session) InvokeDelegate(ctx context.Context, msg protocol.RemoteDelegateInvocationMessage, oneWay bool) ([]byte, error) {
	ctx, span := telemetry.StartDelegateSpan(ctx, msg.Signature,
		telemetry.HandlerKey(uuid.UUID(msg.HandlerKey).String()), telemetry.OneWay(oneWay))
	defer span.End()

	blob, err := s.invokeDelegate(ctx, msg, oneWay)
	s.Metrics.Observe(delegateOutcome(err))
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	return blob, err
}

// delegateOutcome classifies err into one of "success", "fault",
// "connection_lost", "cancelled" for DelegateMetrics.Observe.
func delegateOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case faults.Is(err, faults.KindConnectionLost):
		return "connection_lost"
	case faults.Is(err, faults.KindCancelled):
		return "cancelled"
	default:
		return "fault"
	}
}

func (s *Session) invokeDelegate(ctx context.Context, msg protocol.RemoteDelegateInvocationMessage, oneWay bool) ([]byte, error) {
	if s.Serializer == nil {
		return nil, faults.New(faults.KindInternalError, "session has no serializer configured")
	}

	payload, err := s.Serializer.Serialize(&msg)
	if err != nil {
		return nil, faults.New(faults.KindSerializationFailed, fmt.Sprintf("serialize delegate invocation: %v", err))
	}
	env := &wire.Envelope{Type: wire.MessageDelegate, Payload: payload}

	if oneWay {
		if err := s.SendEnvelope(ctx, env); err != nil {
			return nil, faults.New(faults.KindConnectionLost, fmt.Sprintf("send delegate invocation: %v", err))
		}
		return nil, nil
	}

	corrID := uuid.New()
	env.CorrelationID = corrID[:]

	done, err := s.Pending.Register(corrID)
	if err != nil {
		return nil, err
	}

	if err := s.SendEnvelope(ctx, env); err != nil {
		sendErr := faults.New(faults.KindConnectionLost, fmt.Sprintf("send delegate invocation: %v", err))
		s.Pending.Complete(corrID, nil, sendErr)
		return nil, sendErr
	}

	select {
	case r := <-done:
		if r.Err != nil {
			return nil, r.Err
		}
		blob, _ := r.Value.([]byte)
		return blob, nil
	case <-ctx.Done():
		s.Pending.Cancel(corrID)
		return nil, faults.New(faults.KindCancelled, "delegate invocation cancelled")
	}
}
