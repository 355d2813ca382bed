package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/coreremoting/coreremoting/callctx"
	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/wire"
)

// Invoke sends a "call" envelope for serviceName.methodName and blocks for
// its "result" (spec §4.8/§4.11). The call context carried on ctx (spec
// §4.10) is attached to the outbound message; the server's returned
// entries are merged back into the context.Context returned alongside the
// result, since a plain Go context cannot be mutated in place.
func (s *Session) Invoke(ctx context.Context, serviceName, methodName string, genericTypeArgNames []string, params []protocol.ParamMsg) (context.Context, *protocol.MethodCallResultMessage, error) {
	if err := s.reconnectIfNeeded(ctx); err != nil {
		return ctx, nil, err
	}

	callCtx := callctx.FromContext(ctx)
	msg := protocol.MethodCallMessage{
		ServiceName:         serviceName,
		MethodName:          methodName,
		GenericTypeArgNames: genericTypeArgNames,
		Parameters:          params,
		CallContextEntries:  wireEntries(callCtx),
	}

	payload, err := s.cfg.Serializer.Serialize(&msg)
	if err != nil {
		return ctx, nil, faults.New(faults.KindSerializationFailed, fmt.Sprintf("serialize call: %v", err))
	}

	corrID := uuid.New()
	done, err := s.pending.Register(corrID)
	if err != nil {
		return ctx, nil, err
	}

	invokeCtx := ctx
	if s.cfg.InvocationTimeout > 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			invokeCtx, cancel = context.WithTimeout(ctx, s.cfg.InvocationTimeout)
			defer cancel()
		}
	}

	if err := s.sendEnvelope(invokeCtx, &wire.Envelope{Type: wire.MessageCall, CorrelationID: corrID[:], Payload: payload}); err != nil {
		sendErr := faults.New(faults.KindConnectionLost, fmt.Sprintf("send call: %v", err))
		if errors.Is(invokeCtx.Err(), context.Canceled) {
			sendErr = faults.New(faults.KindCancelled, "call cancelled")
		} else if errors.Is(invokeCtx.Err(), context.DeadlineExceeded) {
			sendErr = faults.New(faults.KindCallTimeout, "call timed out")
		}
		s.pending.Complete(corrID, nil, sendErr)
		return ctx, nil, sendErr
	}

	select {
	case r := <-done:
		if r.Err != nil {
			return ctx, nil, r.Err
		}
		result, _ := r.Value.(*protocol.MethodCallResultMessage)
		returned := callCtx.Merge(callctx.FromEntries(fromWireEntries(result.CallContextEntries)))
		return callctx.WithContext(ctx, returned), result, nil
	case <-invokeCtx.Done():
		s.pending.Cancel(corrID)
		if errors.Is(invokeCtx.Err(), context.Canceled) {
			return ctx, nil, faults.New(faults.KindCancelled, "call cancelled")
		}
		return ctx, nil, faults.New(faults.KindCallTimeout, "call timed out")
	}
}

func wireEntries(cc *callctx.Context) []protocol.CallContextEntry {
	entries := cc.Entries()
	out := make([]protocol.CallContextEntry, 0, len(entries))
	for _, e := range entries {
		blob, ok := e.Value.([]byte)
		if !ok {
			continue
		}
		out = append(out, protocol.CallContextEntry{Name: e.Name, ValueBlob: blob})
	}
	return out
}

func fromWireEntries(entries []protocol.CallContextEntry) []callctx.Entry {
	out := make([]callctx.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, callctx.Entry{Name: e.Name, Value: e.ValueBlob})
	}
	return out
}
