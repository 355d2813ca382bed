package client

import (
	"github.com/coreremoting/coreremoting/delegate"
	"github.com/coreremoting/coreremoting/protocol"
)

// Subscribe registers cb as the local handler for a delegate-typed call
// argument and returns the DelegateHandle to ship in its place (spec
// §4.9/§4.12's subscribe_event). signature identifies the delegate's
// wire-visible parameter/return shape, used by the server to validate the
// proxy it materializes.
func (s *Session) Subscribe(signature string, cb delegate.Callback) protocol.DelegateHandle {
	key := s.handlers.Subscribe(signature, cb)
	return protocol.DelegateHandle{HandlerKey: key, Signature: signature}
}

// Unsubscribe decrements the handler's ref-count, removing it once no
// outstanding subscription references it.
func (s *Session) Unsubscribe(handle protocol.DelegateHandle) bool {
	return s.handlers.Unsubscribe(handle.HandlerKey)
}
