package delegate

import (
	"context"
	"sync"

	"github.com/coreremoting/coreremoting/protocol"
)

// Invoker sends a RemoteDelegateInvocationMessage to the owning session
// and, if the call is synchronous (non-empty correlation id), waits for
// and returns the reply payload. session.Session implements this without
// delegate importing session, avoiding an import cycle.
type Invoker interface {
	InvokeDelegate(ctx context.Context, msg protocol.RemoteDelegateInvocationMessage, oneWay bool) ([]byte, error)
}

// Proxy is a server-side stand-in for a client-owned callback (spec
// §4.9): invoking it ships a delegate envelope to the owning session.
type Proxy struct {
	HandlerKey [16]byte
	ArgTypes   []string

	invoker Invoker
}

// Invoke builds and ships a RemoteDelegateInvocationMessage for argBlobs.
// oneWay mirrors the service method's declared one-way-ness: when true,
// no correlation id is assigned and Invoke returns immediately after
// sending (fire-and-forget); otherwise it waits for the reply.
func (p *Proxy) Invoke(ctx context.Context, argBlobs [][]byte, oneWay bool) ([]byte, error) {
	msg := protocol.RemoteDelegateInvocationMessage{HandlerKey: p.HandlerKey, ArgBlobs: argBlobs}
	return p.invoker.InvokeDelegate(ctx, msg, oneWay)
}

// ProxyRegistry is the server-side, per-session table of proxy delegates
// (spec §4.9). A session owns its proxies; disposing the session invokes
// every proxy's unsubscribe side channel exactly once.
type ProxyRegistry struct {
	mu      sync.Mutex
	proxies map[[16]byte]*Proxy

	unsubscribe func(*Proxy)
}

// NewProxyRegistry returns an empty ProxyRegistry. unsubscribe, if
// non-nil, is invoked once per proxy when Close runs, giving service code
// a chance to detach event handlers (spec §4.9).
func NewProxyRegistry(unsubscribe func(*Proxy)) *ProxyRegistry {
	return &ProxyRegistry{proxies: make(map[[16]byte]*Proxy), unsubscribe: unsubscribe}
}

// GetOrCreate returns the existing proxy for handlerKey, or materializes a
// new one bound to invoker (spec §4.9 "on decoding such a parameter, the
// dispatcher materializes a proxy delegate").
func (r *ProxyRegistry) GetOrCreate(handlerKey [16]byte, argTypes []string, invoker Invoker) *Proxy {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.proxies[handlerKey]; ok {
		return p
	}
	p := &Proxy{HandlerKey: handlerKey, ArgTypes: argTypes, invoker: invoker}
	r.proxies[handlerKey] = p
	return p
}

// Close fires the unsubscribe hook for every proxy exactly once, then
// clears the registry (spec §4.6/§4.9 session disposal).
func (r *ProxyRegistry) Close() {
	r.mu.Lock()
	proxies := make([]*Proxy, 0, len(r.proxies))
	for _, p := range r.proxies {
		proxies = append(proxies, p)
	}
	r.proxies = make(map[[16]byte]*Proxy)
	r.mu.Unlock()

	if r.unsubscribe == nil {
		return
	}
	for _, p := range proxies {
		r.unsubscribe(p)
	}
}

// Len reports the number of distinct proxies currently registered.
func (r *ProxyRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}
