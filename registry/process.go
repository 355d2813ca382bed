package registry

import "sync"

// processRegistry is a process-wide named-instance registry, the
// explicit-registration replacement for global singletons that spec §9
// calls for (e.g. a single Dispatcher or Metrics instance shared across a
// process without a package-level var).
type processRegistry struct {
	mu        sync.RWMutex
	instances map[string]any
	defaults  map[string]any
}

// Process is the package-level process registry. Components register
// themselves explicitly at startup; nothing is implicit.
var Process = &processRegistry{
	instances: make(map[string]any),
	defaults:  make(map[string]any),
}

// Register stores instance under name, overwriting any previous value.
func (p *processRegistry) Register(name string, instance any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.instances[name] = instance
}

// Lookup returns the instance registered under name, if any.
func (p *processRegistry) Lookup(name string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	inst, ok := p.instances[name]
	return inst, ok
}

// SetDefault designates instance as the default for a given kind (e.g.
// "server" or "dispatcher"), retrievable via Default.
func (p *processRegistry) SetDefault(kind string, instance any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaults[kind] = instance
}

// Default returns the default instance for kind, if one was set.
func (p *processRegistry) Default(kind string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	inst, ok := p.defaults[kind]
	return inst, ok
}
