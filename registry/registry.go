// Package registry is the service registry of spec §4.5: a name-keyed
// table of service registrations, each with a factory and a lifetime
// governing how many instances of the underlying service exist.
package registry

import (
	"fmt"
	"sync"

	"github.com/coreremoting/coreremoting/faults"
)

// Lifetime controls how many instances of a registered service exist and
// how long each one lives (spec §3).
type Lifetime int

const (
	// Singleton produces one instance for the server's lifetime.
	Singleton Lifetime = iota
	// Scoped produces one instance per session.
	Scoped
	// SingleCall produces a fresh instance per invocation.
	SingleCall
)

func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case SingleCall:
		return "single_call"
	default:
		return "unknown"
	}
}

// Factory builds a new service instance.
type Factory func() (any, error)

// Registration is one entry of the registry (spec §3).
type Registration struct {
	Name                string
	InterfaceDescriptor *InterfaceDescriptor
	Factory             Factory
	Lifetime            Lifetime
}

// SessionScope is the subset of session state the registry needs to cache
// a Scoped instance. session.Session implements this without registry
// importing session, avoiding an import cycle (session owns a resolved
// Registry reference, not the other way around).
type SessionScope interface {
	ScopedInstance(serviceName string) (any, bool)
	SetScopedInstance(serviceName string, instance any)
}

// Registry is the server-wide table of service registrations.
type Registry struct {
	mu            sync.RWMutex
	registrations map[string]*Registration

	singletonMu   sync.Mutex
	singletonInst map[string]any
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		registrations: make(map[string]*Registration),
		singletonInst: make(map[string]any),
	}
}

// Register adds a registration. It fails with faults.KindDuplicateRegistration
// if name is already present (spec §4.5).
func (r *Registry) Register(name string, descriptor *InterfaceDescriptor, factory Factory, lifetime Lifetime) error {
	if name == "" {
		name = descriptor.FullyQualifiedName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registrations[name]; exists {
		return faults.New(faults.KindDuplicateRegistration, fmt.Sprintf("service %q is already registered", name))
	}

	r.registrations[name] = &Registration{
		Name:                name,
		InterfaceDescriptor: descriptor,
		Factory:             factory,
		Lifetime:            lifetime,
	}
	return nil
}

// Resolve returns a service instance for name, honoring its declared
// lifetime (spec §4.5): Singleton caches under a per-registry lock;
// Scoped is cached on sess; SingleCall always calls the
// factory fresh. sess may be nil when resolving a Singleton/SingleCall
// registration outside of any session (e.g. at startup warm-up).
func (r *Registry) Resolve(name string, sess SessionScope) (any, error) {
	reg, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	switch reg.Lifetime {
	case Singleton:
		return r.resolveSingleton(reg)
	case Scoped:
		return r.resolveScoped(reg, sess)
	default: // SingleCall
		instance, err := reg.Factory()
		if err != nil {
			return nil, fmt.Errorf("create single_call instance of %q: %w", name, err)
		}
		return instance, nil
	}
}

func (r *Registry) resolveSingleton(reg *Registration) (any, error) {
	r.singletonMu.Lock()
	defer r.singletonMu.Unlock()

	if inst, ok := r.singletonInst[reg.Name]; ok {
		return inst, nil
	}
	inst, err := reg.Factory()
	if err != nil {
		return nil, fmt.Errorf("create singleton instance of %q: %w", reg.Name, err)
	}
	r.singletonInst[reg.Name] = inst
	return inst, nil
}

func (r *Registry) resolveScoped(reg *Registration, sess SessionScope) (any, error) {
	if sess == nil {
		return nil, faults.New(faults.KindInternalError, fmt.Sprintf("scoped service %q resolved with no session", reg.Name))
	}
	if inst, ok := sess.ScopedInstance(reg.Name); ok {
		return inst, nil
	}
	inst, err := reg.Factory()
	if err != nil {
		return nil, fmt.Errorf("create scoped instance of %q: %w", reg.Name, err)
	}
	sess.SetScopedInstance(reg.Name, inst)
	return inst, nil
}

// InterfaceOf returns the interface descriptor registered under name.
func (r *Registry) InterfaceOf(name string) (*InterfaceDescriptor, error) {
	reg, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return reg.InterfaceDescriptor, nil
}

// List returns a snapshot of every registration.
func (r *Registry) List() []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Registration, 0, len(r.registrations))
	for _, reg := range r.registrations {
		out = append(out, reg)
	}
	return out
}

func (r *Registry) lookup(name string) (*Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.registrations[name]
	if !ok {
		return nil, faults.New(faults.KindServiceUnknown, fmt.Sprintf("no service registered under %q", name))
	}
	return reg, nil
}
