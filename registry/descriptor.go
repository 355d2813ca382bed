package registry

import (
	"context"
	"fmt"
	"reflect"

	"github.com/coreremoting/coreremoting/faults"
)

// contextType identifies a leading context.Context parameter, which is
// idiomatic-Go plumbing rather than a wire argument: it never appears in
// ParamTypeNames/ParamTypes and is supplied by the dispatcher itself at
// invocation time (spec §4.10's task-local call-context slot).
var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// MethodDescriptor describes one callable method of a registered service,
// enough to resolve overloads and reflect-invoke it (spec §4.8, §9's
// reflection-based dispatch in place of build-time proxy codegen).
type MethodDescriptor struct {
	Name               string
	HasContextParam    bool           // method's first Go parameter is context.Context, supplied by the dispatcher
	ParamTypeNames     []string       // wire-visible parameters only, excluding any leading context.Context
	ParamTypes         []reflect.Type // reflect.Type per wire-visible parameter, in declaration order
	ReturnsValue       bool           // method's first return is a value (not just error)
	ReturnType         reflect.Type   // nil if ReturnsValue is false
	ReturnsError       bool           // method's last return is the error interface
	OneWay             bool
	DeclaringTypeDepth int // 0 = declared directly on the registered interface; higher = more ancestral
}

// InterfaceDescriptor is the compile-time-free stand-in for a generated
// service proxy: the fully qualified interface name plus every candidate
// method, used by dispatch to resolve service_name/method_name/parameter
// type-name tuples (spec §4.8 step 4).
type InterfaceDescriptor struct {
	FullyQualifiedName string
	IfaceType          reflect.Type // the reflect.Type of the registered Go interface, for reflect-invoking resolved methods
	Methods            []MethodDescriptor
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// NewInterfaceDescriptor reflects over ifaceType (which must be an
// interface type) and builds a descriptor using the Go method names and
// parameter type names as seen on the interface. Generic type
// placeholders are not resolved here -- dispatch substitutes
// generic_type_arg_names by full type name at call time (Open Question 1).
func NewInterfaceDescriptor(fullyQualifiedName string, ifaceType reflect.Type, oneWayMethods map[string]bool) (*InterfaceDescriptor, error) {
	if ifaceType.Kind() != reflect.Interface {
		return nil, fmt.Errorf("registry: %s is not an interface type", fullyQualifiedName)
	}

	d := &InterfaceDescriptor{FullyQualifiedName: fullyQualifiedName, IfaceType: ifaceType}
	for i := 0; i < ifaceType.NumMethod(); i++ {
		m := ifaceType.Method(i)
		start := 0
		hasContext := m.Type.NumIn() > 0 && m.Type.In(0) == contextType
		if hasContext {
			start = 1
		}

		paramNames := make([]string, 0, m.Type.NumIn())
		paramTypes := make([]reflect.Type, 0, m.Type.NumIn())
		for p := start; p < m.Type.NumIn(); p++ {
			paramNames = append(paramNames, m.Type.In(p).String())
			paramTypes = append(paramTypes, m.Type.In(p))
		}

		desc := MethodDescriptor{
			Name:            m.Name,
			HasContextParam: hasContext,
			ParamTypeNames:  paramNames,
			ParamTypes:      paramTypes,
			OneWay:          oneWayMethods[m.Name],
		}

		numOut := m.Type.NumOut()
		if numOut > 0 && m.Type.Out(numOut-1).Implements(errorType) {
			desc.ReturnsError = true
		}
		valueOuts := numOut
		if desc.ReturnsError {
			valueOuts--
		}
		if valueOuts > 0 {
			desc.ReturnsValue = true
			desc.ReturnType = m.Type.Out(0)
		}
		d.Methods = append(d.Methods, desc)
	}
	return d, nil
}

// Resolve applies the overload tie-break rule of spec §4.8 step 4: exact
// match on all parameter type names beats any arity-only match; if more
// than one exact match remains, the one with the smallest
// DeclaringTypeDepth (most-derived interface) wins; otherwise
// faults.KindAmbiguousMethod.
func (d *InterfaceDescriptor) Resolve(methodName string, paramTypeNames []string) (*MethodDescriptor, error) {
	var exact []*MethodDescriptor
	var arityOnly []*MethodDescriptor

	for i := range d.Methods {
		m := &d.Methods[i]
		if m.Name != methodName {
			continue
		}
		if len(m.ParamTypeNames) != len(paramTypeNames) {
			continue
		}
		if sameTypeNames(m.ParamTypeNames, paramTypeNames) {
			exact = append(exact, m)
		} else {
			arityOnly = append(arityOnly, m)
		}
	}

	if len(exact) == 0 && len(arityOnly) == 0 {
		return nil, faults.New(faults.KindMethodUnknown, fmt.Sprintf("no method %q on %s", methodName, d.FullyQualifiedName))
	}
	if len(exact) == 1 {
		return exact[0], nil
	}
	if len(exact) > 1 {
		best := exact[0]
		tie := false
		for _, m := range exact[1:] {
			if m.DeclaringTypeDepth < best.DeclaringTypeDepth {
				best = m
				tie = false
			} else if m.DeclaringTypeDepth == best.DeclaringTypeDepth {
				tie = true
			}
		}
		if tie {
			return nil, faults.New(faults.KindAmbiguousMethod, fmt.Sprintf("ambiguous overload for %q on %s", methodName, d.FullyQualifiedName))
		}
		return best, nil
	}
	// Only arity-only matches and no exact match: a single arity-only
	// candidate resolves to that method; more than one is ambiguous.
	if len(arityOnly) == 1 {
		return arityOnly[0], nil
	}
	return nil, faults.New(faults.KindAmbiguousMethod, fmt.Sprintf("ambiguous overload for %q on %s", methodName, d.FullyQualifiedName))
}

func sameTypeNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
