// Package callctx implements call-context propagation (spec §4.10): a
// name/value map that travels with every outbound call and is merged back
// into the caller's ambient state from the call's result.
//
// The shape follows the teacher's internal/logger request-scoped context:
// an immutable snapshot stored under a private context.Context key, with
// Clone/With helpers instead of uncontrolled mutation, because (per spec
// §9) goroutine-local state does not survive suspension points uniformly.
package callctx

import "context"

type contextKey struct{}

var ctxKey = contextKey{}

// Context is the call-scoped name/value map. Zero value is an empty,
// usable context.
type Context struct {
	entries map[string]any
}

// New returns an empty call context.
func New() *Context {
	return &Context{entries: map[string]any{}}
}

// Clone returns a deep-enough copy safe to mutate independently of the
// receiver. A nil receiver clones to an empty context.
func (c *Context) Clone() *Context {
	clone := New()
	if c == nil {
		return clone
	}
	for k, v := range c.entries {
		clone.entries[k] = v
	}
	return clone
}

// With returns a clone of c with name set to value.
func (c *Context) With(name string, value any) *Context {
	clone := c.Clone()
	clone.entries[name] = value
	return clone
}

// Merge returns a clone of c with every entry of other overlaid on top.
func (c *Context) Merge(other *Context) *Context {
	clone := c.Clone()
	if other == nil {
		return clone
	}
	for k, v := range other.entries {
		clone.entries[k] = v
	}
	return clone
}

// Get returns the value stored under name, if any.
func (c *Context) Get(name string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.entries[name]
	return v, ok
}

// Entries returns a snapshot slice of all (name, value) pairs, suitable for
// marshaling onto the wire as call_context_entries.
func (c *Context) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, 0, len(c.entries))
	for k, v := range c.entries {
		out = append(out, Entry{Name: k, Value: v})
	}
	return out
}

// Entry is one wire-carried call-context pair.
type Entry struct {
	Name  string
	Value any
}

// FromEntries rebuilds a Context from a decoded slice of wire entries.
func FromEntries(entries []Entry) *Context {
	c := New()
	for _, e := range entries {
		c.entries[e.Name] = e.Value
	}
	return c
}

// WithContext attaches cc to ctx, returning the derived context.Context.
func WithContext(ctx context.Context, cc *Context) context.Context {
	return context.WithValue(ctx, ctxKey, cc)
}

// FromContext retrieves the Context previously attached with WithContext,
// or an empty Context if none is present.
func FromContext(ctx context.Context) *Context {
	if ctx == nil {
		return New()
	}
	cc, _ := ctx.Value(ctxKey).(*Context)
	if cc == nil {
		return New()
	}
	return cc
}
