package dispatch

import (
	"fmt"
	"reflect"

	"github.com/coreremoting/coreremoting/callctx"
	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/registry"
)

// contextFromEntries rebuilds a call-scoped callctx.Context from the
// entries carried on an inbound call (spec §4.10). Values are kept as
// opaque blobs -- the wire entries carry no type_name, so this package
// forwards them unopened rather than guessing a concrete type.
func contextFromEntries(entries []protocol.CallContextEntry) *callctx.Context {
	cc := callctx.New()
	for _, e := range entries {
		cc = cc.With(e.Name, e.ValueBlob)
	}
	return cc
}

// entriesFromContext flattens a callctx.Context back into the wire shape
// for the response's call_context_entries (spec §4.10).
func entriesFromContext(cc *callctx.Context) []protocol.CallContextEntry {
	wireEntries := cc.Entries()
	if len(wireEntries) == 0 {
		return nil
	}
	out := make([]protocol.CallContextEntry, 0, len(wireEntries))
	for _, e := range wireEntries {
		blob, _ := e.Value.([]byte)
		out = append(out, protocol.CallContextEntry{Name: e.Name, ValueBlob: blob})
	}
	return out
}

// buildResult assembles the success-path MethodCallResultMessage: the
// return value (if any), every out-parameter's post-call value, and the
// post-invocation call-context snapshot (spec §4.8 step 6/§4.10).
func (d *Dispatcher) buildResult(method *registry.MethodDescriptor, params []protocol.ParamMsg, args []reflect.Value, outs []reflect.Value, callCtx *callctx.Context) (*protocol.MethodCallResultMessage, error) {
	result := &protocol.MethodCallResultMessage{IsReturnNull: true}

	if method.ReturnsValue {
		retVal := outs[0]
		if isNilableKind(retVal.Kind()) && retVal.IsNil() {
			result.IsReturnNull = true
		} else {
			blob, err := d.serializeValue(retVal.Interface())
			if err != nil {
				return nil, faults.New(faults.KindSerializationFailed, fmt.Sprintf("serialize return value: %v", err))
			}
			result.IsReturnNull = false
			result.ReturnBlob = blob
		}
	}

	for i, p := range params {
		if !p.IsOut {
			continue
		}
		outVal := args[i].Elem()
		blob, err := d.serializeValue(outVal.Interface())
		if err != nil {
			return nil, faults.New(faults.KindSerializationFailed, fmt.Sprintf("serialize out parameter %q: %v", p.Name, err))
		}
		result.OutParameters = append(result.OutParameters, protocol.OutParamMsg{Name: p.Name, ValueBlob: blob})
	}

	result.CallContextEntries = entriesFromContext(callCtx)
	return result, nil
}
