package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/registry"
)

var errorIface = reflect.TypeOf((*error)(nil)).Elem()

// invoke reflect-calls fn with in, recovering a panicking service method
// into a service_faulted fault carrying the stack text -- mirrors the
// teacher's handleRequestPanic recover-and-log shape, except the panic
// here becomes the call's fault record instead of only a log line, since
// the caller is a remote peer expecting a reply.
func invoke(fn reflect.Value, in []reflect.Value) (outs []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			f := faults.New(faults.KindServiceFaulted, fmt.Sprintf("panic in service method: %v", r))
			f.StackText = string(debug.Stack())
			err = f
		}
	}()

	results := fn.Call(in)
	if len(results) == 0 {
		return nil, nil
	}

	last := results[len(results)-1]
	if last.Type().Implements(errorIface) {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		return results[:len(results)-1], nil
	}
	return results, nil
}

// buildArgs decodes callMsg.Parameters into reflect.Values matching
// method.ParamTypes, materializing a proxy delegate in place of any
// delegate-typed (func) parameter (spec §4.8 step 5/§4.9).
func (d *Dispatcher) buildArgs(ctx context.Context, method *registry.MethodDescriptor, params []protocol.ParamMsg, sess SessionContext) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(method.ParamTypes))

	for i, paramType := range method.ParamTypes {
		p := params[i]

		if paramType.Kind() == reflect.Func {
			fnVal, err := d.buildDelegateArg(ctx, paramType, p, sess)
			if err != nil {
				return nil, err
			}
			args[i] = fnVal
			continue
		}

		if p.IsOut {
			elemType := paramType.Elem()
			ptr := reflect.New(elemType)
			if !p.IsNull && len(p.ValueBlob) > 0 {
				val, err := d.deserializeValue(p.ValueBlob, elemType)
				if err != nil {
					return nil, faults.New(faults.KindArgumentMismatch, fmt.Sprintf("decode out parameter %q: %v", p.Name, err))
				}
				ptr.Elem().Set(val)
			}
			args[i] = ptr
			continue
		}

		if p.IsNull {
			args[i] = reflect.Zero(paramType)
			continue
		}

		val, err := d.deserializeValue(p.ValueBlob, paramType)
		if err != nil {
			return nil, faults.New(faults.KindArgumentMismatch, fmt.Sprintf("decode parameter %q: %v", p.Name, err))
		}
		args[i] = val
	}

	return args, nil
}

// buildDelegateArg decodes the DelegateHandle placeholder carried in
// p.ValueBlob and materializes a server-side proxy bound to sess, wrapped
// as a Go func value of paramType via reflect.MakeFunc (spec §4.9).
func (d *Dispatcher) buildDelegateArg(ctx context.Context, paramType reflect.Type, p protocol.ParamMsg, sess SessionContext) (reflect.Value, error) {
	var handle protocol.DelegateHandle
	if err := d.serializer.Deserialize(p.ValueBlob, &handle); err != nil {
		return reflect.Value{}, faults.New(faults.KindArgumentMismatch, fmt.Sprintf("decode delegate handle for %q: %v", p.Name, err))
	}

	proxy := sess.DelegateProxies().GetOrCreate(handle.HandlerKey, nil, sess)

	fn := reflect.MakeFunc(paramType, func(in []reflect.Value) []reflect.Value {
		argBlobs := make([][]byte, len(in))
		for i, a := range in {
			blob, err := d.serializeValue(a.Interface())
			if err != nil {
				return zeroReturns(paramType)
			}
			argBlobs[i] = blob
		}

		oneWay := paramType.NumOut() == 0
		replyBlob, invokeErr := proxy.Invoke(ctx, argBlobs, oneWay)
		return d.delegateReturns(paramType, replyBlob, invokeErr)
	})
	return fn, nil
}

func zeroReturns(fnType reflect.Type) []reflect.Value {
	outs := make([]reflect.Value, fnType.NumOut())
	for i := range outs {
		outs[i] = reflect.Zero(fnType.Out(i))
	}
	return outs
}

// delegateReturns maps a proxy invocation's (replyBlob, err) back onto
// fnType's declared return values. Only the first value-typed return is
// populated from replyBlob -- delegate signatures with more than one
// non-error return are not resolvable from a single reply blob and
// receive their zero value.
func (d *Dispatcher) delegateReturns(fnType reflect.Type, replyBlob []byte, invokeErr error) []reflect.Value {
	outs := zeroReturns(fnType)
	n := fnType.NumOut()
	if n == 0 {
		return outs
	}

	hasErr := fnType.Out(n - 1).Implements(errorIface)
	if hasErr && invokeErr != nil {
		outs[n-1] = reflect.ValueOf(invokeErr)
	}

	valueOuts := n
	if hasErr {
		valueOuts--
	}
	if valueOuts > 0 && invokeErr == nil && len(replyBlob) > 0 {
		if val, err := d.deserializeValue(replyBlob, fnType.Out(0)); err == nil {
			outs[0] = val
		}
	}
	return outs
}

// serializeValue encodes v through the configured serializer, wrapping it
// in a synthesized envelope when bare/scalar values need one (spec
// §4.4(c)).
func (d *Dispatcher) serializeValue(v any) ([]byte, error) {
	return protocol.EncodeValue(d.serializer, v)
}

// deserializeValue decodes data into a value of targetType, unwrapping
// the envelope serializeValue synthesized when the serializer needs one.
func (d *Dispatcher) deserializeValue(data []byte, targetType reflect.Type) (reflect.Value, error) {
	return protocol.DecodeValue(d.serializer, data, targetType)
}

func isNilableKind(k reflect.Kind) bool {
	switch k {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return true
	}
	return false
}
