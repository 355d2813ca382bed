// Package dispatch implements the invocation dispatcher of spec §4.8: it
// resolves an inbound call envelope's service_name/method_name/parameter
// types against a registry.Registry and reflect-invokes the target,
// modeled on the teacher's internal/protocol/portmap.Server
// processRPCMessage pattern (decode -> validate -> look up -> invoke ->
// build reply), with service invocation run on a bounded worker pool
// (spec §5) instead of inline on the receive loop.
package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"time"

	"github.com/coreremoting/coreremoting/callctx"
	"github.com/coreremoting/coreremoting/delegate"
	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/internal/logger"
	"github.com/coreremoting/coreremoting/internal/telemetry"
	"github.com/coreremoting/coreremoting/pkg/metrics"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/registry"
)

// SessionContext is what the dispatcher needs from the inbound call's
// owning session: scoped-service resolution (registry.SessionScope),
// delegate invocation plumbing (delegate.Invoker) for shipping proxy
// invocations back to the peer, and the session's own proxy registry for
// materializing delegate-typed parameters (spec §4.9). session.Session
// implements this without dispatch importing session.
type SessionContext interface {
	registry.SessionScope
	delegate.Invoker
	DelegateProxies() *delegate.ProxyRegistry
}

// toucher is satisfied by session.Session's Touch method; checked by
// type assertion so a SessionContext that tracks no activity (e.g. in a
// unit test) need not implement it.
type toucher interface{ Touch() }

// Outcome is what one Dispatch call resolves to. OneWay methods produce
// neither Result nor Fault; the caller sends no response for those (spec
// §4.8 step 6). Exactly one of Result/Fault is set otherwise.
type Outcome struct {
	OneWay bool
	Result *protocol.MethodCallResultMessage
	Fault  *protocol.FaultChain
}

// Dispatcher is the server-side invocation dispatcher.
type Dispatcher struct {
	registry   *registry.Registry
	serializer protocol.Serializer
	metrics    *metrics.CallMetrics

	work chan func()
	wg   sync.WaitGroup
}

// New constructs a Dispatcher and starts workers goroutines draining its
// internal work queue. workers <= 0 defaults to runtime.NumCPU(), the
// "default equal to the number of hardware threads" of spec §5. callMetrics
// may be nil, in which case Dispatch records no metrics (spec §4.8).
func New(reg *registry.Registry, serializer protocol.Serializer, workers int, callMetrics *metrics.CallMetrics) *Dispatcher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	d := &Dispatcher{
		registry:   reg,
		serializer: serializer,
		metrics:    callMetrics,
		work:       make(chan func(), workers*4),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.runWorker()
	}
	return d
}

func (d *Dispatcher) runWorker() {
	defer d.wg.Done()
	for task := range d.work {
		task()
	}
}

// Stop closes the work queue and waits for every in-flight task to
// finish. Submit must not be called after Stop.
func (d *Dispatcher) Stop() {
	close(d.work)
	d.wg.Wait()
}

// Submit enqueues callMsg for dispatch on the bounded worker pool so a
// slow service cannot starve the session's receive loop (spec §5).
// respond is invoked with the outcome from a worker goroutine once ready;
// it is never invoked for methods resolved as one-way.
func (d *Dispatcher) Submit(ctx context.Context, sess SessionContext, callMsg protocol.MethodCallMessage, respond func(Outcome)) {
	d.work <- func() {
		outcome := d.Dispatch(ctx, sess, callMsg)
		if !outcome.OneWay && respond != nil {
			respond(outcome)
		}
	}
}

// Dispatch runs spec §4.8 steps 1-6 synchronously on the calling
// goroutine. Most callers should prefer Submit, which runs this on the
// bounded worker pool instead of the receive loop. Every call is wrapped
// in a dispatch.invoke trace span and, when metrics are configured, every
// call that is not one-way is recorded as one
// coreremoting_calls_total/coreremoting_call_duration_seconds observation
// keyed by outcome (spec §4.8, §4.6).
func (d *Dispatcher) Dispatch(ctx context.Context, sess SessionContext, callMsg protocol.MethodCallMessage) Outcome {
	ctx, span := telemetry.StartCallSpan(ctx, callMsg.ServiceName, callMsg.MethodName)
	start := time.Now()
	outcome := d.dispatch(ctx, sess, callMsg)

	switch {
	case outcome.OneWay:
		span.End()
		return outcome
	case outcome.Fault != nil:
		fault := faults.FromChain(*outcome.Fault)
		telemetry.RecordError(ctx, fault)
		span.SetAttributes(telemetry.FaultKind(fault.TypeName))
		d.metrics.Observe(callMsg.ServiceName, callMsg.MethodName, "fault", time.Since(start))
	default:
		d.metrics.Observe(callMsg.ServiceName, callMsg.MethodName, "success", time.Since(start))
	}
	span.End()
	return outcome
}

func (d *Dispatcher) dispatch(ctx context.Context, sess SessionContext, callMsg protocol.MethodCallMessage) Outcome {
	if t, ok := sess.(toucher); ok {
		t.Touch()
	}

	descriptor, err := d.registry.InterfaceOf(callMsg.ServiceName)
	if err != nil {
		return faultOutcome(err)
	}
	instance, err := d.registry.Resolve(callMsg.ServiceName, sess)
	if err != nil {
		return faultOutcome(err)
	}

	paramTypeNames := make([]string, len(callMsg.Parameters))
	for i, p := range callMsg.Parameters {
		paramTypeNames[i] = p.TypeName
	}
	method, err := descriptor.Resolve(callMsg.MethodName, paramTypeNames)
	if err != nil {
		return faultOutcome(err)
	}

	callCtx := contextFromEntries(callMsg.CallContextEntries)
	invokeCtx := callctx.WithContext(ctx, callCtx)

	args, err := d.buildArgs(invokeCtx, method, callMsg.Parameters, sess)
	if err != nil {
		return faultOutcome(err)
	}

	receiver := reflect.ValueOf(instance)
	fn := receiver.MethodByName(method.Name)
	if !fn.IsValid() {
		return faultOutcome(faults.New(faults.KindInternalError, fmt.Sprintf("resolved service instance has no method %q", method.Name)))
	}

	in := make([]reflect.Value, 0, len(args)+1)
	if method.HasContextParam {
		in = append(in, reflect.ValueOf(invokeCtx))
	}
	in = append(in, args...)

	outs, invokeErr := invoke(fn, in)

	if method.OneWay {
		if invokeErr != nil {
			logger.Warn("one-way service invocation failed",
				"service", callMsg.ServiceName, "method", callMsg.MethodName, "error", invokeErr)
		}
		return Outcome{OneWay: true}
	}

	if invokeErr != nil {
		chain := faults.FromError(invokeErr).ToChain()
		return Outcome{Fault: &chain}
	}

	result, err := d.buildResult(method, callMsg.Parameters, args, outs, callCtx)
	if err != nil {
		return faultOutcome(err)
	}
	return Outcome{Result: result}
}

func faultOutcome(err error) Outcome {
	var chain protocol.FaultChain
	if f, ok := err.(*faults.Fault); ok {
		chain = f.ToChain()
	} else {
		chain = faults.FromError(err).ToChain()
	}
	return Outcome{Fault: &chain}
}
