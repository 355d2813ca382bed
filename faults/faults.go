// Package faults defines the closed set of error kinds CoreRemoting can
// surface, and the fault record carried back to a client when a service
// invocation fails on the server.
package faults

import (
	"fmt"

	"github.com/coreremoting/coreremoting/protocol"
)

// Kind is a closed enumeration of the error conditions the core can report.
// Values never change meaning across releases; adding a new Kind is additive.
type Kind int

const (
	// KindConnectionRefused indicates the transport could not be established.
	KindConnectionRefused Kind = iota + 1

	// KindHandshakeFailed indicates the hello/key-exchange phase failed.
	KindHandshakeFailed

	// KindProtocolViolation indicates a malformed frame or envelope.
	KindProtocolViolation

	// KindAuthFailed indicates the authentication exchange was rejected.
	KindAuthFailed

	// KindNotConnected indicates an invocation was attempted on a session
	// that is not connected and auto-reconnect is disabled or failed.
	KindNotConnected

	// KindServiceUnknown indicates no registration exists for a service name.
	KindServiceUnknown

	// KindMethodUnknown indicates the named method does not exist on the
	// resolved service's interface descriptor.
	KindMethodUnknown

	// KindAmbiguousMethod indicates overload resolution could not settle on
	// a single candidate method.
	KindAmbiguousMethod

	// KindArgumentMismatch indicates parameter types/arity did not match
	// the resolved method signature.
	KindArgumentMismatch

	// KindServiceFaulted indicates the invoked method returned an error or
	// panicked; the Fault record carries its message and stack text.
	KindServiceFaulted

	// KindCallTimeout indicates a pending call exceeded its deadline,
	// either during connect/auth (handshake phase) or during invocation.
	KindCallTimeout

	// KindCancelled indicates the caller's cancellation signal fired.
	KindCancelled

	// KindConnectionLost indicates the transport closed while calls were
	// outstanding.
	KindConnectionLost

	// KindSerializationFailed indicates a (de)serialization round-trip
	// failed.
	KindSerializationFailed

	// KindCryptoFailed indicates envelope decryption or signature
	// verification failed.
	KindCryptoFailed

	// KindDuplicateRegistration indicates a service name was already
	// registered.
	KindDuplicateRegistration

	// KindInternalError is a catch-all for invariant violations that
	// should never occur in a correct deployment.
	KindInternalError
)

func (k Kind) String() string {
	switch k {
	case KindConnectionRefused:
		return "connection_refused"
	case KindHandshakeFailed:
		return "handshake_failed"
	case KindProtocolViolation:
		return "protocol_violation"
	case KindAuthFailed:
		return "auth_failed"
	case KindNotConnected:
		return "not_connected"
	case KindServiceUnknown:
		return "service_unknown"
	case KindMethodUnknown:
		return "method_unknown"
	case KindAmbiguousMethod:
		return "ambiguous_method"
	case KindArgumentMismatch:
		return "argument_mismatch"
	case KindServiceFaulted:
		return "service_faulted"
	case KindCallTimeout:
		return "call_timeout"
	case KindCancelled:
		return "cancelled"
	case KindConnectionLost:
		return "connection_lost"
	case KindSerializationFailed:
		return "serialization_failed"
	case KindCryptoFailed:
		return "crypto_failed"
	case KindDuplicateRegistration:
		return "duplicate_registration"
	case KindInternalError:
		return "internal_error"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// maxInnerDepth bounds the recursive walk over Fault.Inner chains so a
// cyclical or pathological service-side error cannot blow the stack or the
// wire payload.
const maxInnerDepth = 16

// Fault is the serialized record carried in a result envelope's payload
// when that envelope's error flag is set. It mirrors the fault shape of
// spec §7: a type name, message, stack text, free-form data, and an
// optional recursive inner cause.
type Fault struct {
	TypeName  string
	Message   string
	StackText string
	Data      map[string]string
	Inner     *Fault
}

// Error implements the error interface so *Fault can be returned and
// compared like any other Go error.
func (f *Fault) Error() string {
	if f == nil {
		return "<nil fault>"
	}
	if f.Inner != nil {
		return fmt.Sprintf("%s: %s (caused by: %s)", f.TypeName, f.Message, f.Inner.Error())
	}
	return fmt.Sprintf("%s: %s", f.TypeName, f.Message)
}

// Unwrap lets errors.Is/errors.As walk the Inner chain using the standard
// library's error-wrapping conventions.
func (f *Fault) Unwrap() error {
	if f == nil || f.Inner == nil {
		return nil
	}
	return f.Inner
}

// FromError builds a Fault from an arbitrary Go error, walking any chain
// produced by errors.Unwrap up to maxInnerDepth levels. Errors that are not
// themselves *Fault are captured as a stand-in record preserving only
// TypeName ("error"), Message, and an empty StackText -- matching spec §7's
// "non-serializable faults are substituted by a stand-in record" rule.
func FromError(err error) *Fault {
	return fromErrorDepth(err, 0)
}

func fromErrorDepth(err error, depth int) *Fault {
	if err == nil {
		return nil
	}
	if f, ok := err.(*Fault); ok {
		if depth >= maxInnerDepth {
			return &Fault{TypeName: f.TypeName, Message: f.Message, StackText: f.StackText}
		}
		clone := &Fault{TypeName: f.TypeName, Message: f.Message, StackText: f.StackText, Data: f.Data}
		if f.Inner != nil {
			clone.Inner = fromErrorDepth(f.Inner, depth+1)
		}
		return clone
	}

	fault := &Fault{TypeName: "error", Message: err.Error()}
	if depth >= maxInnerDepth {
		return fault
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		if inner := u.Unwrap(); inner != nil {
			fault.Inner = fromErrorDepth(inner, depth+1)
		}
	}
	return fault
}

// New builds a Fault directly from a Kind, without an underlying Go error.
// The Kind's String() becomes the TypeName so clients can branch on it.
func New(kind Kind, message string) *Fault {
	return &Fault{TypeName: kind.String(), Message: message}
}

// Is reports whether err is a *Fault whose TypeName matches kind's string
// form. This is the primary way callers branch on the closed Kind set
// after an Invoke returns an error.
func Is(err error, kind Kind) bool {
	f, ok := err.(*Fault)
	if !ok {
		return false
	}
	return f.TypeName == kind.String()
}

// ToChain flattens f and its Inner chain into the wire shape carried by an
// error envelope's payload (protocol.FaultChain), truncated at
// maxInnerDepth frames.
func (f *Fault) ToChain() protocol.FaultChain {
	var chain protocol.FaultChain
	cur := f
	for cur != nil && len(chain.Frames) < maxInnerDepth {
		var data []protocol.FaultDatum
		for k, v := range cur.Data {
			data = append(data, protocol.FaultDatum{Key: k, Value: v})
		}
		chain.Frames = append(chain.Frames, protocol.FaultFrame{
			TypeName:  cur.TypeName,
			Message:   cur.Message,
			StackText: cur.StackText,
			Data:      data,
		})
		cur = cur.Inner
	}
	return chain
}

// FromChain reverses ToChain, rebuilding the in-process *Fault chain from a
// decoded wire FaultChain.
func FromChain(chain protocol.FaultChain) *Fault {
	var head, tail *Fault
	for _, frame := range chain.Frames {
		var data map[string]string
		if len(frame.Data) > 0 {
			data = make(map[string]string, len(frame.Data))
			for _, d := range frame.Data {
				data[d.Key] = d.Value
			}
		}
		f := &Fault{TypeName: frame.TypeName, Message: frame.Message, StackText: frame.StackText, Data: data}
		if head == nil {
			head = f
		} else {
			tail.Inner = f
		}
		tail = f
	}
	return head
}
