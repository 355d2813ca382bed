// Package protocol defines the wire-level message shapes carried inside
// envelope payloads (spec §3/§6) and the Serializer port each one is
// marshaled through.
package protocol

// ParamMsg is one call argument or out-parameter (spec §3). Field order is
// significant: go-xdr marshals struct fields positionally, XDR having no
// notion of field names on the wire.
type ParamMsg struct {
	Name      string
	TypeName  string
	IsOut     bool
	IsNull    bool
	ValueBlob []byte
}

// CallContextEntry is one name/value pair of ambient call-context state
// (spec §4.10), carried on both call and result messages.
type CallContextEntry struct {
	Name      string
	ValueBlob []byte
}

// MethodCallMessage is the payload of a "call" envelope (spec §3/§6).
type MethodCallMessage struct {
	ServiceName         string
	MethodName          string
	GenericTypeArgNames []string
	Parameters          []ParamMsg
	CallContextEntries  []CallContextEntry
}

// OutParamMsg carries the post-call value of one out-parameter.
type OutParamMsg struct {
	Name      string
	ValueBlob []byte
}

// MethodCallResultMessage is the success-path payload of a "result"
// envelope (spec §3/§6). On failure the envelope's error flag is set and
// the payload is a FaultRecord instead.
type MethodCallResultMessage struct {
	IsReturnNull       bool
	ReturnBlob         []byte
	OutParameters      []OutParamMsg
	CallContextEntries []CallContextEntry
}

// FaultDatum is one key/value pair of a fault's diagnostic data (spec §7).
// XDR has no map type, so the `data: map<str,value>` of spec §7 is carried
// as a sequence of pairs, the same shape used for call-context entries.
type FaultDatum struct {
	Key   string
	Value string
}

// FaultFrame is one level of a propagated service exception (spec §7).
// XDR's reflection-based encoder has no notion of a recursive/optional
// pointer field, so the `inner?` chain of spec §7 is carried flattened:
// FaultChain.Frames holds the outermost fault first and each successive
// inner cause after it, truncated at the 16-level depth limit.
type FaultFrame struct {
	TypeName  string
	Message   string
	StackText string
	Data      []FaultDatum
}

// FaultChain is the wire payload of an error envelope (spec §7).
type FaultChain struct {
	Frames []FaultFrame
}

// DelegateHandle is the placeholder value a client ships in a ParamMsg's
// ValueBlob in place of a delegate-typed argument (spec §4.9): the
// server decodes it and materializes a proxy delegate bound to the
// sending session instead of deserializing a concrete value.
type DelegateHandle struct {
	HandlerKey [16]byte
	Signature  string
}

// RemoteDelegateInvocationMessage is the payload of a "delegate" envelope
// (spec §3/§4.9): a server-held proxy invoking a client-side callback.
type RemoteDelegateInvocationMessage struct {
	HandlerKey [16]byte
	ArgBlobs   [][]byte
}

// Credential is one name/value pair carried in an "auth" envelope (spec §6).
type Credential struct {
	Name  string
	Value string
}

// AuthMessage is the payload of an "auth" envelope.
type AuthMessage struct {
	Credentials []Credential
}

// AuthResponseMessage is the payload of an "auth_response" envelope.
type AuthResponseMessage struct {
	IsAuthenticated    bool
	Name               string
	Domain             string
	AuthenticationType string
	Roles              []string
}
