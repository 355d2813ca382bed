// Package xdrcodec implements protocol.Serializer on top of
// github.com/rasky/go-xdr, the reflection-based XDR (RFC 4506) codec the
// teacher already depends on for its own wire protocol work. XDR is a
// natural match for CoreRemoting's wire grammar, which is itself a
// sequence of length-prefixed fields in declaration order.
package xdrcodec

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"

	"github.com/coreremoting/coreremoting/protocol"
)

// Codec is the default protocol.Serializer.
type Codec struct{}

// New returns a ready-to-use Codec. It carries no state.
func New() *Codec {
	return &Codec{}
}

// Serialize encodes v with go-xdr's struct-field reflection. v must be a
// struct, pointer to struct, or one of the scalar/slice types go-xdr
// supports natively.
func (c *Codec) Serialize(v any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, fmt.Errorf("xdr marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes data into out, which must be a pointer to the type
// previously passed to Serialize.
func (c *Codec) Deserialize(data []byte, out any) error {
	if _, err := xdr.Unmarshal(bytes.NewReader(data), out); err != nil {
		return fmt.Errorf("xdr unmarshal: %w", err)
	}
	return nil
}

// NeedsEnvelope is true: go-xdr reflects over a struct's field types and
// has no case for reflect.Interface, so a bare scalar argument must be
// wrapped by protocol.EncodeValue/DecodeValue before Serialize can encode
// it -- those helpers synthesize a concrete-typed field rather than
// passing one declared as `any`.
func (c *Codec) NeedsEnvelope() bool {
	return true
}

var _ protocol.Serializer = (*Codec)(nil)
