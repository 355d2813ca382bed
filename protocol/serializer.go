package protocol

// Serializer is the port every message struct and user argument value
// passes through on its way to/from a payload blob (spec §4.4). The core
// depends only on this interface, never on a concrete wire format.
type Serializer interface {
	// Serialize encodes v to bytes. v is a pointer to one of the message
	// structs in this package, or a user argument value whose concrete
	// type is known statically from the service interface descriptor.
	Serialize(v any) ([]byte, error)

	// Deserialize decodes data into out, a pointer to the expected type.
	Deserialize(data []byte, out any) error

	// NeedsEnvelope reports whether single scalar values must be wrapped
	// in a one-field record before Serialize can handle them (spec
	// §4.4(c)). When true, callers use EncodeValue/DecodeValue.
	NeedsEnvelope() bool
}
