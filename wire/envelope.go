package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MessageType is one of the recognized wire envelope types (spec §4.2).
type MessageType string

// Recognized message types. Any other string is accepted on decode but
// logged and discarded by the receiver (spec §4.2) rather than tearing
// down the session.
const (
	MessageHello         MessageType = "hello"
	MessageAuth          MessageType = "auth"
	MessageAuthResponse  MessageType = "auth_response"
	MessageCall          MessageType = "call"
	MessageResult        MessageType = "result"
	MessageDelegate      MessageType = "delegate"
	MessageGoodbye       MessageType = "goodbye"
	MessageError         MessageType = "error"
)

// CorrelationIDSize is the fixed width of a correlation id / session id /
// handler key on the wire: 128 bits.
const CorrelationIDSize = 16

// Envelope is the single shape every frame carries (spec §4.2/§6):
//
//	message_type:str  error:u8  correlation_id:bytes  iv:bytes  payload:bytes
//
// correlation_id may be empty for unsolicited messages (e.g. server-pushed
// delegate invocations that expect no reply). iv is empty iff the owning
// session is in plaintext mode.
type Envelope struct {
	Type          MessageType
	Error         bool
	CorrelationID []byte
	IV            []byte
	Payload       []byte
}

// Encode serializes the envelope using the fixed field order of spec §4.2:
// message_type, error, correlation_id, iv, payload -- every variable-length
// field length-prefixed with a little-endian u32.
func (e *Envelope) Encode() []byte {
	var buf bytes.Buffer

	writeLPString(&buf, string(e.Type))

	var errByte byte
	if e.Error {
		errByte = 1
	}
	buf.WriteByte(errByte)

	writeLPBytes(&buf, e.CorrelationID)
	writeLPBytes(&buf, e.IV)
	writeLPBytes(&buf, e.Payload)

	return buf.Bytes()
}

// Decode parses an envelope previously produced by Encode. It never
// validates encryption-mode invariants -- that is the session's job
// (ReceiveEnvelope / handshake), since Decode has no notion of session
// state.
func Decode(data []byte) (*Envelope, error) {
	r := bytes.NewReader(data)

	msgType, err := readLPString(r)
	if err != nil {
		return nil, &ErrProtocolViolation{Reason: "truncated message_type: " + err.Error()}
	}

	errByte, err := r.ReadByte()
	if err != nil {
		return nil, &ErrProtocolViolation{Reason: "truncated error flag"}
	}
	if errByte > 1 {
		return nil, &ErrProtocolViolation{Reason: fmt.Sprintf("invalid error flag byte %d", errByte)}
	}

	corrID, err := readLPBytes(r)
	if err != nil {
		return nil, &ErrProtocolViolation{Reason: "truncated correlation_id: " + err.Error()}
	}
	iv, err := readLPBytes(r)
	if err != nil {
		return nil, &ErrProtocolViolation{Reason: "truncated iv: " + err.Error()}
	}
	payload, err := readLPBytes(r)
	if err != nil {
		return nil, &ErrProtocolViolation{Reason: "truncated payload: " + err.Error()}
	}

	if corrID != nil && len(corrID) != 0 && len(corrID) != CorrelationIDSize {
		return nil, &ErrProtocolViolation{Reason: fmt.Sprintf("correlation_id must be 0 or %d bytes, got %d", CorrelationIDSize, len(corrID))}
	}

	return &Envelope{
		Type:          MessageType(msgType),
		Error:         errByte == 1,
		CorrelationID: corrID,
		IV:            iv,
		Payload:       payload,
	}, nil
}

func writeLPBytes(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func writeLPString(buf *bytes.Buffer, s string) {
	writeLPBytes(buf, []byte(s))
}

func readLPBytes(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n == 0 {
		return []byte{}, nil
	}
	if uint64(n) > uint64(HardMaxFrameBytes) {
		return nil, fmt.Errorf("field length %d exceeds hard ceiling", n)
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func readLPString(r *bytes.Reader) (string, error) {
	b, err := readLPBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// IsRecognized reports whether t is one of the envelope types this core
// assigns meaning to. Unrecognized types are not an error by themselves --
// the receive loop logs and discards them (spec §4.2).
func IsRecognized(t MessageType) bool {
	switch t {
	case MessageHello, MessageAuth, MessageAuthResponse, MessageCall, MessageResult, MessageDelegate, MessageGoodbye, MessageError:
		return true
	default:
		return false
	}
}
