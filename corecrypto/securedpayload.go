package corecrypto

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/binary"
	"fmt"
)

// SecuredPayload builds the encrypted-and-signed framing of spec §4.3:
// when encryption is active, an envelope's payload field carries
//
//	ciphertext_len:u32  ciphertext  signature_len:u32  signature
//
// instead of the bare plaintext message. The signature covers
// (ciphertext || iv), not this length-framed blob.
func SecuredPayload(symmetricKey []byte, signingKey *rsa.PrivateKey, plaintext []byte) (payload, iv []byte, err error) {
	ciphertext, iv, err := Encrypt(symmetricKey, plaintext)
	if err != nil {
		return nil, nil, err
	}

	sig, err := Sign(signingKey, ciphertext, iv)
	if err != nil {
		return nil, nil, err
	}

	var buf bytes.Buffer
	writeLP(&buf, ciphertext)
	writeLP(&buf, sig)

	return buf.Bytes(), iv, nil
}

// OpenSecuredPayload reverses SecuredPayload: it verifies the detached
// signature over (ciphertext || iv) using the sender's public key, then
// decrypts the ciphertext with the session's shared symmetric key.
func OpenSecuredPayload(symmetricKey []byte, senderPublicKey *rsa.PublicKey, payload, iv []byte) ([]byte, error) {
	r := bytes.NewReader(payload)

	ciphertext, err := readLP(r)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed secured payload: %v", ErrCryptoFailed, err)
	}
	sig, err := readLP(r)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed secured payload: %v", ErrCryptoFailed, err)
	}

	if err := Verify(senderPublicKey, ciphertext, iv, sig); err != nil {
		return nil, err
	}

	return Decrypt(symmetricKey, ciphertext, iv)
}

func writeLP(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func readLP(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := r.Read(lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	out := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MarshalPublicKey encodes an RSA public key as a PKIX DER blob, the
// format carried in a client's "hello" payload when encryption is
// requested (spec §4.7 step 1).
func MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

// ParsePublicKey reverses MarshalPublicKey.
func ParsePublicKey(blob []byte) (*rsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: parse public key: %v", ErrCryptoFailed, err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is not RSA", ErrCryptoFailed)
	}
	return rsaKey, nil
}
