// Package corecrypto implements the fixed cryptographic pipeline of spec
// §4.3: RSA keypair generation, RSA-OAEP key wrap, AES-128-CBC+PKCS7
// envelope encryption, and detached RSA signatures over payload||iv. None
// of these algorithm choices are wire-configurable -- only the RSA key
// size is.
package corecrypto

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DefaultRSAKeyBits is the default RSA modulus size when a deployment
// does not override rsa_key_size (spec §6).
const DefaultRSAKeyBits = 4096

// AESKeySize is the fixed symmetric key size: AES-128.
const AESKeySize = 16

// IVSize is the fixed CBC initialization vector size.
const IVSize = 16

// ErrCryptoFailed wraps any decryption/signature-verification failure so
// callers can map it to faults.KindCryptoFailed without inspecting
// message text.
var ErrCryptoFailed = errors.New("crypto_failed")

// GenerateKeyPair creates a fresh RSA keypair of the given bit size.
func GenerateKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits <= 0 {
		bits = DefaultRSAKeyBits
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}
	return key, nil
}

// GenerateSymmetricKey returns a fresh random AES-128 key, used once per
// session at handshake time (spec §4.7 step 2).
func GenerateSymmetricKey() ([]byte, error) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate symmetric key: %w", err)
	}
	return key, nil
}

// sessionKeyInfo domain-separates DeriveSessionKey from any other HKDF
// consumer that might one day share the same RSA-unwrapped secret.
var sessionKeyInfo = []byte("coreremoting session key v1")

// DeriveSessionKey expands the RSA-unwrapped hello secret into the actual
// AES-128 key used for the session's envelope encryption, via HKDF-SHA256
// (spec §4.7 step 2). sessionID salts the expansion so two sessions never
// derive the same key even if a wrapped secret were ever reused, and
// neither peer ever encrypts directly under RSA-unwrapped key material.
func DeriveSessionKey(secret, sessionID []byte) ([]byte, error) {
	key := make([]byte, AESKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, sessionID, sessionKeyInfo), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return key, nil
}

// WrapKey encrypts a symmetric key under the peer's RSA public key using
// OAEP with SHA-256, for transport inside a hello envelope's payload.
func WrapKey(pub *rsa.PublicKey, symmetricKey []byte) ([]byte, error) {
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, symmetricKey, nil)
	if err != nil {
		return nil, fmt.Errorf("wrap symmetric key: %w", err)
	}
	return wrapped, nil
}

// UnwrapKey decrypts a key wrapped by WrapKey using the owning private key.
func UnwrapKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrapped, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap symmetric key: %v", ErrCryptoFailed, err)
	}
	return key, nil
}

// pkcs7Pad appends PKCS7 padding so data is a multiple of blockSize.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(data, padding...)
}

// pkcs7Unpad strips PKCS7 padding, validating it so malformed ciphertext
// cannot smuggle extra bytes past the caller.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not block-aligned", ErrCryptoFailed)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("%w: invalid PKCS7 padding", ErrCryptoFailed)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("%w: invalid PKCS7 padding", ErrCryptoFailed)
		}
	}
	return data[:len(data)-padLen], nil
}

// Encrypt AES-128-CBC+PKCS7 encrypts plaintext under key, generating a
// fresh random IV and returning it alongside the ciphertext.
func Encrypt(key, plaintext []byte) (ciphertext, iv []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("new AES cipher: %w", err)
	}

	iv = make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("generate IV: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)

	return ciphertext, iv, nil
}

// Decrypt reverses Encrypt.
func Decrypt(key, ciphertext, iv []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes", ErrCryptoFailed, IVSize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new AES cipher: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not block-aligned", ErrCryptoFailed)
	}

	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)

	return pkcs7Unpad(plaintext, aes.BlockSize)
}

// Sign produces a detached RSA-PSS signature over payload||iv using the
// sender's private key (spec §4.3).
func Sign(priv *rsa.PrivateKey, payload, iv []byte) ([]byte, error) {
	digest := sha256.Sum256(append(append([]byte{}, payload...), iv...))
	sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA256, digest[:], nil)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// Verify checks a detached signature produced by Sign.
func Verify(pub *rsa.PublicKey, payload, iv, signature []byte) error {
	digest := sha256.Sum256(append(append([]byte{}, payload...), iv...))
	if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], signature, nil); err != nil {
		return fmt.Errorf("%w: signature verification failed: %v", ErrCryptoFailed, err)
	}
	return nil
}
