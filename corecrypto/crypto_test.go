package corecrypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyWrapRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair(2048)
	require.NoError(t, err)

	symKey, err := GenerateSymmetricKey()
	require.NoError(t, err)
	assert.Len(t, symKey, AESKeySize)

	wrapped, err := WrapKey(&priv.PublicKey, symKey)
	require.NoError(t, err)

	unwrapped, err := UnwrapKey(priv, wrapped)
	require.NoError(t, err)
	assert.Equal(t, symKey, unwrapped)
}

func TestDeriveSessionKeyIsDeterministicAndSaltBound(t *testing.T) {
	secret := []byte("raw rsa-unwrapped secret")
	sessionA := []byte("session-a-id----")
	sessionB := []byte("session-b-id----")

	keyA1, err := DeriveSessionKey(secret, sessionA)
	require.NoError(t, err)
	assert.Len(t, keyA1, AESKeySize)

	keyA2, err := DeriveSessionKey(secret, sessionA)
	require.NoError(t, err)
	assert.Equal(t, keyA1, keyA2)

	keyB, err := DeriveSessionKey(secret, sessionB)
	require.NoError(t, err)
	assert.NotEqual(t, keyA1, keyB)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)

	plaintexts := [][]byte{
		[]byte(""),
		[]byte("x"),
		[]byte("a full AES block of sixteen byte"),
		[]byte("a message considerably longer than one cipher block to exercise chaining"),
	}

	for _, pt := range plaintexts {
		ciphertext, iv, err := Encrypt(key, pt)
		require.NoError(t, err)
		assert.Len(t, iv, IVSize)

		got, err := Decrypt(key, ciphertext, iv)
		require.NoError(t, err)
		assert.Equal(t, pt, got)
	}
}

func TestEncryptProducesDistinctIVs(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)

	_, iv1, err := Encrypt(key, []byte("payload"))
	require.NoError(t, err)
	_, iv2, err := Encrypt(key, []byte("payload"))
	require.NoError(t, err)

	assert.NotEqual(t, iv1, iv2)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair(2048)
	require.NoError(t, err)

	payload := []byte("method-call-envelope-bytes")
	iv := []byte("0123456789abcdef")

	sig, err := Sign(priv, payload, iv)
	require.NoError(t, err)

	err = Verify(&priv.PublicKey, payload, iv, sig)
	assert.NoError(t, err)
}

// TestVerifyRejectsBitFlippedPayload exercises testable property 4: flipping
// any single bit of payload or iv after signing causes verification to fail
// with crypto_failed.
func TestVerifyRejectsBitFlippedPayload(t *testing.T) {
	priv, err := GenerateKeyPair(2048)
	require.NoError(t, err)

	payload := []byte("method-call-envelope-bytes")
	iv := []byte("0123456789abcdef")

	sig, err := Sign(priv, payload, iv)
	require.NoError(t, err)

	flippedPayload := append([]byte{}, payload...)
	flippedPayload[0] ^= 0x01
	err = Verify(&priv.PublicKey, flippedPayload, iv, sig)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCryptoFailed)

	flippedIV := append([]byte{}, iv...)
	flippedIV[0] ^= 0x01
	err = Verify(&priv.PublicKey, payload, flippedIV, sig)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCryptoFailed)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	priv, err := GenerateKeyPair(2048)
	require.NoError(t, err)
	other, err := GenerateKeyPair(2048)
	require.NoError(t, err)

	payload := []byte("payload")
	iv := []byte("0123456789abcdef")

	sig, err := Sign(priv, payload, iv)
	require.NoError(t, err)

	err = Verify(&other.PublicKey, payload, iv, sig)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCryptoFailed)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)

	ciphertext, iv, err := Encrypt(key, []byte("a full secret message"))
	require.NoError(t, err)

	// Flip a byte in the final ciphertext block so PKCS7 padding
	// validation on decrypt almost certainly fails.
	ciphertext[len(ciphertext)-1] ^= 0xFF
	_, err = Decrypt(key, ciphertext, iv)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCryptoFailed)
}

func TestSecuredPayloadRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair(2048)
	require.NoError(t, err)

	symKey, err := GenerateSymmetricKey()
	require.NoError(t, err)

	plaintext := []byte("invoke Greeter.SayHello(\"world\")")

	payload, iv, err := SecuredPayload(symKey, priv, plaintext)
	require.NoError(t, err)

	got, err := OpenSecuredPayload(symKey, &priv.PublicKey, payload, iv)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestOpenSecuredPayloadRejectsForgedSignature(t *testing.T) {
	priv, err := GenerateKeyPair(2048)
	require.NoError(t, err)
	attacker, err := GenerateKeyPair(2048)
	require.NoError(t, err)

	symKey, err := GenerateSymmetricKey()
	require.NoError(t, err)

	payload, iv, err := SecuredPayload(symKey, attacker, []byte("forged call"))
	require.NoError(t, err)

	_, err = OpenSecuredPayload(symKey, &priv.PublicKey, payload, iv)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCryptoFailed)
}

func TestPublicKeyMarshalRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair(2048)
	require.NoError(t, err)

	blob, err := MarshalPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	parsed, err := ParsePublicKey(blob)
	require.NoError(t, err)
	assert.True(t, priv.PublicKey.Equal(parsed))
}
