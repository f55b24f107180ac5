package aead

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	ks, err := Derive([]byte("ikm-material"), []byte("salt-material"))
	require.NoError(t, err)
	defer ks.Close()

	aad := []byte("s3p-manifest-v1")
	pt := []byte("blocknet rocks blocknet rocks blocknet rocks")

	ct, nonce, err := ks.Seal(aad, pt)
	require.NoError(t, err)

	got, err := ks.Open(aad, nonce, ct)
	require.NoError(t, err)
	assert.Equal(t, pt, got)
}

func TestOpenFailsOnTamperedCiphertext(t *testing.T) {
	ks, err := Derive([]byte("ikm"), []byte("salt"))
	require.NoError(t, err)
	defer ks.Close()

	aad := []byte("aad")
	ct, nonce, err := ks.Seal(aad, []byte("payload"))
	require.NoError(t, err)

	tampered := bytes.Clone(ct)
	tampered[0] ^= 0x01

	_, err = ks.Open(aad, nonce, tampered)
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestOpenFailsOnTamperedNonce(t *testing.T) {
	ks, err := Derive([]byte("ikm"), []byte("salt"))
	require.NoError(t, err)
	defer ks.Close()

	aad := []byte("aad")
	ct, nonce, err := ks.Seal(aad, []byte("payload"))
	require.NoError(t, err)

	tampered := bytes.Clone(nonce)
	tampered[len(tampered)-1] ^= 0x01

	_, err = ks.Open(aad, tampered, ct)
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestDeriveNonceUniqueness(t *testing.T) {
	base, err := RandomNonceBase()
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := uint64(0); i < 1000; i++ {
		n, err := DeriveNonce(base, i)
		require.NoError(t, err)
		require.Len(t, n, NonceSize)
		seen[string(n)] = struct{}{}
	}
	assert.Len(t, seen, 1000)
}

func TestDeriveNonceDeterministic(t *testing.T) {
	base, err := RandomNonceBase()
	require.NoError(t, err)

	n1, err := DeriveNonce(base, 42)
	require.NoError(t, err)
	n2, err := DeriveNonce(base, 42)
	require.NoError(t, err)
	assert.Equal(t, n1, n2)

	// base is untouched by derivation
	baseCopy := bytes.Clone(base)
	_, err = DeriveNonce(base, 7)
	require.NoError(t, err)
	assert.Equal(t, baseCopy, base)
}
