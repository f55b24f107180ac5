// Package aead implements the authenticated-encryption envelope shared by
// every packaging profile: key derivation from (IKM, salt), sealing and
// opening under XChaCha20-Poly1305, and the deterministic nonce scheme used
// by the streaming profile.
package aead

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// NonceSize is the fixed nonce length in bytes (192 bits), required by the
// streaming profile's counter-XOR derivation.
const NonceSize = chacha20poly1305.NonceSizeX

// TagSize is the AEAD authenticator length appended to every ciphertext.
const TagSize = 16

// AlgorithmID is the canonical AEAD algorithm name recorded in a Series
// Commit. The construction only requires a >=192-bit nonce and a 128-bit
// authenticator; this is the value this implementation pins.
const AlgorithmID = "XChaCha20-Poly1305"

// ErrOpenFailed is returned when authentication fails; callers must treat
// this as fatal and must never act on any partial plaintext.
var ErrOpenFailed = errors.New("aead: authentication failed")

// KeySchedule holds a derived symmetric key. It must be released with
// Close once the holder is done sealing or opening, which zero-fills the
// key bytes on every exit path.
type KeySchedule struct {
	key [chacha20poly1305.KeySize]byte
}

// Derive stretches (ikm, salt) into a 32-byte AEAD key via HKDF-SHA256.
func Derive(ikm, salt []byte) (*KeySchedule, error) {
	ks := &KeySchedule{}
	r := hkdf.New(newSHA256, ikm, salt, []byte("s3p-aead-key-v1"))
	if _, err := fillFrom(r, ks.key[:]); err != nil {
		return nil, fmt.Errorf("aead: derive key: %w", err)
	}
	return ks, nil
}

// Close zero-fills the key material. Safe to call multiple times.
func (ks *KeySchedule) Close() {
	if ks == nil {
		return
	}
	for i := range ks.key {
		ks.key[i] = 0
	}
}

// Seal encrypts plaintext under a fresh random nonce, returning
// ciphertext||tag and the nonce used.
func (ks *KeySchedule) Seal(aad, plaintext []byte) (ct, nonce []byte, err error) {
	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("aead: generate nonce: %w", err)
	}
	ct, err = ks.SealWithNonce(aad, nonce, plaintext)
	return ct, nonce, err
}

// SealWithNonce encrypts plaintext under an explicit, caller-supplied
// nonce. Used by the streaming profile with nonces from DeriveNonce.
func (ks *KeySchedule) SealWithNonce(aad, nonce, plaintext []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("aead: nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	aead, err := chacha20poly1305.NewX(ks.key[:])
	if err != nil {
		return nil, fmt.Errorf("aead: construct cipher: %w", err)
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open decrypts and authenticates ct. On any authentication failure it
// returns ErrOpenFailed and no plaintext bytes.
func (ks *KeySchedule) Open(aad, nonce, ct []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("aead: nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	aead, err := chacha20poly1305.NewX(ks.key[:])
	if err != nil {
		return nil, fmt.Errorf("aead: construct cipher: %w", err)
	}
	pt, err := aead.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return pt, nil
}

// DeriveNonce XORs the little-endian encoding of idx into the upper 8
// bytes of base, leaving base untouched. Used by the stream profile so
// that every chunk index produces a distinct nonce for a fixed base.
func DeriveNonce(base []byte, idx uint64) ([]byte, error) {
	if len(base) != NonceSize {
		return nil, fmt.Errorf("aead: nonce base must be %d bytes, got %d", NonceSize, len(base))
	}
	out := make([]byte, NonceSize)
	copy(out, base)
	var idxBytes [8]byte
	binary.LittleEndian.PutUint64(idxBytes[:], idx)
	for i := 0; i < 8; i++ {
		out[16+i] ^= idxBytes[i]
	}
	return out, nil
}

// RandomNonceBase generates a fresh random 24-byte nonce base for the
// stream profile.
func RandomNonceBase() ([]byte, error) {
	base := make([]byte, NonceSize)
	if _, err := rand.Read(base); err != nil {
		return nil, fmt.Errorf("aead: generate nonce base: %w", err)
	}
	return base, nil
}
