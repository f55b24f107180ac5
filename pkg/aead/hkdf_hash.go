package aead

import (
	"crypto/sha256"
	"hash"
	"io"
)

func newSHA256() hash.Hash {
	return sha256.New()
}

func fillFrom(r io.Reader, buf []byte) (int, error) {
	return io.ReadFull(r, buf)
}
