// Package fountain implements the LT-style rateless encoder and peeling
// decoder used by the fountain packaging profile.
package fountain

import (
	"fmt"
	"math/rand"
	"sort"
)

// Metadata describes a fountain-encoded ciphertext: how it was split into
// blocks and which degree distribution parameters the encoder used for its
// coded phase.
type Metadata struct {
	OriginalLen int     `json:"original_len"`
	BlockLen    int     `json:"block_len"`
	K           int     `json:"k"`
	Seed        uint64  `json:"seed"`
	C           float64 `json:"c"`
	Delta       float64 `json:"delta"`
	CtLen       int     `json:"ct_len"`
	Nonce       string  `json:"nonce"`
	AAD         string  `json:"aad"`
}

// Packet is one emitted unit: a sorted, unique set of block indices and
// the XOR of those blocks.
type Packet struct {
	IDs  []int  `json:"ids"`
	Body []byte `json:"-"`
}

// Encoder partitions a ciphertext into k fixed-length blocks and emits a
// systematic-then-coded packet stream.
type Encoder struct {
	meta    Metadata
	blocks  [][]byte
	soliton *solitonDistribution
	emitted uint64 // counts packets emitted so far, doubles as the PRNG counter
	seedSrc uint64
}

// NewEncoder partitions ct into ceil(len(ct)/blockLen) blocks of exactly
// blockLen bytes, zero-padding the final block. seed seeds the encoder's
// coded-phase PRNG; it is advisory only (also recorded in Metadata.Seed)
// and receivers must not rely on it to decode.
func NewEncoder(ct []byte, blockLen int, seed uint64, c, delta float64) (*Encoder, error) {
	if blockLen <= 0 {
		return nil, fmt.Errorf("fountain: block_len must be > 0")
	}
	k := (len(ct) + blockLen - 1) / blockLen
	if k == 0 {
		k = 1
	}
	return newEncoder(ct, k, blockLen, seed, c, delta)
}

// NewEncoderWithK partitions ct into exactly k blocks of
// ceil(len(ct)/k) bytes each, zero-padding past the end of ct. The block
// count is honored even when the tail blocks carry no ciphertext, so a
// stream requested at k blocks always emits k systematic packets.
func NewEncoderWithK(ct []byte, k int, seed uint64, c, delta float64) (*Encoder, error) {
	if k < 1 {
		return nil, fmt.Errorf("fountain: k must be >= 1")
	}
	blockLen := (len(ct) + k - 1) / k
	if blockLen == 0 {
		blockLen = 1
	}
	return newEncoder(ct, k, blockLen, seed, c, delta)
}

func newEncoder(ct []byte, k, blockLen int, seed uint64, c, delta float64) (*Encoder, error) {
	blocks := make([][]byte, k)
	for i := 0; i < k; i++ {
		start := i * blockLen
		end := start + blockLen
		block := make([]byte, blockLen)
		if start < len(ct) {
			copyEnd := end
			if copyEnd > len(ct) {
				copyEnd = len(ct)
			}
			copy(block, ct[start:copyEnd])
		}
		blocks[i] = block
	}

	return &Encoder{
		meta: Metadata{
			OriginalLen: len(ct),
			BlockLen:    blockLen,
			K:           k,
			Seed:        seed,
			C:           c,
			Delta:       delta,
			CtLen:       len(ct),
		},
		blocks:  blocks,
		soliton: newSolitonDistribution(k, c, delta),
		seedSrc: seed,
	}, nil
}

// Metadata returns the fixed metadata for this encoder's block partition.
func (e *Encoder) Metadata() Metadata {
	return e.meta
}

// K returns the number of blocks (and thus systematic packets).
func (e *Encoder) K() int {
	return e.meta.K
}

// Next emits the next packet in the stream: for the first K calls, the
// systematic packets in order; thereafter, coded packets sampled from the
// robust-soliton distribution.
func (e *Encoder) Next() Packet {
	idx := e.emitted
	e.emitted++

	if int(idx) < e.meta.K {
		i := int(idx)
		body := make([]byte, e.meta.BlockLen)
		copy(body, e.blocks[i])
		return Packet{IDs: []int{i}, Body: body}
	}

	rng := rand.New(rand.NewSource(int64(e.seedSrc + idx)))
	d := e.soliton.sample(rng.Float64())
	if d > e.meta.K {
		d = e.meta.K
	}

	perm := rng.Perm(e.meta.K)
	ids := make([]int, d)
	copy(ids, perm[:d])
	sort.Ints(ids)

	body := make([]byte, e.meta.BlockLen)
	for _, id := range ids {
		xorInto(body, e.blocks[id])
	}
	return Packet{IDs: ids, Body: body}
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}
