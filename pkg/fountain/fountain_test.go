package fountain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoderEmitsSystematicFirst(t *testing.T) {
	ct := make([]byte, 1024)
	rand.New(rand.NewSource(1)).Read(ct)

	enc, err := NewEncoder(ct, 64, 7, 0.1, 0.05)
	require.NoError(t, err)
	require.Equal(t, 16, enc.K())

	for i := 0; i < 16; i++ {
		p := enc.Next()
		require.Len(t, p.IDs, 1)
		assert.Equal(t, i, p.IDs[0])
	}
}

func TestEncoderWithKHonorsBlockCount(t *testing.T) {
	// 100 bytes over 32 blocks: block_len ceil(100/32)=4 would re-derive
	// only 25 blocks; the explicit block count must win
	ct := make([]byte, 100)
	rand.New(rand.NewSource(5)).Read(ct)

	enc, err := NewEncoderWithK(ct, 32, 1, 0.1, 0.05)
	require.NoError(t, err)
	require.Equal(t, 32, enc.K())

	dec := NewDecoder(enc.Metadata())
	for i := 0; i < 32; i++ {
		p := enc.Next()
		require.Len(t, p.IDs, 1)
		require.Equal(t, i, p.IDs[0])
		require.NoError(t, dec.Receive(p))
	}
	require.True(t, dec.Done())
	out, err := dec.Finalize()
	require.NoError(t, err)
	assert.Equal(t, ct, out)
}

func TestFountainRoundTripWithDrop(t *testing.T) {
	ct := make([]byte, 1024)
	rand.New(rand.NewSource(2)).Read(ct)

	enc, err := NewEncoder(ct, 64, 99, 0.1, 0.05)
	require.NoError(t, err)
	meta := enc.Metadata()

	dec := NewDecoder(meta)
	rng := rand.New(rand.NewSource(3))

	maxPackets := int(1.5 * float64(enc.K()))
	accepted := 0
	for i := 0; i < maxPackets*4 && !dec.Done(); i++ {
		p := enc.Next()
		if rng.Float64() < 0.15 {
			continue // simulate a dropped packet
		}
		accepted++
		require.NoError(t, dec.Receive(p))
	}

	require.True(t, dec.Done(), "decoder failed to converge")
	out, err := dec.Finalize()
	require.NoError(t, err)
	assert.Equal(t, ct, out)
}

func TestDecoderChainedCollapseRecoversExactBytes(t *testing.T) {
	// a=[1 0], b=[2 0], c=[3 0]; three multi-degree equations are pending
	// when the single systematic packet for c arrives, so solving c must
	// cascade through b and then a without corrupting either
	a := []byte{1, 0}
	b := []byte{2, 0}
	c := []byte{3, 0}
	xor := func(xs ...[]byte) []byte {
		out := make([]byte, 2)
		for _, x := range xs {
			for i := range out {
				out[i] ^= x[i]
			}
		}
		return out
	}

	dec := NewDecoder(Metadata{K: 3, BlockLen: 2, CtLen: 6})
	require.NoError(t, dec.Receive(Packet{IDs: []int{0, 1}, Body: xor(a, b)}))
	require.NoError(t, dec.Receive(Packet{IDs: []int{1, 2}, Body: xor(b, c)}))
	require.NoError(t, dec.Receive(Packet{IDs: []int{0, 1, 2}, Body: xor(a, b, c)}))
	require.False(t, dec.Done())

	require.NoError(t, dec.Receive(Packet{IDs: []int{2}, Body: c}))
	require.True(t, dec.Done())

	out, err := dec.Finalize()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 2, 0, 3, 0}, out)
}

func TestDecoderRandomizedShuffledIngest(t *testing.T) {
	// exactness under arbitrary delivery order: every trial shuffles the
	// packet stream so coded packets pile up as pending equations before
	// the systematic ones land, forcing deep substitution chains
	for trial := 0; trial < 60; trial++ {
		rng := rand.New(rand.NewSource(int64(trial)))

		k := 2 + rng.Intn(30)
		ct := make([]byte, 1+rng.Intn(2048))
		rng.Read(ct)

		enc, err := NewEncoderWithK(ct, k, rng.Uint64(), 0.1, 0.05)
		require.NoError(t, err)

		packets := make([]Packet, 3*k)
		for i := range packets {
			packets[i] = enc.Next()
		}
		rng.Shuffle(len(packets), func(i, j int) {
			packets[i], packets[j] = packets[j], packets[i]
		})

		dec := NewDecoder(enc.Metadata())
		for _, p := range packets {
			require.NoError(t, dec.Receive(p), "trial %d", trial)
			if dec.Done() {
				break
			}
		}
		require.True(t, dec.Done(), "trial %d", trial)
		out, err := dec.Finalize()
		require.NoError(t, err, "trial %d", trial)
		require.Equal(t, ct, out, "trial %d: recovered bytes differ", trial)
	}
}

func TestDecoderChecksMetadata(t *testing.T) {
	meta := Metadata{K: 4, BlockLen: 8, CtLen: 32}
	dec := NewDecoder(meta)
	require.NoError(t, dec.CheckMetadata(meta))

	other := meta
	other.BlockLen = 16
	assert.ErrorIs(t, dec.CheckMetadata(other), ErrMetadataMismatch)
}

func TestDecoderRejectsWrongPayloadLen(t *testing.T) {
	dec := NewDecoder(Metadata{K: 4, BlockLen: 8, CtLen: 32})
	err := dec.Receive(Packet{IDs: []int{0}, Body: make([]byte, 4)})
	assert.ErrorIs(t, err, ErrInvalidPayloadLen)
}

func TestDecoderRejectsEmptyIndices(t *testing.T) {
	dec := NewDecoder(Metadata{K: 4, BlockLen: 8, CtLen: 32})
	err := dec.Receive(Packet{IDs: nil, Body: make([]byte, 8)})
	assert.ErrorIs(t, err, ErrEmptyIndices)
}

func TestDecoderRejectsOutOfRangeIndex(t *testing.T) {
	dec := NewDecoder(Metadata{K: 4, BlockLen: 8, CtLen: 32})
	err := dec.Receive(Packet{IDs: []int{9}, Body: make([]byte, 8)})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestDecoderDetectsConflictingSolution(t *testing.T) {
	dec := NewDecoder(Metadata{K: 2, BlockLen: 4, CtLen: 8})
	require.NoError(t, dec.Receive(Packet{IDs: []int{0}, Body: []byte{1, 2, 3, 4}}))
	// the solved block is reduced out of the second packet first, leaving
	// zero indices with a nonzero payload
	err := dec.Receive(Packet{IDs: []int{0}, Body: []byte{9, 9, 9, 9}})
	assert.ErrorIs(t, err, ErrInconsistentEquation)
}

func TestDecoderIsIdempotentUnderDuplicates(t *testing.T) {
	ct := []byte("01234567abcdefgh") // 16 bytes, block_len 4 -> k=4
	enc, err := NewEncoder(ct, 4, 1, 0.1, 0.05)
	require.NoError(t, err)
	meta := enc.Metadata()

	dec := NewDecoder(meta)
	for i := 0; i < meta.K; i++ {
		p := enc.Next()
		require.NoError(t, dec.Receive(p))
		require.NoError(t, dec.Receive(p)) // duplicate
	}
	require.True(t, dec.Done())
	out, err := dec.Finalize()
	require.NoError(t, err)
	assert.Equal(t, ct, out)
}
