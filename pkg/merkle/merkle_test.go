package merkle

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootDeterministic(t *testing.T) {
	shards := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	r1 := Root(shards)
	r2 := Root(shards)
	assert.Equal(t, r1, r2)
}

func TestRootOddCountDuplicatesLast(t *testing.T) {
	shards := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	root := Root(shards)

	l0 := LeafHash([]byte("a"))
	l1 := LeafHash([]byte("b"))
	l2 := LeafHash([]byte("c"))
	n0 := nodeHash(l0, l1)
	n1 := nodeHash(l2, l2)
	expected := nodeHash(n0, n1)

	assert.Equal(t, expected, root)
}

func TestRootEmptySentinel(t *testing.T) {
	assert.Equal(t, emptySentinel, Root(nil))
}

func TestSCIDStableAcrossReserialization(t *testing.T) {
	root := Root([][]byte{[]byte("shard0"), []byte("shard1")})
	commit := SeriesCommit{
		Version:    1,
		SizeBytes:  1024,
		ChunkSize:  0,
		K:          4,
		M:          2,
		AEADAlg:    "XChaCha20-Poly1305",
		MerkleRoot: hex.EncodeToString(root[:]),
	}

	id1, err := SCID(commit)
	require.NoError(t, err)
	id2, err := SCID(commit)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	other := commit
	other.SizeBytes = 2048
	id3, err := SCID(other)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}
