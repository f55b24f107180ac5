package erasure

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeReconstructRoundTripAllPresent(t *testing.T) {
	buf := []byte(strings.Repeat("blocknet rocks", 32))
	shards, meta, err := Encode(buf, 4, 2)
	require.NoError(t, err)
	require.Len(t, shards, 6)
	assert.Equal(t, len(buf), meta.OriginalLen)

	got, err := Reconstruct(shards, 4, 2)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(buf, got[:len(buf)]))
}

func TestReconstructWithDroppedShards(t *testing.T) {
	buf := []byte(strings.Repeat("blocknet rocks", 32))
	shards, _, err := Encode(buf, 4, 2)
	require.NoError(t, err)

	sparse := make([][]byte, len(shards))
	copy(sparse, shards)
	sparse[1] = nil
	sparse[4] = nil

	got, err := Reconstruct(sparse, 4, 2)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(buf, got[:len(buf)]))
}

func TestReconstructInsufficientShards(t *testing.T) {
	buf := []byte("short payload")
	shards, _, err := Encode(buf, 4, 2)
	require.NoError(t, err)

	sparse := make([][]byte, len(shards))
	sparse[0] = shards[0]
	sparse[1] = shards[1]
	sparse[2] = shards[2]
	// only 3 of 4 required present

	_, err = Reconstruct(sparse, 4, 2)
	assert.ErrorIs(t, err, ErrInsufficientShards)
}

func TestEncodeRejectsTooManyShards(t *testing.T) {
	_, _, err := Encode([]byte("x"), 200, 100)
	assert.ErrorIs(t, err, ErrTooManyShards)
}

func TestShardLen(t *testing.T) {
	assert.Equal(t, 4, ShardLen(10, 3))
	assert.Equal(t, 1, ShardLen(1, 4))
}
