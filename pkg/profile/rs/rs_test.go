package rs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempInput(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPackUnpackRoundTripWithDroppedShards(t *testing.T) {
	content := strings.Repeat("blocknet rocks", 32)
	in := writeTempInput(t, content)
	outDir := t.TempDir()

	ikm := []byte("ikm-material")
	salt := []byte("salt-material")

	_, err := Pack(PackOptions{InPath: in, OutDir: outDir, K: 4, M: 2, IKM: ikm, Salt: salt})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(outDir, ShardFileName(1))))
	require.NoError(t, os.Remove(filepath.Join(outDir, ShardFileName(4))))

	outPath := filepath.Join(t.TempDir(), "recovered.txt")
	err = Unpack(UnpackOptions{InDir: outDir, OutPath: outPath, IKM: ikm, Salt: salt})
	require.NoError(t, err)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestVerifyDetectsTamperedShard(t *testing.T) {
	in := writeTempInput(t, "some content to pack")
	outDir := t.TempDir()
	ikm, salt := []byte("ikm"), []byte("salt")

	_, err := Pack(PackOptions{InPath: in, OutDir: outDir, K: 3, M: 2, IKM: ikm, Salt: salt})
	require.NoError(t, err)

	require.NoError(t, Verify(outDir))

	shardPath := filepath.Join(outDir, ShardFileName(0))
	data, err := os.ReadFile(shardPath)
	require.NoError(t, err)
	data[0] ^= 0xFF
	require.NoError(t, os.WriteFile(shardPath, data, 0o644))

	err = Verify(outDir)
	assert.ErrorIs(t, err, ErrMerkleMismatch)
}

func TestPackManifestMatchesRecomputedMerkleAndSCID(t *testing.T) {
	content := "repeat-this-content"
	in := writeTempInput(t, content)
	ikm, salt := []byte("ikm"), []byte("salt")

	out1 := t.TempDir()
	m1, err := Pack(PackOptions{InPath: in, OutDir: out1, K: 2, M: 1, IKM: ikm, Salt: salt})
	require.NoError(t, err)

	// Pack always seals under a fresh random nonce, so this checks one
	// pack's own consistency: Verify recomputes the merkle root and scid
	// from the shards on disk and compares them to the manifest.
	assert.NoError(t, Verify(out1))
	assert.NotEmpty(t, m1.SCID)
	assert.NotEmpty(t, m1.Commit.MerkleRoot)
}
