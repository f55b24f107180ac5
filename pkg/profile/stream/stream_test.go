package stream

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRandomInput(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.bin")
	data := make([]byte, n)
	rand.New(rand.NewSource(42)).Read(data)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestStreamPackUnpackWithDeletedShard(t *testing.T) {
	in := writeRandomInput(t, 10_000)
	original, err := os.ReadFile(in)
	require.NoError(t, err)

	outDir := t.TempDir()
	ikm, salt := []byte("ikm"), []byte("salt")

	_, err = Pack(PackOptions{
		InPath: in, OutDir: outDir, K: 3, M: 2, ChunkSize: 1024,
		IKM: ikm, Salt: salt,
	})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(outDir, ShardFileName(1))))

	outPath := filepath.Join(t.TempDir(), "recovered.bin")
	err = Unpack(UnpackOptions{InDir: outDir, OutPath: outPath, IKM: ikm, Salt: salt})
	require.NoError(t, err)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, original, got)
	assert.Len(t, got, 10_000)
}

func TestStreamVerifyDetectsTamper(t *testing.T) {
	in := writeRandomInput(t, 4096)
	outDir := t.TempDir()
	ikm, salt := []byte("ikm"), []byte("salt")

	_, err := Pack(PackOptions{
		InPath: in, OutDir: outDir, K: 2, M: 2, ChunkSize: 512,
		IKM: ikm, Salt: salt,
	})
	require.NoError(t, err)
	require.NoError(t, Verify(outDir))

	shardPath := filepath.Join(outDir, ShardFileName(0))
	data, err := os.ReadFile(shardPath)
	require.NoError(t, err)
	data[0] ^= 0xFF
	require.NoError(t, os.WriteFile(shardPath, data, 0o644))

	assert.ErrorIs(t, Verify(outDir), ErrMerkleMismatch)
}
