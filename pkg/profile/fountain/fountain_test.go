package fountain

import (
	"bufio"
	"bytes"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocknet/s3p/pkg/manifest"
)

func writeRandomInput(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.bin")
	data := make([]byte, n)
	rand.New(rand.NewSource(17)).Read(data)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func readPacketLines(t *testing.T, dir string) []manifest.FountainPacketLine {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, PacketsFileName))
	require.NoError(t, err)
	defer f.Close()

	var lines []manifest.FountainPacketLine
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var line manifest.FountainPacketLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestPackEmitsExactOverheadPacketCount(t *testing.T) {
	in := writeRandomInput(t, 2048)
	outDir := t.TempDir()

	meta, err := Pack(PackOptions{
		InPath: in, OutDir: outDir, K: 32, Overhead: 1.25,
		IKM: []byte("ikm"), Salt: []byte("salt"),
	})
	require.NoError(t, err)
	assert.Equal(t, 32, meta.K)

	lines := readPacketLines(t, outDir)
	require.Len(t, lines, 40) // ceil(1.25 * 32)
	for i := 0; i < 32; i++ {
		require.Len(t, lines[i].IDs, 1)
		assert.Equal(t, i, lines[i].IDs[0])
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	in := writeRandomInput(t, 1024)
	original, err := os.ReadFile(in)
	require.NoError(t, err)

	outDir := t.TempDir()
	ikm, salt := []byte("ikm"), []byte("salt")

	_, err = Pack(PackOptions{InPath: in, OutDir: outDir, K: 16, IKM: ikm, Salt: salt})
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "recovered.bin")
	require.NoError(t, Unpack(UnpackOptions{InDir: outDir, OutPath: outPath, IKM: ikm, Salt: salt}))

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestUnpackSurvivesDroppedAndMalformedLines(t *testing.T) {
	in := writeRandomInput(t, 4096)
	original, err := os.ReadFile(in)
	require.NoError(t, err)

	outDir := t.TempDir()
	ikm, salt := []byte("ikm"), []byte("salt")

	_, err = Pack(PackOptions{InPath: in, OutDir: outDir, K: 16, Overhead: 2.0, IKM: ikm, Salt: salt})
	require.NoError(t, err)

	// prepend a malformed line and drop the trailing coded packet; the
	// decoder discards junk and converges from what remains
	packetsPath := filepath.Join(outDir, PacketsFileName)
	data, err := os.ReadFile(packetsPath)
	require.NoError(t, err)
	trimmed := bytes.TrimRight(data, "\n")
	if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
		data = data[:i+1]
	}
	mangled := append([]byte("not-json\n"), data...)
	require.NoError(t, os.WriteFile(packetsPath, mangled, 0o644))

	outPath := filepath.Join(t.TempDir(), "recovered.bin")
	require.NoError(t, Unpack(UnpackOptions{InDir: outDir, OutPath: outPath, IKM: ikm, Salt: salt}))

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestUnpackPrefersPrebuiltRecoveredCiphertext(t *testing.T) {
	in := writeRandomInput(t, 512)
	original, err := os.ReadFile(in)
	require.NoError(t, err)

	outDir := t.TempDir()
	ikm, salt := []byte("ikm"), []byte("salt")

	_, err = Pack(PackOptions{InPath: in, OutDir: outDir, K: 8, IKM: ikm, Salt: salt})
	require.NoError(t, err)

	// rebuild recovered_ct.bin from the packet log, then delete the log:
	// unpack must succeed from the prebuilt ciphertext alone
	meta, err := readMeta(outDir)
	require.NoError(t, err)
	ct, err := decodeFromPackets(outDir, meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(outDir, RecoveredCtName), ct, 0o644))
	require.NoError(t, os.Remove(filepath.Join(outDir, PacketsFileName)))

	outPath := filepath.Join(t.TempDir(), "recovered.bin")
	require.NoError(t, Unpack(UnpackOptions{InDir: outDir, OutPath: outPath, IKM: ikm, Salt: salt}))

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestDecodeBodyAcceptsAllEncodings(t *testing.T) {
	body, err := decodeBody(rawPacketLine{BodyHex: "00ff"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, body)

	body, err = decodeBody(rawPacketLine{BodyB64: "AP8="})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, body)

	body, err = decodeBody(rawPacketLine{Body: "00ff"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, body)

	_, err = decodeBody(rawPacketLine{})
	assert.Error(t, err)
}
