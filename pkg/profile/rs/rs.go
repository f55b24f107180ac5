// Package rs glues the AEAD envelope, the Reed-Solomon codec, and the
// Merkle commit into the whole-file packaging profile: pack reads a file
// once and writes a shard set plus manifest.json; unpack reverses it.
package rs

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"encoding/json"

	"github.com/blocknet/s3p/pkg/aead"
	"github.com/blocknet/s3p/pkg/erasure"
	"github.com/blocknet/s3p/pkg/manifest"
	"github.com/blocknet/s3p/pkg/merkle"
)

// ManifestFileName is the fixed name of the whole-file profile's manifest.
const ManifestFileName = "manifest.json"

// ShardFileName returns the fixed, zero-padded shard file name for index i.
func ShardFileName(i int) string {
	return fmt.Sprintf("shard_%03d.bin", i)
}

// PackOptions configures a whole-file pack operation.
type PackOptions struct {
	InPath string
	OutDir string
	K, M   int
	IKM    []byte
	Salt   []byte
	AAD    []byte
}

// Pack reads InPath, seals it under a fresh random nonce, Reed-Solomon
// encodes the ciphertext into K+M shards, computes the Merkle commit, and
// writes shard_iii.bin plus manifest.json into OutDir.
func Pack(opts PackOptions) (manifest.RS, error) {
	plaintext, err := os.ReadFile(opts.InPath)
	if err != nil {
		return manifest.RS{}, fmt.Errorf("rs: read input: %w", err)
	}

	ks, err := aead.Derive(opts.IKM, opts.Salt)
	if err != nil {
		return manifest.RS{}, err
	}
	defer ks.Close()

	ct, nonce, err := ks.Seal(opts.AAD, plaintext)
	if err != nil {
		return manifest.RS{}, err
	}

	shards, _, err := erasure.Encode(ct, opts.K, opts.M)
	if err != nil {
		return manifest.RS{}, err
	}

	root := merkle.Root(shards)
	commit := manifest.Commit{
		Version:    1,
		SizeBytes:  int64(len(plaintext)),
		ChunkSize:  0,
		K:          opts.K,
		M:          opts.M,
		AEADAlg:    aead.AlgorithmID,
		MerkleRoot: hex.EncodeToString(root[:]),
	}
	scid, err := merkle.SCID(commit.ToSeriesCommit())
	if err != nil {
		return manifest.RS{}, err
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return manifest.RS{}, fmt.Errorf("rs: create output dir: %w", err)
	}
	for i, shard := range shards {
		path := filepath.Join(opts.OutDir, ShardFileName(i))
		if err := os.WriteFile(path, shard, 0o644); err != nil {
			return manifest.RS{}, fmt.Errorf("rs: write shard %d: %w", i, err)
		}
	}

	m := manifest.RS{
		Version:  1,
		SCID:     hex.EncodeToString(scid[:]),
		Commit:   commit,
		AAD:      hex.EncodeToString(opts.AAD),
		Nonce:    hex.EncodeToString(nonce),
		CtLen:    len(ct),
		K:        opts.K,
		M:        opts.M,
		FileName: filepath.Base(opts.InPath),
	}
	if err := writeManifest(opts.OutDir, m); err != nil {
		return manifest.RS{}, err
	}
	return m, nil
}

// UnpackOptions configures a whole-file unpack operation.
type UnpackOptions struct {
	InDir   string
	OutPath string
	IKM     []byte
	Salt    []byte
}

// Unpack reads manifest.json and the available shard files from InDir,
// reconstructs the ciphertext, opens it, and writes the plaintext to
// OutPath truncated to the recorded original size.
func Unpack(opts UnpackOptions) error {
	m, err := readManifest(opts.InDir)
	if err != nil {
		return err
	}

	shards := make([][]byte, m.K+m.M)
	for i := range shards {
		data, err := os.ReadFile(filepath.Join(opts.InDir, ShardFileName(i)))
		if err != nil {
			shards[i] = nil
			continue
		}
		shards[i] = data
	}

	ct, err := erasure.Reconstruct(shards, m.K, m.M)
	if err != nil {
		return err
	}
	if m.CtLen > len(ct) {
		return fmt.Errorf("rs: reconstructed buffer shorter than recorded ct_len")
	}
	ct = ct[:m.CtLen]

	ks, err := aead.Derive(opts.IKM, opts.Salt)
	if err != nil {
		return err
	}
	defer ks.Close()

	aad, err := hex.DecodeString(m.AAD)
	if err != nil {
		return fmt.Errorf("rs: malformed aad in manifest: %w", err)
	}
	nonce, err := hex.DecodeString(m.Nonce)
	if err != nil {
		return fmt.Errorf("rs: malformed nonce in manifest: %w", err)
	}

	pt, err := ks.Open(aad, nonce, ct)
	if err != nil {
		return err
	}
	if m.Commit.SizeBytes >= 0 && int64(len(pt)) > m.Commit.SizeBytes {
		pt = pt[:m.Commit.SizeBytes]
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutPath), 0o755); err != nil {
		return fmt.Errorf("rs: create output dir: %w", err)
	}
	if err := os.WriteFile(opts.OutPath, pt, 0o644); err != nil {
		return fmt.Errorf("rs: write output: %w", err)
	}
	return nil
}

// ErrMerkleMismatch is returned by Verify when the shards on disk no
// longer hash to the manifest's recorded root.
var ErrMerkleMismatch = fmt.Errorf("rs: merkle root mismatch")

// ErrSCIDMismatch is returned by Verify when the manifest's SCID does not
// match the recomputed commit.
var ErrSCIDMismatch = fmt.Errorf("rs: scid mismatch")

// Verify recomputes the Merkle root and SCID over all k+m shard files in
// dir and compares them against the manifest. A missing shard file is an
// error.
func Verify(dir string) error {
	m, err := readManifest(dir)
	if err != nil {
		return err
	}

	shards := make([][]byte, m.K+m.M)
	for i := range shards {
		data, err := os.ReadFile(filepath.Join(dir, ShardFileName(i)))
		if err != nil {
			return fmt.Errorf("rs: read shard %d: %w", i, err)
		}
		shards[i] = data
	}

	root := merkle.Root(shards)
	if hex.EncodeToString(root[:]) != m.Commit.MerkleRoot {
		return ErrMerkleMismatch
	}

	scid, err := merkle.SCID(m.Commit.ToSeriesCommit())
	if err != nil {
		return err
	}
	if hex.EncodeToString(scid[:]) != m.SCID {
		return ErrSCIDMismatch
	}
	return nil
}

func writeManifest(dir string, m manifest.RS) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("rs: marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0o644)
}

func readManifest(dir string) (manifest.RS, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return manifest.RS{}, fmt.Errorf("rs: read manifest: %w", err)
	}
	var m manifest.RS
	if err := json.Unmarshal(data, &m); err != nil {
		return manifest.RS{}, fmt.Errorf("rs: parse manifest: %w", err)
	}
	return m, nil
}
