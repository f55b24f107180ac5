// Package stream implements the streaming chunked Reed-Solomon profile:
// each fixed-size chunk of plaintext is sealed under its own
// counter-derived nonce, Reed-Solomon encoded independently, and its
// shard stripes appended to the same k+m shard files used across the
// whole artifact.
package stream

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/blocknet/s3p/pkg/aead"
	"github.com/blocknet/s3p/pkg/erasure"
	"github.com/blocknet/s3p/pkg/manifest"
	"github.com/blocknet/s3p/pkg/merkle"
)

// ManifestFileName is the fixed name of the stream profile's manifest.
const ManifestFileName = "manifest_stream.json"

// ShardFileName returns the fixed, zero-padded shard file name for index i.
func ShardFileName(i int) string {
	return fmt.Sprintf("shard_%03d.bin", i)
}

// PackOptions configures a streaming pack operation.
type PackOptions struct {
	InPath    string
	OutDir    string
	K, M      int
	ChunkSize int
	NonceBase []byte // 24 bytes; generated randomly if nil
	IKM       []byte
	Salt      []byte
	AAD       []byte
}

// Pack streams InPath in ChunkSize-byte chunks, sealing and Reed-Solomon
// striping each chunk independently, then commits the full shard files
// with a single Merkle root and writes manifest_stream.json.
func Pack(opts PackOptions) (manifest.Stream, error) {
	in, err := os.Open(opts.InPath)
	if err != nil {
		return manifest.Stream{}, fmt.Errorf("stream: open input: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return manifest.Stream{}, fmt.Errorf("stream: stat input: %w", err)
	}
	originalLen := info.Size()

	nonceBase := opts.NonceBase
	if nonceBase == nil {
		nonceBase, err = aead.RandomNonceBase()
		if err != nil {
			return manifest.Stream{}, err
		}
	}

	ks, err := aead.Derive(opts.IKM, opts.Salt)
	if err != nil {
		return manifest.Stream{}, err
	}
	defer ks.Close()

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return manifest.Stream{}, fmt.Errorf("stream: create output dir: %w", err)
	}

	shardFiles := make([]*os.File, opts.K+opts.M)
	for i := range shardFiles {
		f, err := os.Create(filepath.Join(opts.OutDir, ShardFileName(i)))
		if err != nil {
			return manifest.Stream{}, fmt.Errorf("stream: create shard %d: %w", i, err)
		}
		shardFiles[i] = f
		defer f.Close()
	}

	ctLenPerChunk := opts.ChunkSize + aead.TagSize
	chunks := 0
	buf := make([]byte, opts.ChunkSize)
	for idx := uint64(0); ; idx++ {
		n, readErr := io.ReadFull(in, buf)
		if n == 0 {
			break
		}
		chunkPlain := make([]byte, opts.ChunkSize)
		copy(chunkPlain, buf[:n])

		nonce, err := aead.DeriveNonce(nonceBase, idx)
		if err != nil {
			return manifest.Stream{}, err
		}
		ct, err := ks.SealWithNonce(opts.AAD, nonce, chunkPlain)
		if err != nil {
			return manifest.Stream{}, err
		}

		shards, _, err := erasure.Encode(ct, opts.K, opts.M)
		if err != nil {
			return manifest.Stream{}, err
		}
		// each stripe goes to its own file, so the k+m appends for one
		// chunk are independent; chunks stay sequential, which keeps every
		// shard file append-ordered by chunk index
		var g errgroup.Group
		for i, shard := range shards {
			i, shard := i, shard
			g.Go(func() error {
				if _, err := shardFiles[i].Write(shard); err != nil {
					return fmt.Errorf("stream: write stripe to shard %d: %w", i, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return manifest.Stream{}, err
		}
		chunks++

		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return manifest.Stream{}, fmt.Errorf("stream: read chunk: %w", readErr)
		}
	}

	for _, f := range shardFiles {
		if err := f.Sync(); err != nil {
			return manifest.Stream{}, fmt.Errorf("stream: flush shard file: %w", err)
		}
	}

	fullShards := make([][]byte, opts.K+opts.M)
	for i := range fullShards {
		data, err := os.ReadFile(filepath.Join(opts.OutDir, ShardFileName(i)))
		if err != nil {
			return manifest.Stream{}, fmt.Errorf("stream: read back shard %d: %w", i, err)
		}
		fullShards[i] = data
	}
	root := merkle.Root(fullShards)

	commit := manifest.Commit{
		Version:    1,
		SizeBytes:  originalLen,
		ChunkSize:  opts.ChunkSize,
		K:          opts.K,
		M:          opts.M,
		AEADAlg:    aead.AlgorithmID,
		MerkleRoot: hex.EncodeToString(root[:]),
	}
	scid, err := merkle.SCID(commit.ToSeriesCommit())
	if err != nil {
		return manifest.Stream{}, err
	}

	m := manifest.Stream{
		Version:       1,
		SCID:          hex.EncodeToString(scid[:]),
		Commit:        commit,
		AAD:           hex.EncodeToString(opts.AAD),
		NonceBase:     hex.EncodeToString(nonceBase),
		ChunkSize:     opts.ChunkSize,
		CtLenPerChunk: ctLenPerChunk,
		Chunks:        chunks,
		K:             opts.K,
		M:             opts.M,
		FileName:      filepath.Base(opts.InPath),
		OriginalLen:   originalLen,
	}
	if err := writeManifest(opts.OutDir, m); err != nil {
		return manifest.Stream{}, err
	}
	return m, nil
}

// UnpackOptions configures a streaming unpack operation.
type UnpackOptions struct {
	InDir   string
	OutPath string
	IKM     []byte
	Salt    []byte
}

// Unpack reads manifest_stream.json, then for each chunk reads one stripe
// from each available shard file (short or missing reads mark that
// stripe absent), reconstructs, opens, and appends plaintext to OutPath,
// finally truncating to the recorded original size.
func Unpack(opts UnpackOptions) error {
	m, err := readManifest(opts.InDir)
	if err != nil {
		return err
	}

	shardLen := erasure.ShardLen(m.CtLenPerChunk, m.K)

	shardFiles := make([]*os.File, m.K+m.M)
	for i := range shardFiles {
		f, err := os.Open(filepath.Join(opts.InDir, ShardFileName(i)))
		if err != nil {
			shardFiles[i] = nil
			continue
		}
		shardFiles[i] = f
	}
	defer func() {
		for _, f := range shardFiles {
			if f != nil {
				f.Close()
			}
		}
	}()

	nonceBase, err := hex.DecodeString(m.NonceBase)
	if err != nil {
		return fmt.Errorf("stream: malformed nonce_base in manifest: %w", err)
	}
	aad, err := hex.DecodeString(m.AAD)
	if err != nil {
		return fmt.Errorf("stream: malformed aad in manifest: %w", err)
	}

	ks, err := aead.Derive(opts.IKM, opts.Salt)
	if err != nil {
		return err
	}
	defer ks.Close()

	if err := os.MkdirAll(filepath.Dir(opts.OutPath), 0o755); err != nil {
		return fmt.Errorf("stream: create output dir: %w", err)
	}
	out, err := os.Create(opts.OutPath)
	if err != nil {
		return fmt.Errorf("stream: create output: %w", err)
	}
	defer out.Close()

	var written int64
	for idx := 0; idx < m.Chunks; idx++ {
		// one goroutine per shard file; each file is only ever read by its
		// own goroutine, so per-file read order stays sequential across
		// chunks. Short or failed reads mark the stripe slot missing.
		stripes := make([][]byte, m.K+m.M)
		var g errgroup.Group
		for i, f := range shardFiles {
			if f == nil {
				continue
			}
			i, f := i, f
			g.Go(func() error {
				stripe := make([]byte, shardLen)
				if n, err := io.ReadFull(f, stripe); err == nil && n == shardLen {
					stripes[i] = stripe
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		ct, err := erasure.Reconstruct(stripes, m.K, m.M)
		if err != nil {
			return fmt.Errorf("stream: reconstruct chunk %d: %w", idx, err)
		}
		ct = ct[:m.CtLenPerChunk]

		nonce, err := aead.DeriveNonce(nonceBase, uint64(idx))
		if err != nil {
			return err
		}
		pt, err := ks.Open(aad, nonce, ct)
		if err != nil {
			return err
		}

		remaining := m.OriginalLen - written
		chunkOut := pt
		if int64(len(chunkOut)) > remaining {
			chunkOut = chunkOut[:remaining]
		}
		if _, err := out.Write(chunkOut); err != nil {
			return fmt.Errorf("stream: write plaintext chunk %d: %w", idx, err)
		}
		written += int64(len(chunkOut))
	}
	return nil
}

// ErrMerkleMismatch is returned by Verify when shard contents no longer
// hash to the manifest's recorded root.
var ErrMerkleMismatch = fmt.Errorf("stream: merkle root mismatch")

// ErrSCIDMismatch is returned by Verify when the recomputed SCID disagrees
// with the manifest.
var ErrSCIDMismatch = fmt.Errorf("stream: scid mismatch")

// Verify recomputes the Merkle root and SCID over the full shard files and
// compares them against the manifest.
func Verify(dir string) error {
	m, err := readManifest(dir)
	if err != nil {
		return err
	}

	shards := make([][]byte, m.K+m.M)
	for i := range shards {
		data, err := os.ReadFile(filepath.Join(dir, ShardFileName(i)))
		if err != nil {
			return fmt.Errorf("stream: read shard %d: %w", i, err)
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

func writeManifest(dir string, m manifest.Stream) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("stream: marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0o644)
}

func readManifest(dir string) (manifest.Stream, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return manifest.Stream{}, fmt.Errorf("stream: read manifest: %w", err)
	}
	var m manifest.Stream
	if err := json.Unmarshal(data, &m); err != nil {
		return manifest.Stream{}, fmt.Errorf("stream: parse manifest: %w", err)
	}
	return m, nil
}
