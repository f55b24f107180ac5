// Package merkle builds the shard commitment tree and the Series Commit
// Identifier (SCID) that every packaging profile records in its manifest.
// The leaf and internal-node hash is Blake3-256, pinning the open question
// left by the whole-file leaf hash algorithm.
package merkle

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes for every node in the tree, and for
// the derived SCID.
const Size = 32

// emptySentinel is the root of an empty shard set. It belongs to the
// ledger collaborator's tree construction, never to a pack manifest (a
// pack always has at least one shard), but is kept here so both
// consumers agree on it.
var emptySentinel = leafHashRaw([]byte("nos-ledger-empty"))

func leafHashRaw(b []byte) [Size]byte {
	return blake3.Sum256(b)
}

// LeafHash returns H(shard) for a single shard's bytes.
func LeafHash(shard []byte) [Size]byte {
	return leafHashRaw(shard)
}

func nodeHash(left, right [Size]byte) [Size]byte {
	buf := make([]byte, 0, 4+2*Size)
	buf = append(buf, "node"...)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return blake3.Sum256(buf)
}

// Root computes the Merkle root over a set of shards, hashing each with
// LeafHash and combining pairwise with odd-right-duplication. An empty
// shard set yields the fixed sentinel.
func Root(shards [][]byte) [Size]byte {
	if len(shards) == 0 {
		return emptySentinel
	}
	level := make([][Size]byte, len(shards))
	for i, s := range shards {
		level[i] = LeafHash(s)
	}
	return rootFromLeaves(level)
}

// RootFromLeafHashes computes the Merkle root when the leaf hashes are
// already known (e.g. PoD aggregation over per-PoD leaf hashes rather than
// raw shard bytes).
func RootFromLeafHashes(leaves [][Size]byte) [Size]byte {
	if len(leaves) == 0 {
		return emptySentinel
	}
	level := make([][Size]byte, len(leaves))
	copy(level, leaves)
	return rootFromLeaves(level)
}

func rootFromLeaves(level [][Size]byte) [Size]byte {
	for len(level) > 1 {
		next := make([][Size]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, nodeHash(level[i], level[i+1]))
			} else {
				next = append(next, nodeHash(level[i], level[i]))
			}
		}
		level = next
	}
	return level[0]
}

// SeriesCommit is the set of fields a SCID binds together.
type SeriesCommit struct {
	Version    int    `json:"version"`
	SizeBytes  int64  `json:"size_bytes"`
	ChunkSize  int    `json:"chunk_size"`
	K          int    `json:"k"`
	M          int    `json:"m"`
	AEADAlg    string `json:"aead_alg"`
	MerkleRoot string `json:"merkle_root"` // lowercase hex
}

// SCID returns the deterministic hash of the commit's canonical encoding.
// encoding/json preserves struct field declaration order, so two
// SeriesCommit values with equal fields always serialize to the same
// bytes and hence the same SCID.
func SCID(commit SeriesCommit) ([Size]byte, error) {
	enc, err := json.Marshal(commit)
	if err != nil {
		return [Size]byte{}, fmt.Errorf("merkle: canonicalize commit: %w", err)
	}
	return blake3.Sum256(enc), nil
}
