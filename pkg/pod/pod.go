// Package pod implements per-shard Proof-of-Delivery signing and
// verification, and aggregation of valid PoDs into a committee-verifiable
// root.
package pod

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/blocknet/s3p/pkg/merkle"
)

// ProofOfDelivery is a signed assertion by a storage node that it holds a
// shard whose leaf hash matches the committed Merkle leaf.
type ProofOfDelivery struct {
	SCID         string `json:"scid"`
	ShardIndex   int    `json:"shard_index"`
	TsMs         int64  `json:"ts_ms"`
	SignerPubkey string `json:"signer_pubkey"` // lowercase hex
	LeafHash     string `json:"leaf_hash"`     // lowercase hex
	Signature    string `json:"signature"`     // lowercase hex
}

// canonicalPayload builds the bytes a PoD's signature binds: every
// preceding field in declaration order.
func canonicalPayload(scid string, shardIndex int, tsMs int64, signerPubkey, leafHash []byte) []byte {
	buf := make([]byte, 0, len(scid)+8+8+len(signerPubkey)+len(leafHash))
	buf = append(buf, scid...)
	var idxBytes [8]byte
	binary.LittleEndian.PutUint64(idxBytes[:], uint64(shardIndex))
	buf = append(buf, idxBytes[:]...)
	var tsBytes [8]byte
	binary.LittleEndian.PutUint64(tsBytes[:], uint64(tsMs))
	buf = append(buf, tsBytes[:]...)
	buf = append(buf, signerPubkey...)
	buf = append(buf, leafHash...)
	return buf
}

// Sign builds and signs a ProofOfDelivery for a single shard.
func Sign(priv ed25519.PrivateKey, scid string, shardIndex int, tsMs int64, shard []byte) ProofOfDelivery {
	pub := priv.Public().(ed25519.PublicKey)
	leaf := merkle.LeafHash(shard)
	payload := canonicalPayload(scid, shardIndex, tsMs, pub, leaf[:])
	sig := ed25519.Sign(priv, payload)

	return ProofOfDelivery{
		SCID:         scid,
		ShardIndex:   shardIndex,
		TsMs:         tsMs,
		SignerPubkey: hex.EncodeToString(pub),
		LeafHash:     hex.EncodeToString(leaf[:]),
		Signature:    hex.EncodeToString(sig),
	}
}

// VerifyResult is the outcome of checking a single PoD against the
// manifest SCID and the shard bytes it claims to cover.
type VerifyResult struct {
	OK     bool
	Reason string
}

// Verify checks a PoD against the expected SCID and the shard bytes it
// claims to cover (nil shard means the shard is missing on disk).
func Verify(p ProofOfDelivery, expectedSCID string, shard []byte) VerifyResult {
	if p.SCID != expectedSCID {
		return VerifyResult{OK: false, Reason: "scid mismatch"}
	}
	if shard == nil {
		return VerifyResult{OK: false, Reason: "shard missing"}
	}

	leaf := merkle.LeafHash(shard)
	if hex.EncodeToString(leaf[:]) != p.LeafHash {
		return VerifyResult{OK: false, Reason: "leaf hash mismatch"}
	}

	pub, err := hex.DecodeString(p.SignerPubkey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return VerifyResult{OK: false, Reason: "malformed signer pubkey"}
	}
	sig, err := hex.DecodeString(p.Signature)
	if err != nil {
		return VerifyResult{OK: false, Reason: "malformed signature"}
	}

	payload := canonicalPayload(p.SCID, p.ShardIndex, p.TsMs, pub, leaf[:])
	if !ed25519.Verify(pub, payload, sig) {
		return VerifyResult{OK: false, Reason: "invalid signature"}
	}
	return VerifyResult{OK: true}
}

// Aggregate is the Merkle-rooted summary over a set of valid PoDs.
type Aggregate struct {
	SCID            string `json:"scid"`
	Totals          int    `json:"totals"`
	IncludedIndexes []int  `json:"included_indexes"`
	PodRoot         string `json:"pod_root"`
	TsMs            int64  `json:"ts_ms"`
}

// leafPrefix tags a per-PoD aggregate leaf so it cannot collide with a raw
// shard leaf hash computed by the same hash function.
const leafPrefix = "s3p-pod-leaf-v1"

func aggregateLeaf(p ProofOfDelivery) ([merkle.Size]byte, error) {
	leafHash, err := hex.DecodeString(p.LeafHash)
	if err != nil {
		return [merkle.Size]byte{}, fmt.Errorf("pod: malformed leaf hash: %w", err)
	}
	pub, err := hex.DecodeString(p.SignerPubkey)
	if err != nil {
		return [merkle.Size]byte{}, fmt.Errorf("pod: malformed signer pubkey: %w", err)
	}

	buf := []byte(leafPrefix)
	buf = append(buf, p.SCID...)
	var idxBytes [8]byte
	binary.LittleEndian.PutUint64(idxBytes[:], uint64(p.ShardIndex))
	buf = append(buf, idxBytes[:]...)
	var tsBytes [8]byte
	binary.LittleEndian.PutUint64(tsBytes[:], uint64(p.TsMs))
	buf = append(buf, tsBytes[:]...)
	buf = append(buf, pub...)
	buf = append(buf, leafHash...)

	return merkle.LeafHash(buf), nil
}

// AggregateValid builds the PoD aggregate over only the PoDs that pass
// Verify, sorted by shard index.
func AggregateValid(pods []ProofOfDelivery, scid string, shards map[int][]byte, tsMs int64) (Aggregate, error) {
	var valid []ProofOfDelivery
	for _, p := range pods {
		if Verify(p, scid, shards[p.ShardIndex]).OK {
			valid = append(valid, p)
		}
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].ShardIndex < valid[j].ShardIndex })

	leaves := make([][merkle.Size]byte, 0, len(valid))
	indexes := make([]int, 0, len(valid))
	for _, p := range valid {
		leaf, err := aggregateLeaf(p)
		if err != nil {
			return Aggregate{}, err
		}
		leaves = append(leaves, leaf)
		indexes = append(indexes, p.ShardIndex)
	}

	root := merkle.RootFromLeafHashes(leaves)
	return Aggregate{
		SCID:            scid,
		Totals:          len(valid),
		IncludedIndexes: indexes,
		PodRoot:         hex.EncodeToString(root[:]),
		TsMs:            tsMs,
	}, nil
}
