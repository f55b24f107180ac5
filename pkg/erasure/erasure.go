// Package erasure implements the systematic Reed-Solomon shard codec
// shared by the whole-file and streaming profiles: encode(buf, k, m) into
// k+m fixed-length shards, and reconstruct(shards, k, m) from any k
// surviving shards.
package erasure

import (
	"errors"
	"fmt"

	"github.com/klauspost/reedsolomon"

	"github.com/blocknet/s3p/internal/metrics"
)

// ErrTooManyShards is returned when k+m exceeds the GF(2^8) shard limit.
var ErrTooManyShards = errors.New("erasure: k+m exceeds 256")

// ErrInsufficientShards is returned when fewer than k shards are present.
var ErrInsufficientShards = errors.New("erasure: fewer than k shards available")

// ErrShardSizeMismatch is returned when present shards disagree on length.
var ErrShardSizeMismatch = errors.New("erasure: shard size mismatch")

// ShardSetMetadata is the (k, m, shard_len, original_len) tuple recorded
// alongside a shard set.
type ShardSetMetadata struct {
	K           int `json:"k"`
	M           int `json:"m"`
	ShardLen    int `json:"shard_len"`
	OriginalLen int `json:"original_len"`
}

func validate(k, m int) error {
	if k < 1 {
		return fmt.Errorf("erasure: k must be >= 1, got %d", k)
	}
	if m < 1 {
		return fmt.Errorf("erasure: m must be >= 1, got %d", m)
	}
	if k+m > 256 {
		return ErrTooManyShards
	}
	return nil
}

// ShardLen returns ceil(n/k), the fixed per-shard length for a buffer of n
// bytes split across k data shards.
func ShardLen(n, k int) int {
	return (n + k - 1) / k
}

// Encode splits buf into k systematic data shards, zero-padding the final
// data shard, and computes m parity shards. The returned slice has exactly
// k+m entries, each of length ShardLen(len(buf), k), or 1 for an empty buf.
func Encode(buf []byte, k, m int) ([][]byte, ShardSetMetadata, error) {
	meta := ShardSetMetadata{K: k, M: m, OriginalLen: len(buf)}
	if err := validate(k, m); err != nil {
		return nil, meta, err
	}

	shardLen := ShardLen(len(buf), k)
	if shardLen == 0 {
		shardLen = 1
	}
	meta.ShardLen = shardLen

	shards := make([][]byte, k+m)
	for i := range shards {
		shards[i] = make([]byte, shardLen)
	}
	for i := 0; i < k; i++ {
		start := i * shardLen
		if start >= len(buf) {
			break
		}
		end := start + shardLen
		if end > len(buf) {
			end = len(buf)
		}
		copy(shards[i], buf[start:end])
	}

	enc, err := reedsolomon.New(k, m)
	if err != nil {
		return nil, meta, fmt.Errorf("erasure: construct codec: %w", err)
	}
	if err := enc.Encode(shards); err != nil {
		return nil, meta, fmt.Errorf("erasure: encode parity: %w", err)
	}
	return shards, meta, nil
}

// Reconstruct rebuilds the original buffer from a sparse set of shards
// (nil entries mark absent shards). At least k entries must be non-nil and
// agree on length. The returned buffer is the concatenation of the first k
// shards, i.e. the caller must truncate it to the known original length.
func Reconstruct(shards [][]byte, k, m int) ([]byte, error) {
	if err := validate(k, m); err != nil {
		return nil, err
	}
	if len(shards) != k+m {
		return nil, fmt.Errorf("erasure: expected %d shards, got %d", k+m, len(shards))
	}

	shardLen := -1
	present := 0
	for _, s := range shards {
		if s == nil {
			continue
		}
		present++
		if shardLen == -1 {
			shardLen = len(s)
		} else if len(s) != shardLen {
			return nil, ErrShardSizeMismatch
		}
	}
	if present < k {
		return nil, ErrInsufficientShards
	}

	// the codec treats only zero-length entries as missing; the spare
	// capacity lets it rebuild into the slot without reallocating
	work := make([][]byte, k+m)
	for i, s := range shards {
		if s == nil {
			work[i] = make([]byte, 0, shardLen)
		} else {
			work[i] = s
		}
	}

	enc, err := reedsolomon.New(k, m)
	if err != nil {
		return nil, fmt.Errorf("erasure: construct codec: %w", err)
	}

	present2 := make([]bool, k+m)
	for i, s := range shards {
		present2[i] = s != nil
	}
	missing := toReconstructList(present2)
	if err := enc.ReconstructSome(work, missing); err != nil {
		return nil, fmt.Errorf("erasure: reconstruct: %w", err)
	}
	metrics.ShardsReconstructed.Observe(float64(k + m - present))

	out := make([]byte, 0, k*shardLen)
	for i := 0; i < k; i++ {
		out = append(out, work[i]...)
	}
	return out, nil
}

func toReconstructList(present []bool) []bool {
	missing := make([]bool, len(present))
	for i, ok := range present {
		missing[i] = !ok
	}
	return missing
}
