// Package manifest defines the on-disk JSON shapes written and read by
// each packaging profile, and the Series Commit they all embed.
package manifest

import "github.com/blocknet/s3p/pkg/merkle"

// Commit mirrors merkle.SeriesCommit with JSON field names fixed to the
// lowercase-snake manifest schema.
type Commit struct {
	Version    int    `json:"version"`
	SizeBytes  int64  `json:"size_bytes"`
	ChunkSize  int    `json:"chunk_size"`
	K          int    `json:"k"`
	M          int    `json:"m"`
	AEADAlg    string `json:"aead_alg"`
	MerkleRoot string `json:"merkle_root"`
}

// ToSeriesCommit converts a manifest Commit into the type merkle.SCID
// consumes.
func (c Commit) ToSeriesCommit() merkle.SeriesCommit {
	return merkle.SeriesCommit{
		Version:    c.Version,
		SizeBytes:  c.SizeBytes,
		ChunkSize:  c.ChunkSize,
		K:          c.K,
		M:          c.M,
		AEADAlg:    c.AEADAlg,
		MerkleRoot: c.MerkleRoot,
	}
}

// RS is the manifest for the whole-file Reed-Solomon profile.
type RS struct {
	Version  int    `json:"version"`
	SCID     string `json:"scid"`
	Commit   Commit `json:"commit"`
	AAD      string `json:"aad"`
	Nonce    string `json:"nonce"`
	CtLen    int    `json:"ct_len"`
	K        int    `json:"k"`
	M        int    `json:"m"`
	FileName string `json:"file_name"`
}

// Stream is the manifest for the streaming chunked Reed-Solomon profile.
type Stream struct {
	Version       int    `json:"version"`
	SCID          string `json:"scid"`
	Commit        Commit `json:"commit"`
	AAD           string `json:"aad"`
	NonceBase     string `json:"nonce_base"`
	ChunkSize     int    `json:"chunk_size"`
	CtLenPerChunk int    `json:"ct_len_per_chunk"`
	Chunks        int    `json:"chunks"`
	K             int    `json:"k"`
	M             int    `json:"m"`
	FileName      string `json:"file_name"`
	OriginalLen   int64  `json:"original_len"`
}

// FountainMeta is the manifest written alongside a fountain-profile pack.
type FountainMeta struct {
	OriginalLen int     `json:"original_len"`
	BlockLen    int     `json:"block_len"`
	K           int     `json:"k"`
	Seed        uint64  `json:"seed"`
	C           float64 `json:"c"`
	Delta       float64 `json:"delta"`
	CtLen       int     `json:"ct_len"`
	Nonce       string  `json:"nonce"`
	AAD         string  `json:"aad"`
}

// FountainPacketLine is one line of fountain_packets.jsonl.
type FountainPacketLine struct {
	IDs     []int  `json:"ids"`
	BodyHex string `json:"body_hex"`
}
