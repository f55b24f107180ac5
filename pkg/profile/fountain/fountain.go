// Package fountain glues the AEAD envelope and the LT-style fountain
// codec into the rateless packaging profile: pack-fountain seals a whole
// file and emits a packet log; unpack-fountain replays it through the
// peeling decoder.
package fountain

import (
	"bufio"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/blocknet/s3p/internal/metrics"
	"github.com/blocknet/s3p/pkg/aead"
	"github.com/blocknet/s3p/pkg/fountain"
	"github.com/blocknet/s3p/pkg/manifest"
)

// MetaFileName and PacketsFileName are the fixed names of the fountain
// profile's metadata and packet log files.
const (
	MetaFileName    = "fountain_meta.json"
	PacketsFileName = "fountain_packets.jsonl"
	RecoveredCtName = "recovered_ct.bin"
)

// DefaultOverhead is the default target packet count as a multiple of k
// when neither --packets nor --overhead is given.
const DefaultOverhead = 1.25

// PackOptions configures a fountain pack operation.
type PackOptions struct {
	InPath   string
	OutDir   string
	K        int // number of fixed-length blocks the ciphertext is split into
	Seed     uint64
	C, Delta float64
	// Exactly one of Packets (>0) or Overhead (>0) selects the target
	// packet count; if both are zero, DefaultOverhead is used.
	Packets  int
	Overhead float64
	IKM      []byte
	Salt     []byte
	AAD      []byte
}

// Pack seals InPath whole, partitions the ciphertext into exactly K
// fixed-length blocks, and emits systematic-then-coded packets until the
// target count is reached, writing fountain_meta.json and
// fountain_packets.jsonl.
func Pack(opts PackOptions) (manifest.FountainMeta, error) {
	if opts.K < 1 {
		return manifest.FountainMeta{}, fmt.Errorf("fountain: k must be >= 1")
	}

	plaintext, err := os.ReadFile(opts.InPath)
	if err != nil {
		return manifest.FountainMeta{}, fmt.Errorf("fountain: read input: %w", err)
	}

	ks, err := aead.Derive(opts.IKM, opts.Salt)
	if err != nil {
		return manifest.FountainMeta{}, err
	}
	defer ks.Close()

	ct, nonce, err := ks.Seal(opts.AAD, plaintext)
	if err != nil {
		return manifest.FountainMeta{}, err
	}

	c, delta := opts.C, opts.Delta
	if c == 0 {
		c = 0.1
	}
	if delta == 0 {
		delta = 0.05
	}

	enc, err := fountain.NewEncoderWithK(ct, opts.K, opts.Seed, c, delta)
	if err != nil {
		return manifest.FountainMeta{}, err
	}
	k := enc.K()

	target := opts.Packets
	if target == 0 {
		overhead := opts.Overhead
		if overhead == 0 {
			overhead = DefaultOverhead
		}
		target = int(math.Ceil(overhead * float64(k)))
	}
	if target < k {
		target = k
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return manifest.FountainMeta{}, fmt.Errorf("fountain: create output dir: %w", err)
	}

	packetsFile, err := os.Create(filepath.Join(opts.OutDir, PacketsFileName))
	if err != nil {
		return manifest.FountainMeta{}, fmt.Errorf("fountain: create packets file: %w", err)
	}
	defer packetsFile.Close()

	w := bufio.NewWriter(packetsFile)
	for i := 0; i < target; i++ {
		p := enc.Next()
		line := manifest.FountainPacketLine{IDs: p.IDs, BodyHex: hex.EncodeToString(p.Body)}
		data, err := json.Marshal(line)
		if err != nil {
			return manifest.FountainMeta{}, fmt.Errorf("fountain: marshal packet: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return manifest.FountainMeta{}, fmt.Errorf("fountain: write packet: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return manifest.FountainMeta{}, fmt.Errorf("fountain: write packet: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return manifest.FountainMeta{}, fmt.Errorf("fountain: flush packets file: %w", err)
	}

	encMeta := enc.Metadata()
	meta := manifest.FountainMeta{
		OriginalLen: len(plaintext),
		BlockLen:    encMeta.BlockLen,
		K:           encMeta.K,
		Seed:        encMeta.Seed,
		C:           encMeta.C,
		Delta:       encMeta.Delta,
		CtLen:       encMeta.CtLen,
		Nonce:       hex.EncodeToString(nonce),
		AAD:         hex.EncodeToString(opts.AAD),
	}
	if err := writeMeta(opts.OutDir, meta); err != nil {
		return manifest.FountainMeta{}, err
	}
	return meta, nil
}

// UnpackOptions configures a fountain unpack operation.
type UnpackOptions struct {
	InDir   string
	OutPath string
	IKM     []byte
	Salt    []byte
}

// rawPacketLine tolerates the three accepted packet-body encodings.
type rawPacketLine struct {
	IDs     []int  `json:"ids"`
	BodyHex string `json:"body_hex"`
	BodyB64 string `json:"body_b64"`
	Body    string `json:"body"`
}

// Unpack reads fountain_meta.json, then either uses a prebuilt
// recovered_ct.bin directly or replays fountain_packets.jsonl through the
// peeling decoder until every block is solved, opens the AEAD envelope,
// and writes the plaintext truncated to original_len.
func Unpack(opts UnpackOptions) error {
	meta, err := readMeta(opts.InDir)
	if err != nil {
		return err
	}

	var ct []byte
	if data, err := os.ReadFile(filepath.Join(opts.InDir, RecoveredCtName)); err == nil {
		ct = data
	} else {
		ct, err = decodeFromPackets(opts.InDir, meta)
		if err != nil {
			return err
		}
	}
	if len(ct) > meta.CtLen {
		ct = ct[:meta.CtLen]
	}

	ks, err := aead.Derive(opts.IKM, opts.Salt)
	if err != nil {
		return err
	}
	defer ks.Close()

	aad, err := hex.DecodeString(meta.AAD)
	if err != nil {
		return fmt.Errorf("fountain: malformed aad in metadata: %w", err)
	}
	nonce, err := hex.DecodeString(meta.Nonce)
	if err != nil {
		return fmt.Errorf("fountain: malformed nonce in metadata: %w", err)
	}

	pt, err := ks.Open(aad, nonce, ct)
	if err != nil {
		return err
	}
	if len(pt) > meta.OriginalLen {
		pt = pt[:meta.OriginalLen]
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutPath), 0o755); err != nil {
		return fmt.Errorf("fountain: create output dir: %w", err)
	}
	return os.WriteFile(opts.OutPath, pt, 0o644)
}

func decodeFromPackets(dir string, meta manifest.FountainMeta) ([]byte, error) {
	f, err := os.Open(filepath.Join(dir, PacketsFileName))
	if err != nil {
		return nil, fmt.Errorf("fountain: open packets file: %w", err)
	}
	defer f.Close()

	dec := fountain.NewDecoder(fountain.Metadata{
		OriginalLen: meta.OriginalLen,
		BlockLen:    meta.BlockLen,
		K:           meta.K,
		Seed:        meta.Seed,
		C:           meta.C,
		Delta:       meta.Delta,
		CtLen:       meta.CtLen,
	})

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() && !dec.Done() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw rawPacketLine
		if err := json.Unmarshal(line, &raw); err != nil {
			metrics.FountainPacketsAccepted.WithLabelValues("discarded").Inc()
			continue // malformed line: discard, non-fatal for the stream
		}
		body, err := decodeBody(raw)
		if err != nil {
			metrics.FountainPacketsAccepted.WithLabelValues("discarded").Inc()
			continue
		}
		if err := dec.Receive(fountain.Packet{IDs: raw.IDs, Body: body}); err != nil {
			metrics.FountainPacketsAccepted.WithLabelValues("discarded").Inc()
			continue // malformed packet: discard, non-fatal
		}
		metrics.FountainPacketsAccepted.WithLabelValues("accepted").Inc()
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fountain: scan packets file: %w", err)
	}
	if !dec.Done() {
		return nil, fmt.Errorf("fountain: decoder did not converge: packets exhausted")
	}
	return dec.Finalize()
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func decodeBody(raw rawPacketLine) ([]byte, error) {
	switch {
	case raw.BodyHex != "":
		return hex.DecodeString(raw.BodyHex)
	case raw.BodyB64 != "":
		return decodeBase64(raw.BodyB64)
	case raw.Body != "":
		return hex.DecodeString(raw.Body)
	default:
		return nil, fmt.Errorf("fountain: packet has no body")
	}
}

func writeMeta(dir string, m manifest.FountainMeta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("fountain: marshal metadata: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, MetaFileName), data, 0o644)
}

func readMeta(dir string) (manifest.FountainMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetaFileName))
	if err != nil {
		return manifest.FountainMeta{}, fmt.Errorf("fountain: read metadata: %w", err)
	}
	var m manifest.FountainMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return manifest.FountainMeta{}, fmt.Errorf("fountain: parse metadata: %w", err)
	}
	return m, nil
}
