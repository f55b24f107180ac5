package main

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/blocknet/s3p/internal/logger"
	"github.com/blocknet/s3p/internal/metrics"
	"github.com/blocknet/s3p/pkg/manifest"
	"github.com/blocknet/s3p/pkg/pod"
	"github.com/blocknet/s3p/pkg/profile/rs"
)

var podSignSkHex string
var podAggregateOut string

var podSignCmd = &cobra.Command{
	Use:   "pod-sign <in_dir>",
	Short: "Sign a Proof-of-Delivery record for every shard present in a packed directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runPodSign,
}

var podVerifyCmd = &cobra.Command{
	Use:   "pod-verify <in_dir>",
	Short: "Verify every pod_iii.json against the manifest SCID and shard bytes",
	Args:  cobra.ExactArgs(1),
	RunE:  runPodVerify,
}

var podAggregateCmd = &cobra.Command{
	Use:   "pod-aggregate <in_dir>",
	Short: "Aggregate the valid Proof-of-Delivery records in a directory into a committee-verifiable root",
	Args:  cobra.ExactArgs(1),
	RunE:  runPodAggregate,
}

func init() {
	rootCmd.AddCommand(podSignCmd)
	rootCmd.AddCommand(podVerifyCmd)
	rootCmd.AddCommand(podAggregateCmd)
	podSignCmd.Flags().StringVar(&podSignSkHex, "sk-hex", "", "hex-encoded 32-byte Ed25519 seed")
	podAggregateCmd.Flags().StringVar(&podAggregateOut, "out", "", "output file for the aggregate JSON (default pod_aggregate.json in in_dir)")
}

func podFileName(i int) string { return fmt.Sprintf("pod_%03d.json", i) }

func readRSManifest(dir string) (manifest.RS, error) {
	data, err := os.ReadFile(filepath.Join(dir, rs.ManifestFileName))
	if err != nil {
		return manifest.RS{}, fmt.Errorf("pod: read manifest: %w", err)
	}
	var m manifest.RS
	if err := json.Unmarshal(data, &m); err != nil {
		return manifest.RS{}, fmt.Errorf("pod: parse manifest: %w", err)
	}
	return m, nil
}

func runPodSign(cmd *cobra.Command, args []string) error {
	seed, err := hexFlag("sk-hex", podSignSkHex, ed25519.SeedSize)
	if err != nil {
		return err
	}
	priv := ed25519.NewKeyFromSeed(seed)

	m, err := readRSManifest(args[0])
	if err != nil {
		return err
	}

	nowMs := time.Now().UnixMilli()
	signed := 0
	for i := 0; i < m.K+m.M; i++ {
		shard, err := os.ReadFile(filepath.Join(args[0], rs.ShardFileName(i)))
		if err != nil {
			continue
		}
		p := pod.Sign(priv, m.SCID, i, nowMs, shard)
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return fmt.Errorf("pod: marshal pod %d: %w", i, err)
		}
		if err := os.WriteFile(filepath.Join(args[0], podFileName(i)), data, 0o644); err != nil {
			return fmt.Errorf("pod: write pod %d: %w", i, err)
		}
		signed++
	}

	logger.Info("pod-sign complete", logger.String("run_id", runID), logger.Int("signed", signed))
	fmt.Printf("signed %d shards\n", signed)
	return nil
}

func runPodVerify(cmd *cobra.Command, args []string) error {
	m, err := readRSManifest(args[0])
	if err != nil {
		return err
	}

	var ok, bad, missing int
	for i := 0; i < m.K+m.M; i++ {
		data, err := os.ReadFile(filepath.Join(args[0], podFileName(i)))
		if err != nil {
			missing++
			metrics.PoDVerifications.WithLabelValues("missing").Inc()
			continue
		}
		var p pod.ProofOfDelivery
		if err := json.Unmarshal(data, &p); err != nil {
			bad++
			metrics.PoDVerifications.WithLabelValues("bad").Inc()
			continue
		}
		shard, err := os.ReadFile(filepath.Join(args[0], rs.ShardFileName(i)))
		var shardBytes []byte
		if err == nil {
			shardBytes = shard
		}
		result := pod.Verify(p, m.SCID, shardBytes)
		if result.OK {
			ok++
			metrics.PoDVerifications.WithLabelValues("ok").Inc()
		} else {
			bad++
			metrics.PoDVerifications.WithLabelValues("bad").Inc()
			logger.Warn("pod-verify bad shard", logger.String("run_id", runID), logger.Int("shard_index", i), logger.String("reason", result.Reason))
		}
	}

	logger.Info("pod-verify complete", logger.String("run_id", runID), logger.Int("ok", ok), logger.Int("bad", bad), logger.Int("missing", missing))
	fmt.Printf("ok=%d bad=%d missing=%d\n", ok, bad, missing)
	if bad > 0 {
		return fmt.Errorf("pod-verify: %d bad shard(s)", bad)
	}
	return nil
}

func runPodAggregate(cmd *cobra.Command, args []string) error {
	m, err := readRSManifest(args[0])
	if err != nil {
		return err
	}

	var pods []pod.ProofOfDelivery
	shards := make(map[int][]byte)
	for i := 0; i < m.K+m.M; i++ {
		data, err := os.ReadFile(filepath.Join(args[0], podFileName(i)))
		if err != nil {
			continue
		}
		var p pod.ProofOfDelivery
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}
		pods = append(pods, p)
		if shard, err := os.ReadFile(filepath.Join(args[0], rs.ShardFileName(i))); err == nil {
			shards[i] = shard
		}
	}

	agg, err := pod.AggregateValid(pods, m.SCID, shards, time.Now().UnixMilli())
	if err != nil {
		return err
	}

	out := podAggregateOut
	if out == "" {
		out = filepath.Join(args[0], "pod_aggregate.json")
	}
	data, err := json.MarshalIndent(agg, "", "  ")
	if err != nil {
		return fmt.Errorf("pod: marshal aggregate: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("pod: write aggregate: %w", err)
	}

	logger.Info("pod-aggregate complete", logger.String("run_id", runID), logger.Int("totals", agg.Totals), logger.String("out", out))
	fmt.Println(out)
	return nil
}
