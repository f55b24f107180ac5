package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/blocknet/s3p/internal/logger"
	"github.com/blocknet/s3p/internal/metrics"
	"github.com/blocknet/s3p/pkg/profile/stream"
)

var (
	unpackStreamIKMHex  string
	unpackStreamSaltHex string
)

var unpackStreamCmd = &cobra.Command{
	Use:   "unpack-stream <in_dir> <out>",
	Short: "Reconstruct and decrypt a streaming chunked Reed-Solomon shard set",
	Args:  cobra.ExactArgs(2),
	RunE:  runUnpackStream,
}

func init() {
	rootCmd.AddCommand(unpackStreamCmd)
	unpackStreamCmd.Flags().StringVar(&unpackStreamIKMHex, "ikm-hex", "", "hex-encoded input key material")
	unpackStreamCmd.Flags().StringVar(&unpackStreamSaltHex, "salt-hex", "", "hex-encoded key-derivation salt")
}

func runUnpackStream(cmd *cobra.Command, args []string) error {
	ikm, salt, err := resolveIKMSalt(unpackStreamIKMHex, unpackStreamSaltHex)
	if err != nil {
		return err
	}

	start := time.Now()
	err = stream.Unpack(stream.UnpackOptions{InDir: args[0], OutPath: args[1], IKM: ikm, Salt: salt})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.OperationsTotal.WithLabelValues("unpack", "stream", outcome).Inc()
	metrics.OperationDuration.WithLabelValues("unpack", "stream").Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	logger.Info("unpack-stream complete", logger.String("run_id", runID), logger.String("out", args[1]))
	return nil
}
