package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/blocknet/s3p/internal/logger"
	"github.com/blocknet/s3p/internal/metrics"
	"github.com/blocknet/s3p/pkg/profile/rs"
)

var (
	unpackIKMHex  string
	unpackSaltHex string
)

var unpackCmd = &cobra.Command{
	Use:   "unpack <in_dir> <out>",
	Short: "Reconstruct and decrypt a whole-file Reed-Solomon shard set",
	Args:  cobra.ExactArgs(2),
	RunE:  runUnpack,
}

func init() {
	rootCmd.AddCommand(unpackCmd)
	unpackCmd.Flags().StringVar(&unpackIKMHex, "ikm-hex", "", "hex-encoded input key material")
	unpackCmd.Flags().StringVar(&unpackSaltHex, "salt-hex", "", "hex-encoded key-derivation salt")
}

func runUnpack(cmd *cobra.Command, args []string) error {
	ikm, salt, err := resolveIKMSalt(unpackIKMHex, unpackSaltHex)
	if err != nil {
		return err
	}

	start := time.Now()
	err = rs.Unpack(rs.UnpackOptions{InDir: args[0], OutPath: args[1], IKM: ikm, Salt: salt})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.OperationsTotal.WithLabelValues("unpack", "rs", outcome).Inc()
	metrics.OperationDuration.WithLabelValues("unpack", "rs").Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	logger.Info("unpack complete", logger.String("run_id", runID), logger.String("out", args[1]))
	return nil
}
