package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/blocknet/s3p/internal/logger"
	"github.com/blocknet/s3p/internal/metrics"
	fountainprofile "github.com/blocknet/s3p/pkg/profile/fountain"
)

var (
	unpackFountainIKMHex  string
	unpackFountainSaltHex string
)

var unpackFountainCmd = &cobra.Command{
	Use:   "unpack-fountain <in_dir> <out>",
	Short: "Decode a fountain packet log and decrypt the recovered ciphertext",
	Args:  cobra.ExactArgs(2),
	RunE:  runUnpackFountain,
}

func init() {
	rootCmd.AddCommand(unpackFountainCmd)
	unpackFountainCmd.Flags().StringVar(&unpackFountainIKMHex, "ikm-hex", "", "hex-encoded input key material")
	unpackFountainCmd.Flags().StringVar(&unpackFountainSaltHex, "salt-hex", "", "hex-encoded key-derivation salt")
}

func runUnpackFountain(cmd *cobra.Command, args []string) error {
	ikm, salt, err := resolveIKMSalt(unpackFountainIKMHex, unpackFountainSaltHex)
	if err != nil {
		return err
	}

	start := time.Now()
	err = fountainprofile.Unpack(fountainprofile.UnpackOptions{InDir: args[0], OutPath: args[1], IKM: ikm, Salt: salt})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.OperationsTotal.WithLabelValues("unpack", "fountain", outcome).Inc()
	metrics.OperationDuration.WithLabelValues("unpack", "fountain").Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	logger.Info("unpack-fountain complete", logger.String("run_id", runID), logger.String("out", args[1]))
	return nil
}
