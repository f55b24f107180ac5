package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blocknet/s3p/internal/logger"
	"github.com/blocknet/s3p/pkg/profile/rs"
	"github.com/blocknet/s3p/pkg/profile/stream"
)

var verifyPackCmd = &cobra.Command{
	Use:   "verify-pack <in_dir>",
	Short: "Recompute the Merkle root and SCID over a whole-file shard set and compare to its manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := rs.Verify(args[0]); err != nil {
			return err
		}
		logger.Info("verify-pack ok", logger.String("run_id", runID), logger.String("dir", args[0]))
		fmt.Println("ok")
		return nil
	},
}

var verifyPackStreamCmd = &cobra.Command{
	Use:   "verify-pack-stream <in_dir>",
	Short: "Recompute the Merkle root and SCID over a streaming shard set and compare to its manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := stream.Verify(args[0]); err != nil {
			return err
		}
		logger.Info("verify-pack-stream ok", logger.String("run_id", runID), logger.String("dir", args[0]))
		fmt.Println("ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyPackCmd)
	rootCmd.AddCommand(verifyPackStreamCmd)
}
