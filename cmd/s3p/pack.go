package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blocknet/s3p/internal/logger"
	"github.com/blocknet/s3p/internal/metrics"
	"github.com/blocknet/s3p/pkg/profile/rs"
)

var (
	packData    int
	packParity  int
	packIKMHex  string
	packSaltHex string
	packAADHex  string
)

var packCmd = &cobra.Command{
	Use:   "pack <in> <out_dir>",
	Short: "Pack a file into a whole-file Reed-Solomon shard set",
	Args:  cobra.ExactArgs(2),
	RunE:  runPack,
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().IntVar(&packData, "data", 0, "number of systematic data shards (k)")
	packCmd.Flags().IntVar(&packParity, "parity", 0, "number of parity shards (m)")
	packCmd.Flags().StringVar(&packIKMHex, "ikm-hex", "", "hex-encoded input key material")
	packCmd.Flags().StringVar(&packSaltHex, "salt-hex", "", "hex-encoded key-derivation salt")
	packCmd.Flags().StringVar(&packAADHex, "aad", "", "hex-encoded additional authenticated data")
}

func runPack(cmd *cobra.Command, args []string) error {
	defaults, err := loadDefaults()
	if err != nil {
		return err
	}
	k, m := packData, packParity
	if k == 0 && defaults.Data != 0 {
		k = defaults.Data
	}
	if m == 0 && defaults.Parity != 0 {
		m = defaults.Parity
	}
	if k < 1 || m < 1 {
		return newUsageError(fmt.Errorf("--data and --parity must both be >= 1"))
	}

	ikm, salt, err := resolveIKMSalt(packIKMHex, packSaltHex)
	if err != nil {
		return err
	}
	aad, err := optionalHexFlag("aad", packAADHex, 0)
	if err != nil {
		return err
	}

	start := time.Now()
	m2, err := rs.Pack(rs.PackOptions{
		InPath: args[0],
		OutDir: args[1],
		K:      k,
		M:      m,
		IKM:    ikm,
		Salt:   salt,
		AAD:    aad,
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.OperationsTotal.WithLabelValues("pack", "rs", outcome).Inc()
	metrics.OperationDuration.WithLabelValues("pack", "rs").Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	logger.Info("pack complete",
		logger.String("run_id", runID),
		logger.String("scid", m2.SCID),
		logger.Int("k", m2.K),
		logger.Int("m", m2.M),
		logger.String("out_dir", args[1]),
	)
	fmt.Println(m2.SCID)
	return nil
}
