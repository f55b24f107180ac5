package main

import (
	"github.com/spf13/cobra"

	"github.com/blocknet/s3p/internal/logger"
	"github.com/blocknet/s3p/internal/metrics"
)

var metricsServeAddr string

var metricsServeCmd = &cobra.Command{
	Use:   "metrics-serve",
	Short: "Serve Prometheus metrics for codec and PoD operations over /metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("metrics-serve listening", logger.String("run_id", runID), logger.String("addr", metricsServeAddr))
		return metrics.StartServer(metricsServeAddr)
	},
}

func init() {
	rootCmd.AddCommand(metricsServeCmd)
	metricsServeCmd.Flags().StringVar(&metricsServeAddr, "addr", ":9090", "listen address for the metrics HTTP server")
}
