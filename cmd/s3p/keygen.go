package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blocknet/s3p/internal/logger"
)

var keygenOutDir string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an Ed25519 PoD signing key pair",
	Long: `Generate a fresh Ed25519 key pair for Proof-of-Delivery signing.

Writes two files to --out-dir:
  sk.hex  64 hex characters, the private key
  pk.hex  64 hex characters, the public key`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVar(&keygenOutDir, "out-dir", "", "directory to write sk.hex and pk.hex into")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	if keygenOutDir == "" {
		return newUsageError(fmt.Errorf("missing required flag --out-dir"))
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("keygen: generate key pair: %w", err)
	}

	if err := os.MkdirAll(keygenOutDir, 0o755); err != nil {
		return fmt.Errorf("keygen: create out-dir: %w", err)
	}

	skPath := filepath.Join(keygenOutDir, "sk.hex")
	pkPath := filepath.Join(keygenOutDir, "pk.hex")
	if err := os.WriteFile(skPath, []byte(hex.EncodeToString(priv.Seed())+"\n"), 0o600); err != nil {
		return fmt.Errorf("keygen: write sk.hex: %w", err)
	}
	if err := os.WriteFile(pkPath, []byte(hex.EncodeToString(pub)+"\n"), 0o644); err != nil {
		return fmt.Errorf("keygen: write pk.hex: %w", err)
	}

	logger.Info("keygen complete", logger.String("run_id", runID), logger.String("out_dir", keygenOutDir))
	fmt.Printf("sk: %s\n", skPath)
	fmt.Printf("pk: %s\n", pkPath)
	return nil
}
