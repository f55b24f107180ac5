package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/blocknet/s3p/internal/config"
)

// hexFlag decodes a required hex-encoded flag value to exactly wantLen
// bytes (0 means "any length"), wrapping mismatches as usage errors.
func hexFlag(name, value string, wantLen int) ([]byte, error) {
	if value == "" {
		return nil, newUsageError(fmt.Errorf("missing required flag --%s", name))
	}
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, newUsageError(fmt.Errorf("--%s: invalid hex: %w", name, err))
	}
	if wantLen > 0 && len(b) != wantLen {
		return nil, newUsageError(fmt.Errorf("--%s: expected %d bytes, got %d", name, wantLen, len(b)))
	}
	return b, nil
}

// optionalHexFlag decodes an optional hex-encoded flag value, returning
// nil if value is empty.
func optionalHexFlag(name, value string, wantLen int) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return hexFlag(name, value, wantLen)
}

// loadEnvFile loads a dotenv file without overwriting already-set
// variables, used only when --env-file is explicitly passed.
func loadEnvFile(path string) error {
	if err := config.LoadEnvFile(path); err != nil {
		return newUsageError(err)
	}
	return nil
}

// resolveIKMSalt resolves the IKM/salt material for a command from
// --ikm-hex/--salt-hex flags, falling back to IKM_HEX/SALT_HEX in the
// process environment only when --env-file was passed and the
// corresponding flag was left empty.
func resolveIKMSalt(ikmHex, saltHex string) (ikm, salt []byte, err error) {
	if ikmHex == "" && envFile != "" {
		ikmHex = os.Getenv("IKM_HEX")
	}
	if saltHex == "" && envFile != "" {
		saltHex = os.Getenv("SALT_HEX")
	}
	ikm, err = hexFlag("ikm-hex", ikmHex, 0)
	if err != nil {
		return nil, nil, err
	}
	salt, err = hexFlag("salt-hex", saltHex, 0)
	if err != nil {
		return nil, nil, err
	}
	return ikm, salt, nil
}

// loadDefaults loads the --config YAML defaults, or empty defaults when no
// --config was given. Callers apply a value only to a flag left at its zero
// value, so a flag the operator set explicitly is never overridden.
func loadDefaults() (*config.Defaults, error) {
	if cfgFile == "" {
		return &config.Defaults{}, nil
	}
	d, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, newUsageError(err)
	}
	return d, nil
}
