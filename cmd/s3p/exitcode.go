package main

import (
	"errors"

	"github.com/blocknet/s3p/pkg/aead"
	"github.com/blocknet/s3p/pkg/erasure"
	"github.com/blocknet/s3p/pkg/fountain"
	"github.com/blocknet/s3p/pkg/receipt"
)

// Exit codes: 0 ok, 1 usage, 2 invalid input / integrity failure.
const (
	exitOK    = 0
	exitUsage = 1
	exitInput = 2
)

// usageError marks an error that should exit 1 rather than the default 2.
type usageError struct{ err error }

func (u *usageError) Error() string { return u.err.Error() }
func (u *usageError) Unwrap() error { return u.err }

func newUsageError(err error) error { return &usageError{err: err} }

// exitCodeFor classifies an error returned by a subcommand's RunE.
// Usage/config errors exit 1; I/O, cryptographic, codec, and integrity
// failures exit 2.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var ue *usageError
	if errors.As(err, &ue) {
		return exitUsage
	}

	switch {
	case errors.Is(err, aead.ErrOpenFailed),
		errors.Is(err, erasure.ErrInsufficientShards),
		errors.Is(err, erasure.ErrShardSizeMismatch),
		errors.Is(err, erasure.ErrTooManyShards),
		errors.Is(err, fountain.ErrMetadataMismatch),
		errors.Is(err, fountain.ErrInvalidPayloadLen),
		errors.Is(err, fountain.ErrEmptyIndices),
		errors.Is(err, fountain.ErrIndexOutOfRange),
		errors.Is(err, fountain.ErrConflictingSolution),
		errors.Is(err, fountain.ErrInconsistentEquation),
		errors.Is(err, receipt.ErrUnknownMember):
		return exitInput
	}
	var quorumErr *receipt.InsufficientQuorumError
	if errors.As(err, &quorumErr) {
		return exitInput
	}

	return exitInput
}
