package receipt

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrUnknownMember is returned when a signature or an aggregated
// participant is attributed to a member ID absent from the committee
// configuration.
var ErrUnknownMember = errors.New("receipt: signature from unknown committee member")

// InsufficientQuorumError reports the shortfall between the required and
// actual distinct valid signer count.
type InsufficientQuorumError struct {
	Expected int
	Actual   int
}

func (e *InsufficientQuorumError) Error() string {
	return fmt.Sprintf("receipt: insufficient quorum: expected %d, got %d", e.Expected, e.Actual)
}

// CommitteeConfig pins the quorum threshold and the known member public
// keys for a receipt's committee.
type CommitteeConfig struct {
	Quorum  int
	Members map[string]ed25519.PublicKey // member id -> public key
}

// MemberSignature is one committee member's signature over a receipt's
// digest.
type MemberSignature struct {
	MemberID  string `json:"member_id"`
	Signature string `json:"signature"` // lowercase hex
}

// AggregatedSignature is an advisory, pre-aggregated signature claim over
// a set of participants. No aggregation scheme is wired yet, so Verify
// checks its participants for committee membership but never counts it
// toward quorum.
type AggregatedSignature struct {
	Participants []string `json:"participants"`
	Signature    string   `json:"signature"` // lowercase hex
}

// Committee is the envelope attached to a receipt core.
type Committee struct {
	Signatures []MemberSignature    `json:"signatures"`
	Aggregated *AggregatedSignature `json:"aggregated,omitempty"`
}

// SignedReceipt pairs a receipt core with its committee envelope.
type SignedReceipt struct {
	Core      Core      `json:"core"`
	Committee Committee `json:"committee"`
}

// Verify recomputes the receipt digest, checks every member signature
// against the committee configuration, and requires that at least Quorum
// distinct members produced a valid signature. An aggregated signature, if
// present, must name only known members but never counts toward quorum on
// its own.
func (cfg CommitteeConfig) Verify(r SignedReceipt) error {
	digest, err := r.Core.Digest()
	if err != nil {
		return err
	}

	valid := make(map[string]struct{})
	for _, sig := range r.Committee.Signatures {
		pub, ok := cfg.Members[sig.MemberID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownMember, sig.MemberID)
		}
		sigBytes, err := hex.DecodeString(sig.Signature)
		if err != nil {
			return fmt.Errorf("receipt: malformed signature for %s: %w", sig.MemberID, err)
		}
		if !ed25519.Verify(pub, digest[:], sigBytes) {
			return fmt.Errorf("receipt: invalid signature for %s", sig.MemberID)
		}
		valid[sig.MemberID] = struct{}{}
	}

	if agg := r.Committee.Aggregated; agg != nil {
		for _, member := range agg.Participants {
			if _, ok := cfg.Members[member]; !ok {
				return fmt.Errorf("%w: %s", ErrUnknownMember, member)
			}
		}
		// advisory until an aggregation scheme is wired
	}

	if len(valid) < cfg.Quorum {
		return &InsufficientQuorumError{Expected: cfg.Quorum, Actual: len(valid)}
	}
	return nil
}

// Sign produces a hex-encoded ed25519 signature over the receipt's
// digest, suitable for one MemberSignature entry.
func Sign(priv ed25519.PrivateKey, core Core) (string, error) {
	digest, err := core.Digest()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ed25519.Sign(priv, digest[:])), nil
}
