// Package receipt implements the committee-verifiable receipt that closes
// a PoD aggregate: the polymorphic accepted/rejected outcome, its stable
// canonical commitment encoding, and the ledger-mutation schema carried at
// the receipt boundary (consumed, never evaluated, by the ledger
// collaborator).
package receipt

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
)

// MutationKind names the ledger mutation variants this boundary carries.
// The ledger state machine that applies them lives outside this module;
// this package only needs a stable shape to serialize.
type MutationKind string

const (
	MutationEmit                 MutationKind = "emit"
	MutationTransfer             MutationKind = "transfer"
	MutationFundBudget           MutationKind = "fund_budget"
	MutationSpendBudget          MutationKind = "spend_budget"
	MutationApplyReferralPayouts MutationKind = "apply_referral_payouts"
)

// BudgetTransfer is the leaf shape referenced by a Transfer mutation.
type BudgetTransfer struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// BudgetSpendPlan is the leaf shape referenced by a SpendBudget mutation.
type BudgetSpendPlan struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
	Purpose string `json:"purpose"`
}

// ReferralPayout is one leaf of an ApplyReferralPayouts mutation.
type ReferralPayout struct {
	Referrer string `json:"referrer"`
	Amount   uint64 `json:"amount"`
}

// Mutation is a tagged union over the ledger mutation variants embedded in
// an accepted receipt outcome. Exactly the fields relevant to Kind are
// populated.
type Mutation struct {
	Kind     MutationKind     `json:"kind"`
	Account  string           `json:"account,omitempty"`
	Amount   uint64           `json:"amount,omitempty"`
	Transfer *BudgetTransfer  `json:"transfer,omitempty"`
	Spend    *BudgetSpendPlan `json:"spend,omitempty"`
	Payouts  []ReferralPayout `json:"payouts,omitempty"`
}

// canonicalEncode produces the stable byte encoding of a single mutation
// used inside the outcome commitment: tag bytes, then a fixed field
// ordering per kind, all length-prefixed where variable.
func (m Mutation) canonicalEncode() []byte {
	var buf []byte
	buf = appendLP(buf, []byte(m.Kind))
	switch m.Kind {
	case MutationEmit, MutationFundBudget:
		buf = appendLP(buf, []byte(m.Account))
		buf = appendU64(buf, m.Amount)
	case MutationTransfer:
		if m.Transfer != nil {
			buf = appendLP(buf, []byte(m.Transfer.From))
			buf = appendLP(buf, []byte(m.Transfer.To))
			buf = appendU64(buf, m.Transfer.Amount)
		}
	case MutationSpendBudget:
		if m.Spend != nil {
			buf = appendLP(buf, []byte(m.Spend.Account))
			buf = appendU64(buf, m.Spend.Amount)
			buf = appendLP(buf, []byte(m.Spend.Purpose))
		}
	case MutationApplyReferralPayouts:
		buf = appendU64(buf, uint64(len(m.Payouts)))
		for _, p := range m.Payouts {
			buf = appendLP(buf, []byte(p.Referrer))
			buf = appendU64(buf, p.Amount)
		}
	}
	return buf
}

func appendLP(buf, b []byte) []byte {
	buf = appendU64(buf, uint64(len(b)))
	return append(buf, b...)
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Outcome is the polymorphic accepted/rejected result of a receipt. Exactly
// one of Accepted or Rejected is non-nil.
type Outcome struct {
	Accepted *AcceptedOutcome `json:"accepted,omitempty"`
	Rejected *RejectedOutcome `json:"rejected,omitempty"`
}

// AcceptedOutcome carries the ledger mutations produced by a delivered
// series and free-form operator notes.
type AcceptedOutcome struct {
	Mutations []Mutation `json:"mutations"`
	Notes     []string   `json:"notes"`
}

// RejectedOutcome carries the human-readable reason a series was rejected.
type RejectedOutcome struct {
	Reason string `json:"reason"`
}

// Commitment returns the canonical outcome_commitment bytes: a tag
// ("accepted"/"rejected") followed, for accepted, by a little-endian u64
// mutation count, each mutation's canonical encoding, and the raw UTF-8 of
// each note concatenated; or, for rejected, the raw UTF-8 reason.
func (o Outcome) Commitment() ([]byte, error) {
	switch {
	case o.Accepted != nil && o.Rejected == nil:
		buf := []byte("accepted")
		buf = appendU64(buf, uint64(len(o.Accepted.Mutations)))
		for _, m := range o.Accepted.Mutations {
			buf = append(buf, m.canonicalEncode()...)
		}
		for _, n := range o.Accepted.Notes {
			buf = append(buf, n...)
		}
		return buf, nil
	case o.Rejected != nil && o.Accepted == nil:
		buf := []byte("rejected")
		buf = append(buf, o.Rejected.Reason...)
		return buf, nil
	default:
		return nil, fmt.Errorf("receipt: outcome must set exactly one of accepted/rejected")
	}
}

// Core is the receipt payload a committee signs over.
type Core struct {
	SCID       string  `json:"scid"`
	MerkleRoot string  `json:"merkle_root"`
	CtHash     string  `json:"ct_hash"`
	Outcome    Outcome `json:"outcome"`
}

// Digest computes H(scid || merkle_root || ct_hash || outcome_commitment),
// stable regardless of JSON key order since it operates on the decoded
// struct fields, not on a serialized form.
func (c Core) Digest() ([32]byte, error) {
	commitment, err := c.Outcome.Commitment()
	if err != nil {
		return [32]byte{}, err
	}
	buf := make([]byte, 0, len(c.SCID)+len(c.MerkleRoot)+len(c.CtHash)+len(commitment))
	buf = append(buf, c.SCID...)
	buf = append(buf, c.MerkleRoot...)
	buf = append(buf, c.CtHash...)
	buf = append(buf, commitment...)
	return blake3.Sum256(buf), nil
}
