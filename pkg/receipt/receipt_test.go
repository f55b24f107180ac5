package receipt

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCore() Core {
	return Core{
		SCID:       "deadbeef",
		MerkleRoot: "cafebabe",
		CtHash:     "abad1dea",
		Outcome: Outcome{
			Accepted: &AcceptedOutcome{
				Mutations: []Mutation{
					{Kind: MutationEmit, Account: "alice", Amount: 100},
				},
				Notes: []string{"delivered"},
			},
		},
	}
}

func TestDigestStableAcrossEqualCores(t *testing.T) {
	d1, err := sampleCore().Digest()
	require.NoError(t, err)
	d2, err := sampleCore().Digest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestDigestDiffersOnOutcomeChange(t *testing.T) {
	c1 := sampleCore()
	c2 := sampleCore()
	c2.Outcome = Outcome{Rejected: &RejectedOutcome{Reason: "bad shard"}}

	d1, err := c1.Digest()
	require.NoError(t, err)
	d2, err := c2.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestOutcomeRequiresExactlyOneVariant(t *testing.T) {
	_, err := Outcome{}.Commitment()
	assert.Error(t, err)

	_, err = Outcome{
		Accepted: &AcceptedOutcome{},
		Rejected: &RejectedOutcome{},
	}.Commitment()
	assert.Error(t, err)
}

func TestCommitteeQuorum(t *testing.T) {
	core := sampleCore()

	members := map[string]ed25519.PrivateKey{}
	pubs := map[string]ed25519.PublicKey{}
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		pub, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		members[id] = priv
		pubs[id] = pub
	}

	cfg := CommitteeConfig{Quorum: 3, Members: pubs}

	sign := func(id string) MemberSignature {
		sig, err := Sign(members[id], core)
		require.NoError(t, err)
		return MemberSignature{MemberID: id, Signature: sig}
	}

	// three valid signatures accept
	accept := SignedReceipt{Core: core, Committee: Committee{
		Signatures: []MemberSignature{sign("m1"), sign("m2"), sign("m3")},
	}}
	assert.NoError(t, cfg.Verify(accept))

	// two valid only: insufficient quorum
	short := SignedReceipt{Core: core, Committee: Committee{
		Signatures: []MemberSignature{sign("m1"), sign("m2")},
	}}
	err := cfg.Verify(short)
	var quorumErr *InsufficientQuorumError
	require.ErrorAs(t, err, &quorumErr)
	assert.Equal(t, 3, quorumErr.Expected)
	assert.Equal(t, 2, quorumErr.Actual)

	// two valid + one from a non-member: unknown member rejects
	withStranger := SignedReceipt{Core: core, Committee: Committee{
		Signatures: []MemberSignature{sign("m1"), sign("m2"), {MemberID: "ghost", Signature: "00"}},
	}}
	assert.ErrorIs(t, cfg.Verify(withStranger), ErrUnknownMember)
}

func TestAggregatedFieldNeverCountsTowardQuorum(t *testing.T) {
	core := sampleCore()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	cfg := CommitteeConfig{Quorum: 1, Members: map[string]ed25519.PublicKey{"m1": pub}}

	sig, err := Sign(priv, core)
	require.NoError(t, err)

	agg := &AggregatedSignature{Participants: []string{"m1"}, Signature: "deadbeefdeadbeef"}
	receipt := SignedReceipt{Core: core, Committee: Committee{
		Signatures: []MemberSignature{{MemberID: "m1", Signature: sig}},
		Aggregated: agg,
	}}
	assert.NoError(t, cfg.Verify(receipt))

	receiptNoSigs := SignedReceipt{Core: core, Committee: Committee{
		Aggregated: agg,
	}}
	err = cfg.Verify(receiptNoSigs)
	var quorumErr *InsufficientQuorumError
	assert.ErrorAs(t, err, &quorumErr)
}

func TestAggregatedParticipantsMustBeKnownMembers(t *testing.T) {
	core := sampleCore()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	cfg := CommitteeConfig{Quorum: 1, Members: map[string]ed25519.PublicKey{"m1": pub}}

	sig, err := Sign(priv, core)
	require.NoError(t, err)

	receipt := SignedReceipt{Core: core, Committee: Committee{
		Signatures: []MemberSignature{{MemberID: "m1", Signature: sig}},
		Aggregated: &AggregatedSignature{Participants: []string{"m1", "ghost"}, Signature: "00"},
	}}
	assert.ErrorIs(t, cfg.Verify(receipt), ErrUnknownMember)
}
