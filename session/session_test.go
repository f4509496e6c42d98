package session_test

import (
	"testing"

	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/key"
	"github.com/rmartinho/pbmx/mask"
	"github.com/rmartinho/pbmx/session"
	"github.com/stretchr/testify/require"
)

// twoPartySession bootstraps a Session and publishes both alice's and bob's
// keys in a single root block, the self-bootstrapping case spec §4.5
// describes for roots.
func twoPartySession(t *testing.T) (cs *crypto.Scheme, s *session.Session, alicePriv *key.PrivateKey, alicePub *key.PublicKey, bobPriv *key.PrivateKey, bobPub *key.PublicKey) {
	t.Helper()
	cs = crypto.Default()
	s = session.New(cs)

	var err error
	alicePriv, alicePub, err = key.Generate(cs)
	require.NoError(t, err)
	bobPriv, bobPub, err = key.Generate(cs)
	require.NoError(t, err)

	root, err := s.NewBuilder().
		PublishKey("alice", alicePub).
		PublishKey("bob", bobPub).
		Sign(alicePriv, alicePub)
	require.NoError(t, err)
	require.NoError(t, s.Append(root))
	return
}

func TestKeyExchangeSharedKey(t *testing.T) {
	cs, s, _, alicePub, _, bobPub := twoPartySession(t)

	want := cs.Group.Point().Add(alicePub.Point(), bobPub.Point())
	require.True(t, want.Equal(s.SharedKey()))
	require.True(t, s.PartiesComplete())
	require.Len(t, s.Parties(), 2)
}

func TestMaskUnmaskRoundtrip(t *testing.T) {
	cs, s, alicePriv, alicePub, bobPriv, bobPub := twoPartySession(t)

	b := s.NewBuilder()
	result, err := b.MaskStack(crypto.Fingerprint{}, []int64{42})
	require.NoError(t, err)
	blk, err := b.Sign(alicePriv, alicePub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk))

	resultId, err := result.Id(cs)
	require.NoError(t, err)

	b2 := s.NewBuilder()
	require.NoError(t, b2.PublishShares(resultId, alicePriv, alicePub))
	blk2, err := b2.Sign(alicePriv, alicePub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk2))

	b3 := s.NewBuilder()
	require.NoError(t, b3.PublishShares(resultId, bobPriv, bobPub))
	blk3, err := b3.Sign(bobPriv, bobPub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk3))

	st, ok := s.LookupStack(resultId)
	require.True(t, ok)
	m := st.Masks[0]

	aliceSh, alicePr, err := mask.Share(cs, m, alicePriv.Scalar(), alicePub.Point())
	require.NoError(t, err)
	require.NoError(t, mask.VerifyShare(cs, m, alicePub.Point(), aliceSh, alicePr))
	m = mask.UnmaskShare(cs, m, aliceSh)

	bobSh, bobPr, err := mask.Share(cs, m, bobPriv.Scalar(), bobPub.Point())
	require.NoError(t, err)
	require.NoError(t, mask.VerifyShare(cs, m, bobPub.Point(), bobSh, bobPr))
	m = mask.UnmaskShare(cs, m, bobSh)

	got, err := mask.UnmaskOpen(cs, m, 100)
	require.NoError(t, err)
	require.Equal(t, int64(42), got)
}

func TestShuffleThroughSession(t *testing.T) {
	cs, s, alicePriv, alicePub, _, _ := twoPartySession(t)

	b := s.NewBuilder()
	masked, err := b.MaskStack(crypto.Fingerprint{}, []int64{1, 2, 3, 4})
	require.NoError(t, err)
	blk, err := b.Sign(alicePriv, alicePub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk))

	maskedId, err := masked.Id(cs)
	require.NoError(t, err)

	b2 := s.NewBuilder()
	shuffled, err := b2.ShuffleStack(maskedId, []int{3, 2, 1, 0})
	require.NoError(t, err)
	blk2, err := b2.Sign(alicePriv, alicePub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk2))

	shuffledId, err := shuffled.Id(cs)
	require.NoError(t, err)
	got, ok := s.LookupStack(shuffledId)
	require.True(t, ok)
	require.Equal(t, 4, got.Len())
}

func TestShiftThroughSession(t *testing.T) {
	cs, s, alicePriv, alicePub, _, _ := twoPartySession(t)

	b := s.NewBuilder()
	masked, err := b.MaskStack(crypto.Fingerprint{}, []int64{1, 2, 3, 4})
	require.NoError(t, err)
	blk, err := b.Sign(alicePriv, alicePub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk))

	maskedId, err := masked.Id(cs)
	require.NoError(t, err)

	b2 := s.NewBuilder()
	shifted, err := b2.ShiftStack(maskedId, 2)
	require.NoError(t, err)
	blk2, err := b2.Sign(alicePriv, alicePub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk2))

	shiftedId, err := shifted.Id(cs)
	require.NoError(t, err)
	_, ok := s.LookupStack(shiftedId)
	require.True(t, ok)
}

// TestInsertThroughSession drives Builder.InsertStack followed by
// session.Append (which validates through chain.Append) end to end, the
// path stack_test.go's TestInsertRoundtrip bypasses by calling stack.Insert
// and stack.VerifyInsert directly without ever registering the combined
// pre-image stack or its shift_stack payloads on a real chain.
func TestInsertThroughSession(t *testing.T) {
	cs, s, alicePriv, alicePub, _, _ := twoPartySession(t)

	b := s.NewBuilder()
	target, err := b.MaskStack(crypto.Fingerprint{}, []int64{1, 2, 3})
	require.NoError(t, err)
	needle, err := b.MaskStack(crypto.Fingerprint{}, []int64{100})
	require.NoError(t, err)
	blk, err := b.Sign(alicePriv, alicePub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk))

	targetId, err := target.Id(cs)
	require.NoError(t, err)
	needleId, err := needle.Id(cs)
	require.NoError(t, err)

	b2 := s.NewBuilder()
	joined, restored, err := b2.InsertStack(targetId, needleId, 2)
	require.NoError(t, err)
	blk2, err := b2.Sign(alicePriv, alicePub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk2))

	joinedId, err := joined.Id(cs)
	require.NoError(t, err)
	gotJoined, ok := s.LookupStack(joinedId)
	require.True(t, ok)
	require.Equal(t, 4, gotJoined.Len())

	restoredId, err := restored.Id(cs)
	require.NoError(t, err)
	gotRestored, ok := s.LookupStack(restoredId)
	require.True(t, ok)
	require.Equal(t, 4, gotRestored.Len())
}

func TestRngThroughSession(t *testing.T) {
	cs, s, alicePriv, alicePub, bobPriv, bobPub := twoPartySession(t)

	b := s.NewBuilder()
	b.RandomSpec("roll", "2d6+3")
	blk, err := b.Sign(alicePriv, alicePub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk))

	b2 := s.NewBuilder()
	_, err = b2.RandomEntropy("roll")
	require.NoError(t, err)
	blk2, err := b2.Sign(alicePriv, alicePub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk2))

	b3 := s.NewBuilder()
	_, err = b3.RandomEntropy("roll")
	require.NoError(t, err)
	blk3, err := b3.Sign(bobPriv, bobPub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk3))

	st, ok := s.LookupRng("roll")
	require.True(t, ok)
	require.True(t, st.Generated(s.Parties()))

	b4 := s.NewBuilder()
	require.NoError(t, b4.RandomReveal("roll", alicePriv, alicePub))
	blk4, err := b4.Sign(alicePriv, alicePub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk4))

	b5 := s.NewBuilder()
	require.NoError(t, b5.RandomReveal("roll", bobPriv, bobPub))
	blk5, err := b5.Sign(bobPriv, bobPub)
	require.NoError(t, err)
	require.NoError(t, s.Append(blk5))

	st, ok = s.LookupRng("roll")
	require.True(t, ok)
	require.True(t, st.Revealed(s.Parties()))
	v1, err := st.Value(cs)
	require.NoError(t, err)
	require.GreaterOrEqual(t, v1, int64(5))
	require.LessOrEqual(t, v1, int64(15))
}

func TestDescriptorBootstrap(t *testing.T) {
	cs := crypto.Default()
	d := session.Descriptor{
		Name:            "friday-night-poker",
		ExpectedParties: []string{"alice", "bob"},
		RngSpecs:        map[string]string{"roll": "2d6+3"},
	}
	s := d.Bootstrap(cs)
	require.False(t, s.PartiesComplete())

	text, ok := s.RngSpecText("roll")
	require.True(t, ok)
	require.Equal(t, "2d6+3", text)
}

func TestChainTopologyThroughSession(t *testing.T) {
	_, s, alicePriv, alicePub, _, _ := twoPartySession(t)

	b1, err := s.NewBuilder().Text("b1").Sign(alicePriv, alicePub)
	require.NoError(t, err)
	require.NoError(t, s.Append(b1))

	require.True(t, s.Chain().Merged())
	require.False(t, s.Chain().Incomplete())
}
