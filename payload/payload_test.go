package payload_test

import (
	"testing"

	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/key"
	"github.com/rmartinho/pbmx/mask"
	"github.com/rmartinho/pbmx/payload"
	"github.com/rmartinho/pbmx/proof"
	"github.com/rmartinho/pbmx/stack"
	"github.com/stretchr/testify/require"
)

func newMaskScheme(cs *crypto.Scheme) *mask.Scheme {
	priv := cs.RandomScalar()
	pub := cs.Group.Point().Mul(priv, cs.Base())
	return mask.NewScheme(cs, pub)
}

func roundtrip(t *testing.T, cs *crypto.Scheme, p payload.Payload) payload.Payload {
	t.Helper()
	buf, err := p.Encode(cs)
	require.NoError(t, err)
	got, err := payload.Decode(cs, p.Tag(), buf)
	require.NoError(t, err)
	return got
}

func TestRawBytesRoundtrip(t *testing.T) {
	cs := crypto.Default()
	p := payload.RawBytes{Data: []byte{1, 2, 3, 4}}
	got := roundtrip(t, cs, p).(payload.RawBytes)
	require.Equal(t, p.Data, got.Data)
	require.Equal(t, payload.TagRawBytes, got.Tag())
}

func TestPublishKeyRoundtrip(t *testing.T) {
	cs := crypto.Default()
	_, pub, err := key.Generate(cs)
	require.NoError(t, err)

	p := payload.PublishKey{Name: "alice", Key: pub}
	got := roundtrip(t, cs, p).(payload.PublishKey)
	require.Equal(t, "alice", got.Name)
	require.True(t, pub.Equal(got.Key))
}

func TestOpenStackRoundtrip(t *testing.T) {
	cs := crypto.Default()
	ms := newMaskScheme(cs)
	s, _, err := stack.Mask(ms, []int64{1, 2, 3})
	require.NoError(t, err)

	p := payload.OpenStack{Stack: s}
	got := roundtrip(t, cs, p).(payload.OpenStack)
	wantId, err := s.Id(cs)
	require.NoError(t, err)
	gotId, err := got.Stack.Id(cs)
	require.NoError(t, err)
	require.Equal(t, wantId, gotId)
}

func TestMaskStackRoundtrip(t *testing.T) {
	cs := crypto.Default()
	ms := newMaskScheme(cs)
	tokens := []int64{1, 2, 3}
	s, proofs, err := stack.Mask(ms, tokens)
	require.NoError(t, err)
	var source crypto.Fingerprint
	source[0] = 9

	p := payload.MaskStack{Source: source, Tokens: tokens, Result: s, Proofs: proofs}
	got := roundtrip(t, cs, p).(payload.MaskStack)
	require.Equal(t, source, got.Source)
	require.Equal(t, tokens, got.Tokens)
	require.Len(t, got.Proofs, 3)
	require.NoError(t, stack.VerifyMask(ms, cs, got.Result, got.Tokens, got.Proofs))
}

func TestShuffleStackRoundtrip(t *testing.T) {
	cs := crypto.Default()
	ms := newMaskScheme(cs)
	s, _, err := stack.Mask(ms, []int64{1, 2, 3, 4})
	require.NoError(t, err)
	perm := []int{3, 2, 1, 0}
	shuffled, sp, err := stack.Shuffle(cs, ms, "payload-shuffle", s, perm)
	require.NoError(t, err)
	var source crypto.Fingerprint
	source[0] = 1

	p := payload.ShuffleStack{Source: source, Result: shuffled, Proof: sp}
	got := roundtrip(t, cs, p).(payload.ShuffleStack)
	require.NoError(t, stack.VerifyShuffle(cs, ms, "payload-shuffle", s, got.Result, got.Proof))
}

func TestShiftStackRoundtrip(t *testing.T) {
	cs := crypto.Default()
	ms := newMaskScheme(cs)
	s, _, err := stack.Mask(ms, []int64{1, 2, 3, 4})
	require.NoError(t, err)
	shifted, sp, err := stack.Shift(cs, ms, "payload-shift", s, 2)
	require.NoError(t, err)
	var source crypto.Fingerprint
	source[0] = 2

	p := payload.ShiftStack{Source: source, Result: shifted, Proof: sp}
	got := roundtrip(t, cs, p).(payload.ShiftStack)
	require.NoError(t, stack.VerifyShift(cs, ms, "payload-shift", s, got.Result, got.Proof))
}

func TestNameStackRoundtrip(t *testing.T) {
	cs := crypto.Default()
	var target crypto.Fingerprint
	target[3] = 7

	p := payload.NameStack{Target: target, Name: "deck"}
	got := roundtrip(t, cs, p).(payload.NameStack)
	require.Equal(t, target, got.Target)
	require.Equal(t, "deck", got.Name)
}

func TestTakeStackRoundtrip(t *testing.T) {
	cs := crypto.Default()
	var source, result crypto.Fingerprint
	source[0], result[0] = 1, 2

	p := payload.TakeStack{Source: source, Indices: []int{3, 1, 0}, Result: result}
	got := roundtrip(t, cs, p).(payload.TakeStack)
	require.Equal(t, source, got.Source)
	require.Equal(t, []int{3, 1, 0}, got.Indices)
	require.Equal(t, result, got.Result)
}

func TestPileStacksRoundtrip(t *testing.T) {
	cs := crypto.Default()
	var a, b, result crypto.Fingerprint
	a[0], b[0], result[0] = 1, 2, 3

	p := payload.PileStacks{Sources: []crypto.Fingerprint{a, b}, Result: result}
	got := roundtrip(t, cs, p).(payload.PileStacks)
	require.Equal(t, []crypto.Fingerprint{a, b}, got.Sources)
	require.Equal(t, result, got.Result)
}

func TestPublishSharesRoundtrip(t *testing.T) {
	cs := crypto.Default()
	priv := cs.RandomScalar()
	pub := cs.Group.Point().Mul(priv, cs.Base())
	ms := mask.NewScheme(cs, pub)
	s, _, err := stack.Mask(ms, []int64{5, 6})
	require.NoError(t, err)

	shares := make([]mask.Share, len(s.Masks))
	proofs := make([]*proof.DlogEq, len(s.Masks))
	for i, m := range s.Masks {
		sh, pr, err := mask.Share(cs, m, priv, pub)
		require.NoError(t, err)
		shares[i] = sh
		proofs[i] = pr
	}
	var target crypto.Fingerprint
	target[0] = 4

	p := payload.PublishShares{Target: target, Shares: shares, Proofs: proofs}
	got := roundtrip(t, cs, p).(payload.PublishShares)
	require.Len(t, got.Shares, 2)
	for i, m := range s.Masks {
		require.NoError(t, mask.VerifyShare(cs, m, pub, got.Shares[i], got.Proofs[i]))
	}
}

func TestRandomSpecRoundtrip(t *testing.T) {
	cs := crypto.Default()
	p := payload.RandomSpec{Name: "roll", SpecText: "2d6+3"}
	got := roundtrip(t, cs, p).(payload.RandomSpec)
	require.Equal(t, "roll", got.Name)
	require.Equal(t, "2d6+3", got.SpecText)
}

func TestRandomEntropyRoundtrip(t *testing.T) {
	cs := crypto.Default()
	ms := newMaskScheme(cs)
	m, _, err := ms.Mask(0)
	require.NoError(t, err)

	p := payload.RandomEntropy{Name: "roll", Entropy: m}
	got := roundtrip(t, cs, p).(payload.RandomEntropy)
	require.True(t, m.C1.Equal(got.Entropy.C1))
	require.True(t, m.C2.Equal(got.Entropy.C2))
}

func TestRandomRevealRoundtrip(t *testing.T) {
	cs := crypto.Default()
	priv := cs.RandomScalar()
	pub := cs.Group.Point().Mul(priv, cs.Base())
	ms := mask.NewScheme(cs, pub)
	m, _, err := ms.Mask(0)
	require.NoError(t, err)
	sh, pr, err := mask.Share(cs, m, priv, pub)
	require.NoError(t, err)

	p := payload.RandomReveal{Name: "roll", Share: sh, Proof: pr}
	got := roundtrip(t, cs, p).(payload.RandomReveal)
	require.NoError(t, mask.VerifyShare(cs, m, pub, got.Share, got.Proof))
}

func TestTextRoundtrip(t *testing.T) {
	cs := crypto.Default()
	p := payload.Text{Text: "good luck, have fun"}
	got := roundtrip(t, cs, p).(payload.Text)
	require.Equal(t, p.Text, got.Text)
}

func TestProveEntanglementRoundtrip(t *testing.T) {
	cs := crypto.Default()
	ms := newMaskScheme(cs)
	bodies, _, err := stack.Mask(ms, []int64{1, 2, 3})
	require.NoError(t, err)
	backs, _, err := stack.Mask(ms, []int64{11, 12, 13})
	require.NoError(t, err)

	perm := []int{2, 0, 1}
	rs := make([][]kyber.Scalar, 2)
	for l := range rs {
		rs[l] = make([]kyber.Scalar, len(perm))
		for i := range rs[l] {
			rs[l][i] = cs.RandomScalar()
		}
	}
	outs, ep, err := stack.Entangle(cs, ms, "payload-entangle", []stack.Stack{bodies, backs}, perm, rs)
	require.NoError(t, err)

	var src1, src2, sh1, sh2 crypto.Fingerprint
	src1[0], src2[0] = 1, 2
	sh1[0], sh2[0] = 3, 4

	p := payload.ProveEntanglement{
		Sources:    []crypto.Fingerprint{src1, src2},
		ShuffleIds: []crypto.Fingerprint{sh1, sh2},
		Proof:      ep,
	}
	got := roundtrip(t, cs, p).(payload.ProveEntanglement)
	require.Equal(t, p.Sources, got.Sources)
	require.Equal(t, p.ShuffleIds, got.ShuffleIds)
	require.NoError(t, stack.VerifyEntangle(cs, ms, "payload-entangle", []stack.Stack{bodies, backs}, outs, got.Proof))
}
