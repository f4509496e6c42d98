package chain_test

import (
	"testing"

	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/chain"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/key"
	"github.com/rmartinho/pbmx/mask"
	"github.com/rmartinho/pbmx/payload"
	"github.com/rmartinho/pbmx/rng"
	"github.com/rmartinho/pbmx/stack"
	"github.com/stretchr/testify/require"
)

// fakeState is a minimal chain.DerivedState double, standing in for a
// session.Session for these tests (package session imports chain, so
// chain's tests must not depend on it).
type fakeState struct {
	shared  kyber.Point
	keys    map[crypto.Fingerprint]kyber.Point
	stacks  map[crypto.Fingerprint]stack.Stack
	rngs    map[string]*rng.State
}

func newFakeState(shared kyber.Point) *fakeState {
	return &fakeState{
		shared: shared,
		keys:   make(map[crypto.Fingerprint]kyber.Point),
		stacks: make(map[crypto.Fingerprint]stack.Stack),
		rngs:   make(map[string]*rng.State),
	}
}

func (s *fakeState) SharedKey() kyber.Point { return s.shared }
func (s *fakeState) LookupPublicKey(fp crypto.Fingerprint) (kyber.Point, bool) {
	p, ok := s.keys[fp]
	return p, ok
}
func (s *fakeState) LookupStack(id crypto.Fingerprint) (stack.Stack, bool) {
	st, ok := s.stacks[id]
	return st, ok
}
func (s *fakeState) LookupRng(name string) (*rng.State, bool) {
	st, ok := s.rngs[name]
	return st, ok
}

// signedRoot builds and signs a self-bootstrapping root block that
// publishes priv's own public key, the only way a signer can be accepted
// before any key is on chain (spec §4.5).
func signedRoot(t *testing.T, cs *crypto.Scheme, priv *key.PrivateKey, pub *key.PublicKey, parents []crypto.Fingerprint, extra ...payload.Payload) chain.Block {
	t.Helper()
	fp, err := pub.Fingerprint()
	require.NoError(t, err)

	b := chain.Block{
		Parents:  parents,
		Payloads: append([]payload.Payload{payload.PublishKey{Name: "p", Key: pub}}, extra...),
		Signer:   fp,
	}
	id, err := b.Id(cs)
	require.NoError(t, err)
	sig, err := priv.Sign(id.Bytes())
	require.NoError(t, err)
	b.Signature = sig
	return b
}

func TestBlockRoundtrip(t *testing.T) {
	cs := crypto.Default()
	priv, pub, err := key.Generate(cs)
	require.NoError(t, err)
	b := signedRoot(t, cs, priv, pub, nil, payload.Text{Text: "hello"})

	buf, err := b.Encode(cs)
	require.NoError(t, err)
	got, err := chain.DecodeBlock(cs, buf)
	require.NoError(t, err)

	wantId, err := b.Id(cs)
	require.NoError(t, err)
	gotId, err := got.Id(cs)
	require.NoError(t, err)
	require.Equal(t, wantId, gotId)
	require.Equal(t, b.Signer, got.Signer)
	require.Equal(t, b.Signature, got.Signature)
	require.Len(t, got.Payloads, 2)
}

func TestBlockDebugJSON(t *testing.T) {
	cs := crypto.Default()
	priv, pub, err := key.Generate(cs)
	require.NoError(t, err)
	b := signedRoot(t, cs, priv, pub, nil, payload.Text{Text: "hello"})

	buf, err := b.DebugJSON(cs)
	require.NoError(t, err)
	require.Contains(t, string(buf), `"TagName"`)
	require.Contains(t, string(buf), `"text"`)
}

func TestAppendRootSelfBootstraps(t *testing.T) {
	cs := crypto.Default()
	priv, pub, err := key.Generate(cs)
	require.NoError(t, err)
	fp, err := pub.Fingerprint()
	require.NoError(t, err)

	c := chain.New()
	require.True(t, c.Empty())
	state := newFakeState(cs.Base())

	root := signedRoot(t, cs, priv, pub, nil)
	require.NoError(t, c.Append(cs, root, state))
	state.keys[fp] = pub.Point()

	require.False(t, c.Empty())
	rootId, err := root.Id(cs)
	require.NoError(t, err)
	require.Equal(t, []crypto.Fingerprint{rootId}, c.Roots())
	require.Equal(t, []crypto.Fingerprint{rootId}, c.Heads())
	require.True(t, c.Merged())
	require.False(t, c.Incomplete())
}

func TestAppendRejectsUnknownSigner(t *testing.T) {
	cs := crypto.Default()
	priv, pub, err := key.Generate(cs)
	require.NoError(t, err)
	fp, err := pub.Fingerprint()
	require.NoError(t, err)

	c := chain.New()
	state := newFakeState(cs.Base())

	b := chain.Block{
		Payloads: []payload.Payload{payload.Text{Text: "no publish_key here"}},
		Signer:   fp,
	}
	id, err := b.Id(cs)
	require.NoError(t, err)
	sig, err := priv.Sign(id.Bytes())
	require.NoError(t, err)
	b.Signature = sig

	err = c.Append(cs, b, state)
	require.Error(t, err)
	require.True(t, c.Empty())
}

func TestAppendIsIdempotent(t *testing.T) {
	cs := crypto.Default()
	priv, pub, err := key.Generate(cs)
	require.NoError(t, err)

	c := chain.New()
	state := newFakeState(cs.Base())
	root := signedRoot(t, cs, priv, pub, nil)

	require.NoError(t, c.Append(cs, root, state))
	require.NoError(t, c.Append(cs, root, state))
	require.Len(t, c.Blocks(), 1)
}

// TestChainTopology exercises a DAG shaped like: B3 acks {B1,B2}; B4,B5 ack
// B3; B6 acks {B4,B5}. Confirms roots/heads/merged/incomplete on the full
// DAG, and that a late joiner holding only B5 (missing its ack B3) cannot
// append it: Append rejects it and the chain stays empty.
func TestChainTopology(t *testing.T) {
	cs := crypto.Default()
	priv, pub, err := key.Generate(cs)
	require.NoError(t, err)
	fp, err := pub.Fingerprint()
	require.NoError(t, err)

	state := newFakeState(cs.Base())
	state.keys[fp] = pub.Point()

	mk := func(parents []crypto.Fingerprint, tag string) chain.Block {
		b := chain.Block{
			Parents:  parents,
			Payloads: []payload.Payload{payload.Text{Text: tag}},
			Signer:   fp,
		}
		id, err := b.Id(cs)
		require.NoError(t, err)
		sig, err := priv.Sign(id.Bytes())
		require.NoError(t, err)
		b.Signature = sig
		return b
	}

	b1 := mk(nil, "b1")
	b2 := mk(nil, "b2")
	id1, _ := b1.Id(cs)
	id2, _ := b2.Id(cs)
	b3 := mk([]crypto.Fingerprint{id1, id2}, "b3")
	id3, _ := b3.Id(cs)
	b4 := mk([]crypto.Fingerprint{id3}, "b4")
	b5 := mk([]crypto.Fingerprint{id3}, "b5")
	id4, _ := b4.Id(cs)
	id5, _ := b5.Id(cs)
	b6 := mk([]crypto.Fingerprint{id4, id5}, "b6")
	id6, _ := b6.Id(cs)

	full := chain.New()
	for _, b := range []chain.Block{b1, b2, b3, b4, b5, b6} {
		require.NoError(t, full.Append(cs, b, state))
	}
	require.ElementsMatch(t, []crypto.Fingerprint{id1, id2}, full.Roots())
	require.Equal(t, []crypto.Fingerprint{id6}, full.Heads())
	require.True(t, full.Merged())
	require.False(t, full.Incomplete())

	order := full.TopologicalOrder()
	require.Len(t, order, 6)
	pos := make(map[crypto.Fingerprint]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	require.Less(t, pos[id1], pos[id3])
	require.Less(t, pos[id2], pos[id3])
	require.Less(t, pos[id3], pos[id4])
	require.Less(t, pos[id3], pos[id5])
	require.Less(t, pos[id4], pos[id6])
	require.Less(t, pos[id5], pos[id6])

	// A late joiner who only received b5 (not its ack b3) cannot append
	// it: validation rejects the dangling ack, and the atomic Append leaves
	// the chain empty. An incomplete set of blocks is never appendable out
	// of ack order.
	partial := chain.New()
	err = partial.Append(cs, b5, state)
	require.Error(t, err)
	require.True(t, partial.Empty())
}

func TestReplayDeterminism(t *testing.T) {
	cs := crypto.Default()
	priv, pub, err := key.Generate(cs)
	require.NoError(t, err)
	fp, err := pub.Fingerprint()
	require.NoError(t, err)
	state := newFakeState(cs.Base())
	state.keys[fp] = pub.Point()

	mk := func(parents []crypto.Fingerprint, tag string) chain.Block {
		b := chain.Block{Parents: parents, Payloads: []payload.Payload{payload.Text{Text: tag}}, Signer: fp}
		id, err := b.Id(cs)
		require.NoError(t, err)
		sig, err := priv.Sign(id.Bytes())
		require.NoError(t, err)
		b.Signature = sig
		return b
	}
	b1 := mk(nil, "x")
	b2 := mk(nil, "y")
	id1, _ := b1.Id(cs)
	id2, _ := b2.Id(cs)
	b3 := mk([]crypto.Fingerprint{id1, id2}, "z")

	c1 := chain.New()
	require.NoError(t, c1.Append(cs, b1, state))
	require.NoError(t, c1.Append(cs, b2, state))
	require.NoError(t, c1.Append(cs, b3, state))

	c2 := chain.New()
	require.NoError(t, c2.Append(cs, b2, state))
	require.NoError(t, c2.Append(cs, b1, state))
	require.NoError(t, c2.Append(cs, b3, state))

	require.Equal(t, c1.TopologicalOrder(), c2.TopologicalOrder())
}

func TestValidatePayloadMaskStack(t *testing.T) {
	cs := crypto.Default()
	priv, pub, err := key.Generate(cs)
	require.NoError(t, err)
	fp, err := pub.Fingerprint()
	require.NoError(t, err)

	ms := mask.NewScheme(cs, pub.Point())
	tokens := []int64{7, 8, 9}
	s, proofs, err := stack.Mask(ms, tokens)
	require.NoError(t, err)

	state := newFakeState(pub.Point())
	state.keys[fp] = pub.Point()

	var source crypto.Fingerprint
	mp := payload.MaskStack{Source: source, Tokens: tokens, Result: s, Proofs: proofs}

	b := chain.Block{Payloads: []payload.Payload{payload.PublishKey{Name: "p", Key: pub}, mp}, Signer: fp}
	id, err := b.Id(cs)
	require.NoError(t, err)
	sig, err := priv.Sign(id.Bytes())
	require.NoError(t, err)
	b.Signature = sig

	c := chain.New()
	require.NoError(t, c.Append(cs, b, state))
}
