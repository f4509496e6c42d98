package proof_test

import (
	"testing"

	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/mask"
	"github.com/rmartinho/pbmx/proof"
	"github.com/stretchr/testify/require"
)

func testScheme() *crypto.Scheme { return crypto.Default() }

// toPairs converts masks to proof.Pair, the shape proof's shuffle/rotation/
// entanglement API operates on now that proof no longer imports mask.
func toPairs(masks []mask.Mask) []proof.Pair {
	pairs := make([]proof.Pair, len(masks))
	for i, m := range masks {
		pairs[i] = proof.Pair{C1: m.C1, C2: m.C2}
	}
	return pairs
}

func toPairLists(lists [][]mask.Mask) [][]proof.Pair {
	out := make([][]proof.Pair, len(lists))
	for i, l := range lists {
		out[i] = toPairs(l)
	}
	return out
}

func TestDlogEqRoundtrip(t *testing.T) {
	cs := testScheme()
	g1 := cs.Base()
	g2 := cs.Group.Point().Mul(cs.RandomScalar(), cs.Base())
	w := cs.RandomScalar()
	x := cs.Group.Point().Mul(w, g1)
	y := cs.Group.Point().Mul(w, g2)

	p, err := proof.ProveDlogEq(cs, "test", g1, g2, x, y, w)
	require.NoError(t, err)
	require.NoError(t, p.Verify(cs, "test", g1, g2, x, y))
}

func TestDlogEqRejectsMismatchedLogs(t *testing.T) {
	cs := testScheme()
	g1 := cs.Base()
	g2 := cs.Group.Point().Mul(cs.RandomScalar(), cs.Base())
	w := cs.RandomScalar()
	x := cs.Group.Point().Mul(w, g1)
	// y uses an unrelated exponent, so log_g1(x) != log_g2(y).
	y := cs.Group.Point().Mul(cs.RandomScalar(), g2)

	p, err := proof.ProveDlogEq(cs, "test", g1, g2, x, y, w)
	require.NoError(t, err)
	require.Error(t, p.Verify(cs, "test", g1, g2, x, y))
}

func TestDlogEqRejectsWrongLabel(t *testing.T) {
	cs := testScheme()
	g1 := cs.Base()
	g2 := cs.Group.Point().Mul(cs.RandomScalar(), cs.Base())
	w := cs.RandomScalar()
	x := cs.Group.Point().Mul(w, g1)
	y := cs.Group.Point().Mul(w, g2)

	p, err := proof.ProveDlogEq(cs, "mask", g1, g2, x, y, w)
	require.NoError(t, err)
	require.Error(t, p.Verify(cs, "remask", g1, g2, x, y))
}

func TestKnownShuffleRoundtrip(t *testing.T) {
	cs := testScheme()
	perm := []int{2, 0, 3, 1}
	p, err := proof.ProveKnownShuffle(cs, "test-shuffle", perm)
	require.NoError(t, err)
	require.NoError(t, p.Verify(cs, "test-shuffle", len(perm)))
}

func TestKnownShuffleRejectsTamperedOpening(t *testing.T) {
	cs := testScheme()
	perm := []int{2, 0, 3, 1}
	p, err := proof.ProveKnownShuffle(cs, "test-shuffle", perm)
	require.NoError(t, err)
	p.F[0] = cs.Group.Scalar().Add(p.F[0], cs.Group.Scalar().One())
	require.Error(t, p.Verify(cs, "test-shuffle", len(perm)))
}

func TestKnownShuffleRejectsWrongSize(t *testing.T) {
	cs := testScheme()
	perm := []int{2, 0, 3, 1}
	p, err := proof.ProveKnownShuffle(cs, "test-shuffle", perm)
	require.NoError(t, err)
	require.Error(t, p.Verify(cs, "test-shuffle", len(perm)+1))
}

// buildStacks masks n sequential tokens and returns their masks alongside
// the scheme used to encrypt them.
func buildStacks(t *testing.T, ms *mask.Scheme, n int) []mask.Mask {
	t.Helper()
	out := make([]mask.Mask, n)
	for i := 0; i < n; i++ {
		m, _, err := ms.Mask(int64(i + 1))
		require.NoError(t, err)
		out[i] = m
	}
	return out
}

func newMaskScheme(cs *crypto.Scheme) (*mask.Scheme, kyber.Scalar) {
	priv := cs.RandomScalar()
	pub := cs.Group.Point().Mul(priv, cs.Base())
	return mask.NewScheme(cs, pub), priv
}

// shuffleFixture re-randomizes and permutes in by the forward permutation
// perm (perm[j] is the output position input mask j moves to), returning the
// output stack and the per-output-slot remasking randomness Shuffle expects.
func shuffleFixture(t *testing.T, cs *crypto.Scheme, ms *mask.Scheme, in []mask.Mask, perm []int) ([]mask.Mask, []kyber.Scalar) {
	t.Helper()
	n := len(in)
	out := make([]mask.Mask, n)
	r := make([]kyber.Scalar, n)
	for j, m := range in {
		i := perm[j]
		ri := cs.RandomScalar()
		r[i] = ri
		zeroC1 := cs.Group.Point().Mul(ri, cs.Base())
		zeroC2 := cs.Group.Point().Mul(ri, ms.H())
		out[i] = mask.Mask{
			C1: cs.Group.Point().Add(m.C1, zeroC1),
			C2: cs.Group.Point().Add(m.C2, zeroC2),
		}
	}
	return out, r
}

func TestShuffleRoundtrip(t *testing.T) {
	cs := testScheme()
	ms, _ := newMaskScheme(cs)
	in := buildStacks(t, ms, 4)
	perm := []int{2, 0, 3, 1}
	out, r := shuffleFixture(t, cs, ms, in, perm)

	p, err := proof.ProveShuffle(cs, "test-shuffle", ms.H(), toPairs(in), toPairs(out), perm, r)
	require.NoError(t, err)
	require.NoError(t, p.Verify(cs, "test-shuffle", ms.H(), toPairs(in), toPairs(out)))
}

func TestShuffleRejectsSwappedOutput(t *testing.T) {
	cs := testScheme()
	ms, _ := newMaskScheme(cs)
	in := buildStacks(t, ms, 4)
	perm := []int{2, 0, 3, 1}
	out, r := shuffleFixture(t, cs, ms, in, perm)

	p, err := proof.ProveShuffle(cs, "test-shuffle", ms.H(), toPairs(in), toPairs(out), perm, r)
	require.NoError(t, err)

	out[0], out[1] = out[1], out[0]
	require.Error(t, p.Verify(cs, "test-shuffle", ms.H(), toPairs(in), toPairs(out)))
}

func TestShuffleRejectsUnrelatedProof(t *testing.T) {
	cs := testScheme()
	ms, _ := newMaskScheme(cs)
	in := buildStacks(t, ms, 4)
	perm := []int{2, 0, 3, 1}
	out, r := shuffleFixture(t, cs, ms, in, perm)
	_, err := proof.ProveShuffle(cs, "test-shuffle", ms.H(), toPairs(in), toPairs(out), perm, r)
	require.NoError(t, err)

	otherPerm := []int{1, 2, 3, 0}
	otherOut, otherR := shuffleFixture(t, cs, ms, in, otherPerm)
	otherProof, err := proof.ProveShuffle(cs, "test-shuffle", ms.H(), toPairs(in), toPairs(otherOut), otherPerm, otherR)
	require.NoError(t, err)

	// otherProof legitimately proves otherOut, not out.
	require.Error(t, otherProof.Verify(cs, "test-shuffle", ms.H(), toPairs(in), toPairs(out)))
}

func TestKnownRotationRoundtrip(t *testing.T) {
	cs := testScheme()
	n, k := 5, 2
	p, err := proof.ProveKnownRotation(cs, "test-rotation", n, k)
	require.NoError(t, err)
	require.NoError(t, p.Verify(cs, "test-rotation", n))
}

func TestRotationRoundtrip(t *testing.T) {
	cs := testScheme()
	ms, _ := newMaskScheme(cs)
	n, k := 5, 2
	in := buildStacks(t, ms, n)

	perm := make([]int, n)
	for j := 0; j < n; j++ {
		perm[j] = ((j+k)%n + n) % n
	}
	out, r := shuffleFixture(t, cs, ms, in, perm)

	p, err := proof.ProveRotation(cs, "test-rotation", ms.H(), toPairs(in), toPairs(out), k, r)
	require.NoError(t, err)
	require.NoError(t, p.Verify(cs, "test-rotation", ms.H(), toPairs(in), toPairs(out)))
}

func TestRotationRejectsWrongShift(t *testing.T) {
	cs := testScheme()
	ms, _ := newMaskScheme(cs)
	n, k := 5, 2
	in := buildStacks(t, ms, n)

	perm := make([]int, n)
	for j := 0; j < n; j++ {
		perm[j] = ((j+k)%n + n) % n
	}
	out, r := shuffleFixture(t, cs, ms, in, perm)

	p, err := proof.ProveRotation(cs, "test-rotation", ms.H(), toPairs(in), toPairs(out), k, r)
	require.NoError(t, err)

	otherPerm := make([]int, n)
	for j := 0; j < n; j++ {
		otherPerm[j] = ((j+k+1)%n + n) % n
	}
	wrongOut, _ := shuffleFixture(t, cs, ms, in, otherPerm)
	require.Error(t, p.Verify(cs, "test-rotation", ms.H(), toPairs(in), toPairs(wrongOut)))
}

func TestEntanglementRoundtrip(t *testing.T) {
	cs := testScheme()
	ms, _ := newMaskScheme(cs)
	perm := []int{2, 0, 3, 1}

	lists := 3
	ins := make([][]mask.Mask, lists)
	outs := make([][]mask.Mask, lists)
	rs := make([][]kyber.Scalar, lists)
	for l := 0; l < lists; l++ {
		ins[l] = buildStacks(t, ms, len(perm))
		outs[l], rs[l] = shuffleFixture(t, cs, ms, ins[l], perm)
	}

	p, err := proof.ProveEntanglement(cs, "test-entangle", ms.H(), toPairLists(ins), toPairLists(outs), perm, rs)
	require.NoError(t, err)
	require.NoError(t, p.Verify(cs, "test-entangle", ms.H(), toPairLists(ins), toPairLists(outs)))
}

func TestEntanglementRejectsInconsistentList(t *testing.T) {
	cs := testScheme()
	ms, _ := newMaskScheme(cs)
	perm := []int{2, 0, 3, 1}

	lists := 2
	ins := make([][]mask.Mask, lists)
	outs := make([][]mask.Mask, lists)
	rs := make([][]kyber.Scalar, lists)
	for l := 0; l < lists; l++ {
		ins[l] = buildStacks(t, ms, len(perm))
		outs[l], rs[l] = shuffleFixture(t, cs, ms, ins[l], perm)
	}

	p, err := proof.ProveEntanglement(cs, "test-entangle", ms.H(), toPairLists(ins), toPairLists(outs), perm, rs)
	require.NoError(t, err)

	otherPerm := []int{1, 2, 3, 0}
	tamperedOut, _ := shuffleFixture(t, cs, ms, ins[1], otherPerm)
	outs[1] = tamperedOut
	require.Error(t, p.Verify(cs, "test-entangle", ms.H(), toPairLists(ins), toPairLists(outs)))
}
