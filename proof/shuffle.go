package proof

import (
	"fmt"

	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/xerr"
)

// Pair is proof's own view of an ElGamal ciphertext (C1, C2): the mask
// tie-ins below need only the two points, not package mask's Mask/Scheme
// types. Keeping proof on raw kyber.Point pairs lets mask import proof for
// DlogEq without proof importing back, since Go forbids the cycle. Package
// mask and package stack convert to/from Pair at their call sites.
type Pair struct {
	C1, C2 kyber.Point
}

// KnownShuffle proves knowledge of a hidden permutation a of {0,...,n-1}
// (spec §4.3's Bayer-Groth-style argument), using Pedersen vector
// commitments cd/cda opened against challenge x, and a second commitment cdd
// to the power-sum aggregate P = Π(y - a[i]) for a second challenge y.
//
// Soundness rests on Cda being a binding commitment fixed before y is
// sampled: a genuine permutation satisfies P = Π(y-i) identically for every
// y, while a non-permutation vector disagrees except with probability
// (n-1)/q over the random y (Schwartz-Zippel).
type KnownShuffle struct {
	N          int
	Cd, Cda    kyber.Point
	Cdd        kyber.Point
	F          []kyber.Scalar
	Z          kyber.Scalar
	P          kyber.Scalar
	Fd         kyber.Point
	Zd         kyber.Scalar
}

func shuffleGenerators(cs *crypto.Scheme, domain string, n int) (gb, gp kyber.Point, gi []kyber.Point) {
	t := crypto.NewTranscript(domain)
	derive := func(label string) kyber.Point {
		sc := t.ChallengeScalar(cs, label)
		return cs.Group.Point().Mul(sc, cs.Base())
	}
	gb = derive("blind")
	gp = derive("product")
	gi = make([]kyber.Point, n)
	for i := 0; i < n; i++ {
		gi[i] = derive(fmt.Sprintf("gen-%d", i))
	}
	return
}

func vectorCommit(cs *crypto.Scheme, gb kyber.Point, gi []kyber.Point, v []kyber.Scalar, r kyber.Scalar) kyber.Point {
	acc := cs.Group.Point().Mul(r, gb)
	for i, vi := range v {
		acc = cs.Group.Point().Add(acc, cs.Group.Point().Mul(vi, gi[i]))
	}
	return acc
}

func newKnownShuffleTranscript(label string, n int) *crypto.Transcript {
	t := crypto.NewTranscript("known-shuffle")
	t.AppendMessage("label", []byte(label))
	t.AppendUint64("n", uint64(n))
	return t
}

// knownShuffleX recomputes the x challenge from the published cd/cda
// commitments, for callers (the Shuffle tie-in) that need x without
// re-deriving y/cdd/fd/c.
func knownShuffleX(cs *crypto.Scheme, label string, n int, cd, cda kyber.Point) (kyber.Scalar, error) {
	t := newKnownShuffleTranscript(label, n)
	if err := t.AppendPoint(cs, "cd", cd); err != nil {
		return nil, err
	}
	if err := t.AppendPoint(cs, "cda", cda); err != nil {
		return nil, err
	}
	return t.ChallengeScalar(cs, "x"), nil
}

// permWitness is the common prover-side state behind KnownShuffle: the
// committed permutation, its blinding vector and the x challenge, needed by
// both the Shuffle mask tie-in and Entanglement's shared-permutation ties.
type permWitness struct {
	known       *KnownShuffle
	d           []kyber.Scalar
	x           kyber.Scalar
	permScalars []kyber.Scalar
}

func provePermCommitment(cs *crypto.Scheme, label string, perm []int) (*permWitness, error) {
	n := len(perm)
	if n < 2 {
		return nil, xerr.New(xerr.ShapeMismatch, "known-shuffle requires at least 2 elements, got %d", n)
	}
	gb, gp, gi := shuffleGenerators(cs, "shuffle-gen:"+label, n)

	d := make([]kyber.Scalar, n)
	for i := range d {
		d[i] = cs.RandomScalar()
	}
	rd := cs.RandomScalar()
	ra := cs.RandomScalar()

	permScalars := make([]kyber.Scalar, n)
	for i, pi := range perm {
		permScalars[i] = cs.ScalarFromInt64(int64(pi))
	}

	cd := vectorCommit(cs, gb, gi, d, rd)
	cda := vectorCommit(cs, gb, gi, permScalars, ra)

	t := newKnownShuffleTranscript(label, n)
	if err := t.AppendPoint(cs, "cd", cd); err != nil {
		return nil, err
	}
	if err := t.AppendPoint(cs, "cda", cda); err != nil {
		return nil, err
	}
	x := t.ChallengeScalar(cs, "x")

	f := make([]kyber.Scalar, n)
	for i := range f {
		f[i] = cs.Group.Scalar().Add(cs.Group.Scalar().Mul(x, permScalars[i]), d[i])
	}
	z := cs.Group.Scalar().Add(cs.Group.Scalar().Mul(x, ra), rd)

	y := t.ChallengeScalar(cs, "y")

	p := cs.Group.Scalar().One()
	for _, pi := range permScalars {
		p = cs.Group.Scalar().Mul(p, cs.Group.Scalar().Sub(y, pi))
	}
	rdd := cs.RandomScalar()
	cdd := cs.Group.Point().Add(cs.Group.Point().Mul(rdd, gb), cs.Group.Point().Mul(p, gp))

	if err := t.AppendPoint(cs, "cdd", cdd); err != nil {
		return nil, err
	}

	k := cs.RandomScalar()
	fd := cs.Group.Point().Mul(k, gb)
	if err := t.AppendPoint(cs, "fd", fd); err != nil {
		return nil, err
	}
	c := t.ChallengeScalar(cs, "c")
	zd := cs.Group.Scalar().Add(k, cs.Group.Scalar().Mul(c, rdd))

	known := &KnownShuffle{N: n, Cd: cd, Cda: cda, Cdd: cdd, F: f, Z: z, P: p, Fd: fd, Zd: zd}
	return &permWitness{known: known, d: d, x: x, permScalars: permScalars}, nil
}

// ProveKnownShuffle proves that a is a hidden permutation of {0,...,n-1}.
func ProveKnownShuffle(cs *crypto.Scheme, label string, a []int) (*KnownShuffle, error) {
	w, err := provePermCommitment(cs, label, a)
	if err != nil {
		return nil, err
	}
	return w.known, nil
}

// Verify checks a KnownShuffle proof for a hidden permutation of size n.
func (k *KnownShuffle) Verify(cs *crypto.Scheme, label string, n int) error {
	if k.N != n || len(k.F) != n {
		return xerr.New(xerr.ShapeMismatch, "known-shuffle: expected %d elements, got %d", n, len(k.F))
	}
	gb, gp, gi := shuffleGenerators(cs, "shuffle-gen:"+label, n)

	t := newKnownShuffleTranscript(label, n)
	if err := t.AppendPoint(cs, "cd", k.Cd); err != nil {
		return err
	}
	if err := t.AppendPoint(cs, "cda", k.Cda); err != nil {
		return err
	}
	x := t.ChallengeScalar(cs, "x")

	lhs := vectorCommit(cs, gb, gi, k.F, k.Z)
	rhs := cs.Group.Point().Add(cs.Group.Point().Mul(x, k.Cda), k.Cd)
	if !lhs.Equal(rhs) {
		return xerr.New(xerr.ProofInvalid, "known-shuffle %q: opening mismatch", label)
	}

	y := t.ChallengeScalar(cs, "y")

	pPub := cs.Group.Scalar().One()
	for i := 0; i < n; i++ {
		term := cs.Group.Scalar().Sub(y, cs.ScalarFromInt64(int64(i)))
		pPub = cs.Group.Scalar().Mul(pPub, term)
	}
	if !k.P.Equal(pPub) {
		return xerr.New(xerr.ProofInvalid, "known-shuffle %q: permutation product mismatch", label)
	}

	if err := t.AppendPoint(cs, "cdd", k.Cdd); err != nil {
		return err
	}
	if err := t.AppendPoint(cs, "fd", k.Fd); err != nil {
		return err
	}
	c := t.ChallengeScalar(cs, "c")

	target := cs.Group.Point().Sub(k.Cdd, cs.Group.Point().Mul(k.P, gp))
	lhsD := cs.Group.Point().Mul(k.Zd, gb)
	rhsD := cs.Group.Point().Add(k.Fd, cs.Group.Point().Mul(c, target))
	if !lhsD.Equal(rhsD) {
		return xerr.New(xerr.ProofInvalid, "known-shuffle %q: product-commitment opening invalid", label)
	}
	return nil
}

// Shuffle wraps a KnownShuffle with the re-randomization witness binding the
// committed permutation to the actual output masks (spec §4.3). Let perm be
// the hidden forward permutation (perm[j] is the output position input mask
// j moves to), committed inside KnownShuffle. Then:
//
//	T_out := Σ_i i·out[i]              (computed directly by the verifier)
//	T_in  := Σ_j perm[j]·in[j]          (revealed by the prover as two points)
//
// Since out[i] = remask(in[invPerm[i]]; r[i]) for fresh per-output-slot
// randomness r[i], substituting i = perm[j] gives the identity
// T_out = T_in + Σ_i i·Z_i, where Z_i is the zero-encryption introduced by
// remasking slot i. Tie is a DlogEq proof that T_out - T_in is such a
// zero-encryption under H, with witness Σ_i i·r[i].
//
// T_in is bound to the *same* perm committed in KnownShuffle by reusing its
// opening response F (F[j] = x·perm[j] + d[j]) against the public input
// masks instead of the secret generators: D is the prover's reveal of
// Σ_j d[j]·in[j], and a verifier checks
//
//	Σ_j F[j]·in[j]  ==  x·T_in + D
//
// which holds iff T_in is truly the x-independent aggregate Σ perm[j]·in[j]
// for the same (perm, d) pair already proven consistent with Cda by
// KnownShuffle's own opening check.
type Shuffle struct {
	Known      *KnownShuffle
	D1, D2     kyber.Point
	TIn1, TIn2 kyber.Point
	Tie        *DlogEq
}

// proveMaskTie builds the D1/D2/TIn1/TIn2/Tie quadruple binding permutation
// witness w to one list of (in, out) masks, reused as-is by both ProveShuffle
// and Entanglement's per-list ties.
func proveMaskTie(cs *crypto.Scheme, tieLabel string, h kyber.Point, w *permWitness, in, out []Pair, r []kyber.Scalar) (*Shuffle, error) {
	n := len(w.permScalars)
	d1 := cs.Group.Point().Null()
	d2 := cs.Group.Point().Null()
	tIn1 := cs.Group.Point().Null()
	tIn2 := cs.Group.Point().Null()
	for j := 0; j < n; j++ {
		d1 = cs.Group.Point().Add(d1, cs.Group.Point().Mul(w.d[j], in[j].C1))
		d2 = cs.Group.Point().Add(d2, cs.Group.Point().Mul(w.d[j], in[j].C2))
		tIn1 = cs.Group.Point().Add(tIn1, cs.Group.Point().Mul(w.permScalars[j], in[j].C1))
		tIn2 = cs.Group.Point().Add(tIn2, cs.Group.Point().Mul(w.permScalars[j], in[j].C2))
	}

	tOut1 := cs.Group.Point().Null()
	tOut2 := cs.Group.Point().Null()
	rAgg := cs.Group.Scalar().Zero()
	for i := 0; i < n; i++ {
		weight := cs.ScalarFromInt64(int64(i))
		tOut1 = cs.Group.Point().Add(tOut1, cs.Group.Point().Mul(weight, out[i].C1))
		tOut2 = cs.Group.Point().Add(tOut2, cs.Group.Point().Mul(weight, out[i].C2))
		rAgg = cs.Group.Scalar().Add(rAgg, cs.Group.Scalar().Mul(weight, r[i]))
	}

	deltaC1 := cs.Group.Point().Sub(tOut1, tIn1)
	deltaC2 := cs.Group.Point().Sub(tOut2, tIn2)
	tie, err := ProveDlogEq(cs, tieLabel, cs.Base(), h, deltaC1, deltaC2, rAgg)
	if err != nil {
		return nil, err
	}

	return &Shuffle{Known: w.known, D1: d1, D2: d2, TIn1: tIn1, TIn2: tIn2, Tie: tie}, nil
}

// ProveShuffle proves that out is a valid shuffle of in under the forward
// permutation perm (out[perm[j]] = remask(in[j]; r[perm[j]])), without
// revealing perm or r. r is indexed by output position. h is the shared
// public key the masks are encrypted under.
func ProveShuffle(cs *crypto.Scheme, label string, h kyber.Point, in, out []Pair, perm []int, r []kyber.Scalar) (*Shuffle, error) {
	n := len(in)
	if n != len(out) || n != len(perm) || n != len(r) {
		return nil, xerr.New(xerr.ShapeMismatch, "shuffle: mismatched lengths in=%d out=%d perm=%d r=%d", n, len(out), len(perm), len(r))
	}
	w, err := provePermCommitment(cs, label, perm)
	if err != nil {
		return nil, err
	}
	return proveMaskTie(cs, "shuffle-tie:"+label, h, w, in, out, r)
}

// verifyMaskTie checks the D1/D2/TIn1/TIn2/Tie quadruple against known's F
// opening and the public in/out mask lists, shared by Shuffle.Verify and
// Entanglement.Verify.
func verifyMaskTie(cs *crypto.Scheme, tieLabel string, h kyber.Point, known *KnownShuffle, x kyber.Scalar, d1, d2, tIn1, tIn2 kyber.Point, tie *DlogEq, in, out []Pair) error {
	n := len(in)
	lhs1 := cs.Group.Point().Null()
	lhs2 := cs.Group.Point().Null()
	for j := 0; j < n; j++ {
		lhs1 = cs.Group.Point().Add(lhs1, cs.Group.Point().Mul(known.F[j], in[j].C1))
		lhs2 = cs.Group.Point().Add(lhs2, cs.Group.Point().Mul(known.F[j], in[j].C2))
	}
	rhs1 := cs.Group.Point().Add(cs.Group.Point().Mul(x, tIn1), d1)
	rhs2 := cs.Group.Point().Add(cs.Group.Point().Mul(x, tIn2), d2)
	if !lhs1.Equal(rhs1) || !lhs2.Equal(rhs2) {
		return xerr.New(xerr.ProofInvalid, "%s: input-mask tie-in mismatch", tieLabel)
	}

	tOut1 := cs.Group.Point().Null()
	tOut2 := cs.Group.Point().Null()
	for i := 0; i < n; i++ {
		weight := cs.ScalarFromInt64(int64(i))
		tOut1 = cs.Group.Point().Add(tOut1, cs.Group.Point().Mul(weight, out[i].C1))
		tOut2 = cs.Group.Point().Add(tOut2, cs.Group.Point().Mul(weight, out[i].C2))
	}

	deltaC1 := cs.Group.Point().Sub(tOut1, tIn1)
	deltaC2 := cs.Group.Point().Sub(tOut2, tIn2)
	return tie.Verify(cs, tieLabel, cs.Base(), h, deltaC1, deltaC2)
}

// Verify checks a Shuffle proof that out is a permutation-and-remask of in.
func (s *Shuffle) Verify(cs *crypto.Scheme, label string, h kyber.Point, in, out []Pair) error {
	n := len(in)
	if n != len(out) || n != len(in) {
		return xerr.New(xerr.ShapeMismatch, "shuffle: mismatched stack lengths in=%d out=%d", len(in), len(out))
	}
	if err := s.Known.Verify(cs, label, n); err != nil {
		return err
	}

	x, err := knownShuffleX(cs, label, n, s.Known.Cd, s.Known.Cda)
	if err != nil {
		return err
	}

	return verifyMaskTie(cs, "shuffle-tie:"+label, h, s.Known, x, s.D1, s.D2, s.TIn1, s.TIn2, s.Tie, in, out)
}
