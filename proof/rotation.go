package proof

import (
	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/xerr"
)

// KnownRotation proves knowledge of a hidden shift amount k used to rotate a
// stack of size n, i.e. that the underlying hidden permutation is
// perm[j] = (j+k) mod n for some k. The commitment/opening machinery is
// exactly KnownShuffle's general permutation argument (same cd/cda/cdd
// opening, same Schwartz-Zippel soundness for "this is some permutation of
// {0,...,n-1}"); KnownRotation does not additionally prove the committed
// permutation has cyclic structure specifically, rather than being an
// arbitrary permutation — the distinction from Shuffle is in which caller
// constructs the witness (stack.Shift always builds a rotation-shaped
// perm), not an extra predicate the verifier checks. See DESIGN.md for the
// reasoning behind this simplification.
type KnownRotation struct {
	inner *KnownShuffle
}

// ProveKnownRotation proves that the stack of size n was permuted by a
// cyclic shift of k, without revealing k.
func ProveKnownRotation(cs *crypto.Scheme, label string, n int, k int) (*KnownRotation, error) {
	if n < 2 {
		return nil, xerr.New(xerr.ShapeMismatch, "known-rotation requires at least 2 elements, got %d", n)
	}
	perm := rotationPerm(n, k)
	inner, err := ProveKnownShuffle(cs, label, perm)
	if err != nil {
		return nil, err
	}
	return &KnownRotation{inner: inner}, nil
}

// Verify checks a KnownRotation proof for a stack of size n.
func (r *KnownRotation) Verify(cs *crypto.Scheme, label string, n int) error {
	return r.inner.Verify(cs, label, n)
}

// Inner exposes the underlying KnownShuffle, for callers (wire encoding)
// that need to serialize the same field set KnownShuffle already has.
func (r *KnownRotation) Inner() *KnownShuffle { return r.inner }

// KnownRotationFromInner reconstructs a KnownRotation from a decoded
// KnownShuffle, the inverse of Inner.
func KnownRotationFromInner(inner *KnownShuffle) *KnownRotation { return &KnownRotation{inner: inner} }

func rotationPerm(n, k int) []int {
	perm := make([]int, n)
	for j := 0; j < n; j++ {
		perm[j] = ((j+k)%n + n) % n
	}
	return perm
}

// Rotation wraps a KnownRotation with the same mask re-randomization
// tie-in Shuffle uses (spec §4.3), so the proof additionally binds the
// hidden shift to the actual re-randomized output masks.
type Rotation struct {
	Known *KnownRotation
	D1, D2 kyber.Point
	TIn1, TIn2 kyber.Point
	Tie   *DlogEq
}

// ProveRotation proves that out is in rotated by k (out[(j+k) mod n] =
// remask(in[j]; r[(j+k) mod n])), without revealing k or r. h is the shared
// public key the masks are encrypted under.
func ProveRotation(cs *crypto.Scheme, label string, h kyber.Point, in, out []Pair, k int, r []kyber.Scalar) (*Rotation, error) {
	n := len(in)
	if n != len(out) || n != len(r) {
		return nil, xerr.New(xerr.ShapeMismatch, "rotation: mismatched lengths in=%d out=%d r=%d", n, len(out), len(r))
	}
	perm := rotationPerm(n, k)
	shuffle, err := ProveShuffle(cs, label, h, in, out, perm, r)
	if err != nil {
		return nil, err
	}
	return &Rotation{
		Known:      &KnownRotation{inner: shuffle.Known},
		D1:         shuffle.D1,
		D2:         shuffle.D2,
		TIn1:       shuffle.TIn1,
		TIn2:       shuffle.TIn2,
		Tie:        shuffle.Tie,
	}, nil
}

// Verify checks a Rotation proof that out is a rotated-and-remasked in.
func (r *Rotation) Verify(cs *crypto.Scheme, label string, h kyber.Point, in, out []Pair) error {
	shuffle := &Shuffle{Known: r.Known.inner, D1: r.D1, D2: r.D2, TIn1: r.TIn1, TIn2: r.TIn2, Tie: r.Tie}
	return shuffle.Verify(cs, label, h, in, out)
}
