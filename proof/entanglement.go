package proof

import (
	"strconv"

	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/xerr"
)

// Entanglement shares one KnownShuffle (or, equivalently, one
// KnownRotation) proof object across every parallel stack in a list, so
// proving that N stacks were all permuted the same way costs one
// permutation-validity argument plus N cheap mask ties instead of N full
// shuffle proofs (spec §4.3).
type Entanglement struct {
	Known *KnownShuffle
	Ties  []MaskTie
}

// MaskTie is one list element's binding of the shared permutation to its
// own input/output masks.
type MaskTie struct {
	D1, D2     kyber.Point
	TIn1, TIn2 kyber.Point
	Tie        *DlogEq
}

// ProveEntanglement proves that every stack ins[l]/outs[l] was permuted by
// the same hidden perm, with independent re-randomization witnesses rs[l]
// per stack. h is the shared public key the masks are encrypted under.
func ProveEntanglement(cs *crypto.Scheme, label string, h kyber.Point, ins, outs [][]Pair, perm []int, rs [][]kyber.Scalar) (*Entanglement, error) {
	lists := len(ins)
	if lists == 0 {
		return nil, xerr.New(xerr.ShapeMismatch, "entanglement requires at least one stack")
	}
	if len(outs) != lists || len(rs) != lists {
		return nil, xerr.New(xerr.ShapeMismatch, "entanglement: mismatched list counts ins=%d outs=%d rs=%d", lists, len(outs), len(rs))
	}
	n := len(perm)
	for l := 0; l < lists; l++ {
		if len(ins[l]) != n || len(outs[l]) != n || len(rs[l]) != n {
			return nil, xerr.New(xerr.ShapeMismatch, "entanglement: stack %d has mismatched length", l)
		}
	}

	w, err := provePermCommitment(cs, label, perm)
	if err != nil {
		return nil, err
	}

	ties := make([]MaskTie, lists)
	for l := 0; l < lists; l++ {
		shuffle, err := proveMaskTie(cs, entanglementTieLabel(label, l), h, w, ins[l], outs[l], rs[l])
		if err != nil {
			return nil, err
		}
		ties[l] = MaskTie{D1: shuffle.D1, D2: shuffle.D2, TIn1: shuffle.TIn1, TIn2: shuffle.TIn2, Tie: shuffle.Tie}
	}

	return &Entanglement{Known: w.known, Ties: ties}, nil
}

// Verify checks an Entanglement proof against the public input/output stack
// lists.
func (e *Entanglement) Verify(cs *crypto.Scheme, label string, h kyber.Point, ins, outs [][]Pair) error {
	lists := len(ins)
	if len(outs) != lists || len(e.Ties) != lists {
		return xerr.New(xerr.ShapeMismatch, "entanglement: mismatched list counts ins=%d outs=%d ties=%d", lists, len(outs), len(e.Ties))
	}
	if lists == 0 {
		return xerr.New(xerr.ShapeMismatch, "entanglement requires at least one stack")
	}
	n := e.Known.N
	if err := e.Known.Verify(cs, label, n); err != nil {
		return err
	}
	x, err := knownShuffleX(cs, label, n, e.Known.Cd, e.Known.Cda)
	if err != nil {
		return err
	}

	for l := 0; l < lists; l++ {
		if len(ins[l]) != n || len(outs[l]) != n {
			return xerr.New(xerr.ShapeMismatch, "entanglement: stack %d has mismatched length", l)
		}
		tie := e.Ties[l]
		if err := verifyMaskTie(cs, entanglementTieLabel(label, l), h, e.Known, x, tie.D1, tie.D2, tie.TIn1, tie.TIn2, tie.Tie, ins[l], outs[l]); err != nil {
			return err
		}
	}
	return nil
}

func entanglementTieLabel(label string, list int) string {
	return label + ":entangled:" + strconv.Itoa(list)
}
