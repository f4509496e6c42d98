// Package proof implements the non-interactive zero-knowledge proof suite
// (spec §4.3): discrete-log equality for mask/remask/share/unmask
// correctness, and the known-permutation/known-rotation arguments that back
// shuffle, shift and entanglement. Every proof is Fiat-Shamir over a
// crypto.Transcript, so construction and verification must append exactly
// the same labeled fields in exactly the same order (spec §9's "most
// bug-prone surface" warning).
package proof

import (
	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/xerr"
)

// DlogEq is a Chaum-Pedersen proof of knowledge of a scalar w such that
// X = w*G1 and Y = w*G2 for two (possibly distinct) bases G1, G2, without
// revealing w. This one primitive backs every correctness proof spec.md
// names for mask/remask/share (§4.2) and the aggregate mask tie-in used by
// Shuffle/Rotation (§4.3).
type DlogEq struct {
	// A, B are the prover's commitments k*G1, k*G2 for a fresh random k.
	A, B kyber.Point
	// Z is the response k + c*w (mod q), c being the Fiat-Shamir challenge.
	Z kyber.Scalar
}

// ProveDlogEq proves knowledge of w such that X = w*G1 and Y = w*G2.
// label scopes the transcript so proofs for different operations (mask,
// remask, share, the shuffle/rotation tie-in) never collide.
func ProveDlogEq(s *crypto.Scheme, label string, g1, g2, x, y kyber.Point, w kyber.Scalar) (*DlogEq, error) {
	k := s.RandomScalar()
	a := s.Group.Point().Mul(k, g1)
	b := s.Group.Point().Mul(k, g2)

	c, err := dlogEqChallenge(s, label, g1, g2, x, y, a, b)
	if err != nil {
		return nil, err
	}

	z := s.Group.Scalar().Add(k, s.Group.Scalar().Mul(c, w))
	return &DlogEq{A: a, B: b, Z: z}, nil
}

// Verify checks that the proof demonstrates knowledge of w with X = w*G1,
// Y = w*G2, for the same label used at construction time.
func (p *DlogEq) Verify(s *crypto.Scheme, label string, g1, g2, x, y kyber.Point) error {
	c, err := dlogEqChallenge(s, label, g1, g2, x, y, p.A, p.B)
	if err != nil {
		return err
	}

	lhs1 := s.Group.Point().Mul(p.Z, g1)
	rhs1 := s.Group.Point().Add(p.A, s.Group.Point().Mul(c, x))
	if !lhs1.Equal(rhs1) {
		return xerr.New(xerr.ProofInvalid, "dlogeq %q: g1 side mismatch", label)
	}

	lhs2 := s.Group.Point().Mul(p.Z, g2)
	rhs2 := s.Group.Point().Add(p.B, s.Group.Point().Mul(c, y))
	if !lhs2.Equal(rhs2) {
		return xerr.New(xerr.ProofInvalid, "dlogeq %q: g2 side mismatch", label)
	}
	return nil
}

func dlogEqChallenge(s *crypto.Scheme, label string, g1, g2, x, y, a, b kyber.Point) (kyber.Scalar, error) {
	t := crypto.NewTranscript("dlogeq")
	t.AppendMessage("label", []byte(label))
	// Fixed order matters: map iteration is randomized in Go and would make
	// the challenge non-reproducible between prover and verifier.
	ordered := []struct {
		name string
		p    kyber.Point
	}{{"g1", g1}, {"g2", g2}, {"x", x}, {"y", y}, {"a", a}, {"b", b}}
	for _, e := range ordered {
		if err := t.AppendPoint(s, e.name, e.p); err != nil {
			return nil, err
		}
	}
	return t.ChallengeScalar(s, "c"), nil
}
