package rng

import (
	"sort"

	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/mask"
	"github.com/rmartinho/pbmx/proof"
	"github.com/rmartinho/pbmx/xerr"
)

// State is the derived state of one named Rng (spec §4.4): the parsed spec,
// every current party's entropy contribution, and every current party's
// reveal share. Like Stack, it's a plain value the session layer folds
// payloads into; it owns no reference to the chain.
type State struct {
	Name    string
	Spec    Spec
	Entropy map[crypto.Fingerprint]mask.Mask
	Reveals map[crypto.Fingerprint]mask.Share
}

// NewState starts empty Rng state for name under spec.
func NewState(name string, spec Spec) *State {
	return &State{
		Name:    name,
		Spec:    spec,
		Entropy: make(map[crypto.Fingerprint]mask.Mask),
		Reveals: make(map[crypto.Fingerprint]mask.Share),
	}
}

// ContributeEntropy records fp's entropy mask, replacing any prior
// contribution from the same party (a party may only meaningfully
// contribute once; a second contribution simply overwrites the first rather
// than being rejected here -- the chain validator is the layer that decides
// whether a second contribution from the same party in the same block is
// acceptable).
func (s *State) ContributeEntropy(fp crypto.Fingerprint, m mask.Mask) {
	s.Entropy[fp] = m
}

// RevealShare records fp's reveal share toward the aggregate entropy mask.
func (s *State) RevealShare(fp crypto.Fingerprint, sh mask.Share) {
	s.Reveals[fp] = sh
}

// Generated reports whether every party in parties has contributed entropy.
func (s *State) Generated(parties []crypto.Fingerprint) bool {
	for _, p := range parties {
		if _, ok := s.Entropy[p]; !ok {
			return false
		}
	}
	return true
}

// Revealed reports whether every party in parties has published a reveal
// share.
func (s *State) Revealed(parties []crypto.Fingerprint) bool {
	for _, p := range parties {
		if _, ok := s.Reveals[p]; !ok {
			return false
		}
	}
	return true
}

// AggregateMask sums every contributed entropy mask, in Fingerprint order so
// every party computes the identical running sum (the Rng's mask is the
// parties' sum, spec §4.4).
func (s *State) AggregateMask(cs *crypto.Scheme) mask.Mask {
	fps := make([]crypto.Fingerprint, 0, len(s.Entropy))
	for fp := range s.Entropy {
		fps = append(fps, fp)
	}
	sortFingerprints(fps)

	c1 := cs.Group.Point().Null()
	c2 := cs.Group.Point().Null()
	for _, fp := range fps {
		m := s.Entropy[fp]
		c1 = cs.Group.Point().Add(c1, m.C1)
		c2 = cs.Group.Point().Add(c2, m.C2)
	}
	return mask.Mask{C1: c1, C2: c2}
}

// Reveal computes party priv's reveal share toward the current aggregate
// mask, alongside its correctness proof (spec §4.4's "share of that mask").
func Reveal(cs *crypto.Scheme, s *State, priv kyber.Scalar, pub kyber.Point) (mask.Share, *proof.DlogEq, error) {
	agg := s.AggregateMask(cs)
	return mask.Share(cs, agg, priv, pub)
}

// Value unmasks the aggregate entropy mask with every recorded reveal share
// (spec §4.4 requires Revealed first; callers are expected to have checked
// that already) and samples the Spec's range from the resulting byte stream.
// Rejection sampling reads successive bytes from an XOF seeded by the
// unmasked point's canonical encoding, discarding out-of-range draws, the
// same technique the teacher derives beacon randomness with (see
// crypto.Scheme.XOF).
func (s *State) Value(cs *crypto.Scheme) (int64, error) {
	fps := make([]crypto.Fingerprint, 0, len(s.Reveals))
	for fp := range s.Reveals {
		fps = append(fps, fp)
	}
	sortFingerprints(fps)

	agg := s.AggregateMask(cs)
	unmasked := agg
	for _, fp := range fps {
		unmasked = mask.UnmaskShare(cs, unmasked, s.Reveals[fp])
	}

	seed, err := cs.EncodePoint(unmasked.C2)
	if err != nil {
		return 0, err
	}
	xof := cs.XOF(seed)

	min, max := s.Spec.Range()
	return sampleRange(xof, min, max)
}

// sampleRange draws uniformly from [min, max] by rejection sampling bytes
// from xof, discarding draws that would bias the distribution.
func sampleRange(xof kyber.XOF, min, max int64) (int64, error) {
	span := max - min + 1
	if span <= 0 {
		return 0, xerr.New(xerr.SpecParseError, "random spec range is empty or inverted [%d, %d]", min, max)
	}
	nbytes := 1
	for (int64(1) << uint(8*nbytes)) < span {
		nbytes++
	}
	limit := int64(1) << uint(8*nbytes)
	cutoff := limit - (limit % span)

	buf := make([]byte, nbytes)
	for {
		if _, err := xof.Read(buf); err != nil {
			return 0, xerr.Wrap(xerr.SpecParseError, err, "reading xof stream")
		}
		var v int64
		for _, b := range buf {
			v = v<<8 | int64(b)
		}
		if v < cutoff {
			return min + v%span, nil
		}
	}
}

func sortFingerprints(fps []crypto.Fingerprint) {
	sort.Slice(fps, func(i, j int) bool {
		return string(fps[i].Bytes()) < string(fps[j].Bytes())
	})
}
