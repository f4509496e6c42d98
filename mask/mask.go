// Package mask implements the exponential-ElGamal ciphertext layer (spec
// §4.2): Mask values, per-party decryption Shares, and the
// mask/remask/share/unmask_* operations, each paired with the DlogEq proof
// of correctness spec.md requires. The shape mirrors the teacher's
// threshold-decryption share combination in core/dkg, generalized from BLS
// share aggregation to discrete-log share aggregation over a single group.
package mask

import (
	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/proof"
	"github.com/rmartinho/pbmx/xerr"
)

// Mask is an ElGamal ciphertext E_H(tG; r) = (r*G, r*H + t*G).
type Mask struct {
	C1, C2 kyber.Point
}

// Share is one party's contribution x_i*m.C1 toward decrypting a Mask.
type Share struct {
	Point kyber.Point
}

// Encode returns the canonical encoding of m under cs, used both for stack
// content-addressing and for wire transport. It needs no shared key, since a
// Mask's bytes are just its two points.
func Encode(cs *crypto.Scheme, m Mask) ([]byte, error) {
	c1, err := cs.EncodePoint(m.C1)
	if err != nil {
		return nil, err
	}
	c2, err := cs.EncodePoint(m.C2)
	if err != nil {
		return nil, err
	}
	return append(c1, c2...), nil
}

// Encode returns the canonical encoding of a Mask, used both for stack
// content-addressing and for wire transport.
func (s *Scheme) Encode(m Mask) ([]byte, error) { return Encode(s.crypto, m) }

// DecodeMask decodes a Mask from its canonical encoding, the inverse of
// Encode.
func DecodeMask(cs *crypto.Scheme, buf []byte) (Mask, error) {
	n := cs.Group.PointLen()
	if len(buf) != 2*n {
		return Mask{}, xerr.New(xerr.Decoding, "mask encoding must be %d bytes, got %d", 2*n, len(buf))
	}
	c1, err := cs.DecodePoint(buf[:n])
	if err != nil {
		return Mask{}, err
	}
	c2, err := cs.DecodePoint(buf[n:])
	if err != nil {
		return Mask{}, err
	}
	return Mask{C1: c1, C2: c2}, nil
}

// EncodeShare returns the canonical encoding of a Share.
func EncodeShare(cs *crypto.Scheme, sh Share) ([]byte, error) {
	return cs.EncodePoint(sh.Point)
}

// DecodeShare decodes a Share from its canonical encoding, the inverse of
// EncodeShare.
func DecodeShare(cs *crypto.Scheme, buf []byte) (Share, error) {
	p, err := cs.DecodePoint(buf)
	if err != nil {
		return Share{}, err
	}
	return Share{Point: p}, nil
}

// Scheme binds mask operations to a crypto.Scheme and the session's shared
// public key H, mirroring how the teacher threads a single *crypto.Scheme
// through its threshold operations instead of passing the group around ad
// hoc.
type Scheme struct {
	crypto *crypto.Scheme
	h      kyber.Point
}

// NewScheme binds mask operations to group cs and shared public key h.
func NewScheme(cs *crypto.Scheme, h kyber.Point) *Scheme {
	if cs == nil {
		cs = crypto.Default()
	}
	return &Scheme{crypto: cs, h: h}
}

// H returns the shared public key masks are encrypted under.
func (s *Scheme) H() kyber.Point { return s.h }

// Crypto returns the group scheme masks operate over.
func (s *Scheme) Crypto() *crypto.Scheme { return s.crypto }

// Mask encrypts token t under H, returning the ciphertext and a proof that
// log_G(c1) = log_H(c2 - t*G) (spec §4.2).
func (s *Scheme) Mask(t int64) (Mask, *proof.DlogEq, error) {
	tg, err := s.crypto.EmbedToken(t)
	if err != nil {
		return Mask{}, nil, err
	}
	r := s.crypto.RandomScalar()
	c1 := s.crypto.Group.Point().Mul(r, s.crypto.Base())
	c2 := s.crypto.Group.Point().Add(s.crypto.Group.Point().Mul(r, s.h), tg)

	c2MinusTg := s.crypto.Group.Point().Sub(c2, tg)
	p, err := proof.ProveDlogEq(s.crypto, "mask", s.crypto.Base(), s.h, c1, c2MinusTg, r)
	if err != nil {
		return Mask{}, nil, err
	}
	return Mask{C1: c1, C2: c2}, p, nil
}

// VerifyMask checks the proof returned by Mask against the resulting mask m
// and embedded token point tg.
func (s *Scheme) VerifyMask(m Mask, tg kyber.Point, p *proof.DlogEq) error {
	c2MinusTg := s.crypto.Group.Point().Sub(m.C2, tg)
	return p.Verify(s.crypto, "mask", s.crypto.Base(), s.h, m.C1, c2MinusTg)
}

// Remask adds a fresh encryption of zero to m, re-randomizing it without
// changing the hidden token, with a proof that the delta is an encryption
// of zero (spec §4.2).
func (s *Scheme) Remask(m Mask) (Mask, *proof.DlogEq, error) {
	r := s.crypto.RandomScalar()
	zeroC1 := s.crypto.Group.Point().Mul(r, s.crypto.Base())
	zeroC2 := s.crypto.Group.Point().Mul(r, s.h)

	out := Mask{
		C1: s.crypto.Group.Point().Add(m.C1, zeroC1),
		C2: s.crypto.Group.Point().Add(m.C2, zeroC2),
	}
	p, err := proof.ProveDlogEq(s.crypto, "remask", s.crypto.Base(), s.h, zeroC1, zeroC2, r)
	if err != nil {
		return Mask{}, nil, err
	}
	return out, p, nil
}

// VerifyRemask checks that out was produced from in by Remask, by
// recomputing the claimed zero-encryption delta and verifying p against it.
func (s *Scheme) VerifyRemask(in, out Mask, p *proof.DlogEq) error {
	deltaC1 := s.crypto.Group.Point().Sub(out.C1, in.C1)
	deltaC2 := s.crypto.Group.Point().Sub(out.C2, in.C2)
	return p.Verify(s.crypto, "remask", s.crypto.Base(), s.h, deltaC1, deltaC2)
}

// Share computes party priv's decryption contribution toward m, with a
// proof that log_G(pub) = log_{m.C1}(share) (spec §4.2).
func Share(cs *crypto.Scheme, m Mask, priv kyber.Scalar, pub kyber.Point) (Share, *proof.DlogEq, error) {
	sharePoint := cs.Group.Point().Mul(priv, m.C1)
	p, err := proof.ProveDlogEq(cs, "share", cs.Group.Point().Base(), m.C1, pub, sharePoint, priv)
	if err != nil {
		return Share{}, nil, err
	}
	return Share{Point: sharePoint}, p, nil
}

// VerifyShare checks that sh is party pub's correct decryption contribution
// toward m.
func VerifyShare(cs *crypto.Scheme, m Mask, pub kyber.Point, sh Share, p *proof.DlogEq) error {
	return p.Verify(cs, "share", cs.Group.Point().Base(), m.C1, pub, sh.Point)
}

// UnmaskShare subtracts sh from m, removing one decryption layer (spec §4.2).
func UnmaskShare(cs *crypto.Scheme, m Mask, sh Share) Mask {
	return Mask{C1: m.C1, C2: cs.Group.Point().Sub(m.C2, sh.Point)}
}

// UnmaskPrivate removes one decryption layer directly using a party's own
// private key, equivalent to UnmaskShare(m, Share(priv, m)) without
// producing a proof (used by the key's own owner, who needs no proof of
// correctness to themselves).
func UnmaskPrivate(cs *crypto.Scheme, m Mask, priv kyber.Scalar) Mask {
	sh := cs.Group.Point().Mul(priv, m.C1)
	return Mask{C1: m.C1, C2: cs.Group.Point().Sub(m.C2, sh)}
}

// UnmaskOpen recovers the original token once every party's share has been
// removed from m.C2, i.e. m.C2 = t*G (spec §4.2). m.C1 is never modified by
// unmask_share/unmask_private -- it stays r*G throughout, since every
// party's share is computed against the same fixed c1 -- so completeness
// isn't something the Mask value itself can witness. It falls out instead of
// RecoverToken's own search: if any party's share is still outstanding, c2
// isn't t*G for any t in range, so the baby-step/giant-step search below
// exhausts and reports ExhaustedRecovery rather than returning a wrong
// answer.
func UnmaskOpen(cs *crypto.Scheme, m Mask, maxMagnitude int64) (int64, error) {
	return cs.RecoverToken(m.C2, maxMagnitude)
}
