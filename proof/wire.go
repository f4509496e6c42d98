package proof

import (
	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/wire"
	"github.com/rmartinho/pbmx/xerr"
)

// Every proof type below gets its own canonical encoding (spec §2: "every
// public datum has a canonical byte encoding"), since proofs travel inside
// payloads and are hashed into block Ids. Field tags are scoped to each
// type's own nested message, so the same small integers are reused type to
// type without collision -- the same nesting discipline package wire's own
// SubMessage helper is built for.

func encodePointField(w *wire.Writer, cs *crypto.Scheme, tag uint32, p kyber.Point) error {
	buf, err := cs.EncodePoint(p)
	if err != nil {
		return err
	}
	w.Field(tag, buf)
	return nil
}

func encodeScalarField(w *wire.Writer, cs *crypto.Scheme, tag uint32, x kyber.Scalar) error {
	buf, err := cs.EncodeScalar(x)
	if err != nil {
		return err
	}
	w.Field(tag, buf)
	return nil
}

const (
	tagDlogA uint32 = iota + 1
	tagDlogB
	tagDlogZ
)

// Encode returns the canonical encoding of a DlogEq proof.
func (p *DlogEq) Encode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	if err := encodePointField(w, cs, tagDlogA, p.A); err != nil {
		return nil, err
	}
	if err := encodePointField(w, cs, tagDlogB, p.B); err != nil {
		return nil, err
	}
	if err := encodeScalarField(w, cs, tagDlogZ, p.Z); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DecodeDlogEq decodes a DlogEq proof from its canonical encoding.
func DecodeDlogEq(cs *crypto.Scheme, buf []byte) (*DlogEq, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	p := &DlogEq{}
	for _, f := range fields {
		switch f.Tag {
		case tagDlogA:
			p.A, err = cs.DecodePoint(f.Data)
		case tagDlogB:
			p.B, err = cs.DecodePoint(f.Data)
		case tagDlogZ:
			p.Z, err = cs.DecodeScalar(f.Data)
		default:
			err = xerr.New(xerr.Decoding, "dlogeq: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	if p.A == nil || p.B == nil || p.Z == nil {
		return nil, xerr.New(xerr.Decoding, "dlogeq: missing field")
	}
	return p, nil
}

const (
	tagKSN uint32 = iota + 1
	tagKSCd
	tagKSCda
	tagKSCdd
	tagKSF
	tagKSZ
	tagKSP
	tagKSFd
	tagKSZd
)

// Encode returns the canonical encoding of a KnownShuffle proof.
func (k *KnownShuffle) Encode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	w.Uint64Field(tagKSN, uint64(k.N))
	if err := encodePointField(w, cs, tagKSCd, k.Cd); err != nil {
		return nil, err
	}
	if err := encodePointField(w, cs, tagKSCda, k.Cda); err != nil {
		return nil, err
	}
	if err := encodePointField(w, cs, tagKSCdd, k.Cdd); err != nil {
		return nil, err
	}
	for _, f := range k.F {
		if err := encodeScalarField(w, cs, tagKSF, f); err != nil {
			return nil, err
		}
	}
	if err := encodeScalarField(w, cs, tagKSZ, k.Z); err != nil {
		return nil, err
	}
	if err := encodeScalarField(w, cs, tagKSP, k.P); err != nil {
		return nil, err
	}
	if err := encodePointField(w, cs, tagKSFd, k.Fd); err != nil {
		return nil, err
	}
	if err := encodeScalarField(w, cs, tagKSZd, k.Zd); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DecodeKnownShuffle decodes a KnownShuffle proof from its canonical
// encoding.
func DecodeKnownShuffle(cs *crypto.Scheme, buf []byte) (*KnownShuffle, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	k := &KnownShuffle{}
	for _, f := range fields {
		switch f.Tag {
		case tagKSN:
			var v uint64
			v, err = wire.Uint64(f.Data)
			k.N = int(v)
		case tagKSCd:
			k.Cd, err = cs.DecodePoint(f.Data)
		case tagKSCda:
			k.Cda, err = cs.DecodePoint(f.Data)
		case tagKSCdd:
			k.Cdd, err = cs.DecodePoint(f.Data)
		case tagKSF:
			var s kyber.Scalar
			s, err = cs.DecodeScalar(f.Data)
			k.F = append(k.F, s)
		case tagKSZ:
			k.Z, err = cs.DecodeScalar(f.Data)
		case tagKSP:
			k.P, err = cs.DecodeScalar(f.Data)
		case tagKSFd:
			k.Fd, err = cs.DecodePoint(f.Data)
		case tagKSZd:
			k.Zd, err = cs.DecodeScalar(f.Data)
		default:
			err = xerr.New(xerr.Decoding, "known-shuffle: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return k, nil
}

const (
	tagShKnown uint32 = iota + 1
	tagShD1
	tagShD2
	tagShTIn1
	tagShTIn2
	tagShTie
)

// Encode returns the canonical encoding of a Shuffle proof.
func (s *Shuffle) Encode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	knownBuf, err := s.Known.Encode(cs)
	if err != nil {
		return nil, err
	}
	w.Field(tagShKnown, knownBuf)
	if err := encodePointField(w, cs, tagShD1, s.D1); err != nil {
		return nil, err
	}
	if err := encodePointField(w, cs, tagShD2, s.D2); err != nil {
		return nil, err
	}
	if err := encodePointField(w, cs, tagShTIn1, s.TIn1); err != nil {
		return nil, err
	}
	if err := encodePointField(w, cs, tagShTIn2, s.TIn2); err != nil {
		return nil, err
	}
	tieBuf, err := s.Tie.Encode(cs)
	if err != nil {
		return nil, err
	}
	w.Field(tagShTie, tieBuf)
	return w.Bytes(), nil
}

// DecodeShuffle decodes a Shuffle proof from its canonical encoding.
func DecodeShuffle(cs *crypto.Scheme, buf []byte) (*Shuffle, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	s := &Shuffle{}
	for _, f := range fields {
		switch f.Tag {
		case tagShKnown:
			s.Known, err = DecodeKnownShuffle(cs, f.Data)
		case tagShD1:
			s.D1, err = cs.DecodePoint(f.Data)
		case tagShD2:
			s.D2, err = cs.DecodePoint(f.Data)
		case tagShTIn1:
			s.TIn1, err = cs.DecodePoint(f.Data)
		case tagShTIn2:
			s.TIn2, err = cs.DecodePoint(f.Data)
		case tagShTie:
			s.Tie, err = DecodeDlogEq(cs, f.Data)
		default:
			err = xerr.New(xerr.Decoding, "shuffle: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Encode returns the canonical encoding of a KnownRotation proof (identical
// field layout to KnownShuffle, since it wraps one).
func (r *KnownRotation) Encode(cs *crypto.Scheme) ([]byte, error) {
	return r.inner.Encode(cs)
}

// DecodeKnownRotation decodes a KnownRotation proof from its canonical
// encoding.
func DecodeKnownRotation(cs *crypto.Scheme, buf []byte) (*KnownRotation, error) {
	inner, err := DecodeKnownShuffle(cs, buf)
	if err != nil {
		return nil, err
	}
	return KnownRotationFromInner(inner), nil
}

// Encode returns the canonical encoding of a Rotation proof (identical field
// layout to Shuffle).
func (r *Rotation) Encode(cs *crypto.Scheme) ([]byte, error) {
	asShuffle := &Shuffle{Known: r.Known.inner, D1: r.D1, D2: r.D2, TIn1: r.TIn1, TIn2: r.TIn2, Tie: r.Tie}
	return asShuffle.Encode(cs)
}

// DecodeRotation decodes a Rotation proof from its canonical encoding.
func DecodeRotation(cs *crypto.Scheme, buf []byte) (*Rotation, error) {
	s, err := DecodeShuffle(cs, buf)
	if err != nil {
		return nil, err
	}
	return &Rotation{Known: KnownRotationFromInner(s.Known), D1: s.D1, D2: s.D2, TIn1: s.TIn1, TIn2: s.TIn2, Tie: s.Tie}, nil
}

const (
	tagEntKnown uint32 = iota + 1
	tagEntTie
)

const (
	tagTieD1 uint32 = iota + 1
	tagTieD2
	tagTieTIn1
	tagTieTIn2
	tagTieTie
)

func encodeMaskTie(cs *crypto.Scheme, t MaskTie) ([]byte, error) {
	w := wire.NewWriter()
	if err := encodePointField(w, cs, tagTieD1, t.D1); err != nil {
		return nil, err
	}
	if err := encodePointField(w, cs, tagTieD2, t.D2); err != nil {
		return nil, err
	}
	if err := encodePointField(w, cs, tagTieTIn1, t.TIn1); err != nil {
		return nil, err
	}
	if err := encodePointField(w, cs, tagTieTIn2, t.TIn2); err != nil {
		return nil, err
	}
	tieBuf, err := t.Tie.Encode(cs)
	if err != nil {
		return nil, err
	}
	w.Field(tagTieTie, tieBuf)
	return w.Bytes(), nil
}

func decodeMaskTie(cs *crypto.Scheme, buf []byte) (MaskTie, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return MaskTie{}, err
	}
	var t MaskTie
	for _, f := range fields {
		switch f.Tag {
		case tagTieD1:
			t.D1, err = cs.DecodePoint(f.Data)
		case tagTieD2:
			t.D2, err = cs.DecodePoint(f.Data)
		case tagTieTIn1:
			t.TIn1, err = cs.DecodePoint(f.Data)
		case tagTieTIn2:
			t.TIn2, err = cs.DecodePoint(f.Data)
		case tagTieTie:
			t.Tie, err = DecodeDlogEq(cs, f.Data)
		default:
			err = xerr.New(xerr.Decoding, "mask-tie: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return MaskTie{}, err
		}
	}
	return t, nil
}

// Encode returns the canonical encoding of an Entanglement proof.
func (e *Entanglement) Encode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	knownBuf, err := e.Known.Encode(cs)
	if err != nil {
		return nil, err
	}
	w.Field(tagEntKnown, knownBuf)
	for _, t := range e.Ties {
		tieBuf, err := encodeMaskTie(cs, t)
		if err != nil {
			return nil, err
		}
		w.Field(tagEntTie, tieBuf)
	}
	return w.Bytes(), nil
}

// DecodeEntanglement decodes an Entanglement proof from its canonical
// encoding.
func DecodeEntanglement(cs *crypto.Scheme, buf []byte) (*Entanglement, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	e := &Entanglement{}
	for _, f := range fields {
		switch f.Tag {
		case tagEntKnown:
			e.Known, err = DecodeKnownShuffle(cs, f.Data)
		case tagEntTie:
			var t MaskTie
			t, err = decodeMaskTie(cs, f.Data)
			e.Ties = append(e.Ties, t)
		default:
			err = xerr.New(xerr.Decoding, "entanglement: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}
