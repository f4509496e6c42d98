package crypto

import (
	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/xerr"
)

// EncodeScalar returns the canonical 32-byte encoding of a scalar.
func (s *Scheme) EncodeScalar(x kyber.Scalar) ([]byte, error) {
	buf, err := x.MarshalBinary()
	if err != nil {
		return nil, xerr.Wrap(xerr.Decoding, err, "marshal scalar")
	}
	return buf, nil
}

// DecodeScalar decodes a canonical scalar encoding, rejecting inputs that do
// not round-trip to the same bytes (i.e. non-canonical reductions mod q).
func (s *Scheme) DecodeScalar(buf []byte) (kyber.Scalar, error) {
	x := s.Group.Scalar()
	if err := x.UnmarshalBinary(buf); err != nil {
		return nil, xerr.Wrap(xerr.Decoding, err, "unmarshal scalar")
	}
	reencoded, err := x.MarshalBinary()
	if err != nil {
		return nil, xerr.Wrap(xerr.Decoding, err, "re-marshal scalar")
	}
	if len(reencoded) != len(buf) {
		return nil, xerr.New(xerr.Decoding, "non-canonical scalar encoding")
	}
	for i := range buf {
		if buf[i] != reencoded[i] {
			return nil, xerr.New(xerr.Decoding, "non-canonical scalar encoding")
		}
	}
	return x, nil
}

// ScalarFromInt64 lifts a signed 64-bit integer into Z_q, supporting negative
// values via additive inverse (q - |v|).
func (s *Scheme) ScalarFromInt64(v int64) kyber.Scalar {
	if v >= 0 {
		return s.Group.Scalar().SetInt64(v)
	}
	pos := s.Group.Scalar().SetInt64(-v)
	return s.Group.Scalar().Neg(pos)
}
