package crypto

import (
	"encoding/hex"

	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/xerr"
)

// FingerprintSize is the length in bytes of a Fingerprint.
const FingerprintSize = 20

// Fingerprint stably identifies a party by the hash of its public key's
// canonical encoding (spec §3).
type Fingerprint [FingerprintSize]byte

func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// Bytes returns the fingerprint's raw bytes.
func (f Fingerprint) Bytes() []byte { return f[:] }

// IsZero reports whether f is the zero fingerprint.
func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }

// Fingerprint computes the Fingerprint of a public key.
func (s *Scheme) Fingerprint(pub kyber.Point) (Fingerprint, error) {
	buf, err := s.EncodePoint(pub)
	if err != nil {
		return Fingerprint{}, err
	}
	return s.FingerprintOf(buf)
}

// FingerprintOf hashes an arbitrary canonical byte encoding down to a
// Fingerprint, the same identity hash Fingerprint uses for public keys.
// Stack and Block Ids (spec §3: "Id = fingerprint of canonical encoding")
// reuse this rather than a second hash construction.
func (s *Scheme) FingerprintOf(buf []byte) (Fingerprint, error) {
	h := s.IdentityHash()
	_, _ = h.Write(buf)
	sum := h.Sum(nil)

	var fp Fingerprint
	if len(sum) != FingerprintSize {
		return Fingerprint{}, xerr.New(xerr.Decoding, "identity hash produced %d bytes, want %d", len(sum), FingerprintSize)
	}
	copy(fp[:], sum)
	return fp, nil
}

// FingerprintFromBytes decodes a fingerprint from its raw byte form.
func FingerprintFromBytes(buf []byte) (Fingerprint, error) {
	var fp Fingerprint
	if len(buf) != FingerprintSize {
		return fp, xerr.New(xerr.Decoding, "fingerprint must be %d bytes, got %d", FingerprintSize, len(buf))
	}
	copy(fp[:], buf)
	return fp, nil
}
