package crypto

import (
	"encoding/binary"
	"hash"

	"github.com/drand/kyber"
	"golang.org/x/crypto/blake2b"
)

// Transcript accumulates domain-separated, length-prefixed public inputs and
// squeezes Fiat-Shamir challenges from them, the way the teacher's
// DigestBeacon hashes a fixed, order-sensitive sequence of fields
// (crypto/schemes.go) -- generalized here to an open-ended sequence of
// proof inputs instead of a single fixed beacon message.
//
// Every proof constructor and verifier in package proof must append exactly
// the same fields in exactly the same order, or verification silently
// diverges between parties (spec §9's "most bug-prone surface" warning).
type Transcript struct {
	h hash.Hash
}

// NewTranscript starts a transcript bound to a domain label, so proofs of
// different kinds never share a challenge even over identical inputs.
func NewTranscript(domain string) *Transcript {
	h, _ := blake2b.New256(nil)
	t := &Transcript{h: h}
	t.appendLabeled("pbmx-domain", []byte(domain))
	return t
}

func (t *Transcript) appendLabeled(label string, data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(label)))
	_, _ = t.h.Write(lenBuf[:])
	_, _ = t.h.Write([]byte(label))
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	_, _ = t.h.Write(lenBuf[:])
	_, _ = t.h.Write(data)
}

// AppendMessage absorbs a labeled opaque byte string.
func (t *Transcript) AppendMessage(label string, data []byte) {
	t.appendLabeled(label, data)
}

// AppendPoint absorbs a labeled group element's canonical encoding.
func (t *Transcript) AppendPoint(s *Scheme, label string, p kyber.Point) error {
	buf, err := s.EncodePoint(p)
	if err != nil {
		return err
	}
	t.appendLabeled(label, buf)
	return nil
}

// AppendScalar absorbs a labeled scalar's canonical encoding.
func (t *Transcript) AppendScalar(s *Scheme, label string, x kyber.Scalar) error {
	buf, err := s.EncodeScalar(x)
	if err != nil {
		return err
	}
	t.appendLabeled(label, buf)
	return nil
}

// AppendUint64 absorbs a labeled integer, used for indices and round counters.
func (t *Transcript) AppendUint64(label string, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	t.appendLabeled(label, buf[:])
}

// ChallengeScalar squeezes a challenge scalar, then ratchets the internal
// state forward so a subsequent call (e.g. a proof's second challenge)
// yields an independent value even with no further inputs appended.
func (t *Transcript) ChallengeScalar(s *Scheme, label string) kyber.Scalar {
	t.appendLabeled(label, nil)
	digest := t.h.Sum(nil)
	_, _ = t.h.Write(digest)
	return s.Group.Scalar().SetBytes(digest)
}
