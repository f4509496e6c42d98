// Package crypto instantiates the group layer (spec §4.1) and the
// Fiat-Shamir transcript shared by every proof in package proof: a single,
// process-wide elliptic curve group, its base point, and the hash functions
// used to derive fingerprints and non-interactive challenges.
//
// Unlike the teacher's pairing-based schemes (crypto/schemes.go in
// github.com/drand/drand, which pick a G1/G2 pair for a threshold BLS
// signature), pbmx needs only a single prime-order group: ElGamal masking and
// Schnorr-style zero-knowledge proofs are both "discrete-log" constructions
// that live happily on one curve.
package crypto

import (
	"hash"

	"github.com/drand/kyber"
	"github.com/drand/kyber/group/edwards25519"
	"github.com/drand/kyber/sign"
	"github.com/drand/kyber/sign/schnorr"
	"github.com/drand/kyber/util/random"
	"golang.org/x/crypto/blake2b"
)

// Scheme bundles the group and the signature scheme used to authenticate
// blocks. Like the teacher's *crypto.Scheme, it is built once by Default and
// threaded through every package that needs curve operations, rather than
// re-derived ad hoc.
type Scheme struct {
	// Name identifies the scheme for wire/debug purposes.
	Name string
	// Group is the prime-order group masks, keys and proofs operate over.
	Group kyber.Group
	// AuthScheme signs and verifies blocks and other authenticated artifacts.
	AuthScheme sign.Scheme
	// IdentityHash is the hash used to compute Fingerprints.
	IdentityHash func() hash.Hash
}

// DefaultSchemeName is the scheme used when one isn't specified explicitly.
const DefaultSchemeName = "ed25519-blake2b"

var defaultScheme = buildDefault()

func buildDefault() *Scheme {
	suite := edwards25519.NewBlakeSHA256Ed25519()
	return &Scheme{
		Name:         DefaultSchemeName,
		Group:        suite,
		AuthScheme:   schnorr.NewScheme(suite),
		IdentityHash: func() hash.Hash { h, _ := blake2b.New(160/8, nil); return h },
	}
}

// Default returns the process-wide default scheme.
func Default() *Scheme { return defaultScheme }

// Base returns the group's base point G.
func (s *Scheme) Base() kyber.Point { return s.Group.Point().Base() }

// RandomScalar draws a uniform scalar from Z_q.
func (s *Scheme) RandomScalar() kyber.Scalar {
	return s.Group.Scalar().Pick(random.New())
}

// XOF returns an extendable-output stream seeded deterministically by seed,
// the same primitive the teacher turns a beacon signature into a randomness
// byte stream with (chain/beacon.go's RandomnessFromSignature, generalized
// here from a fixed SHA-256 digest to an arbitrary-length rejection-sampled
// stream -- see package rng).
func (s *Scheme) XOF(seed []byte) kyber.XOF {
	return s.Group.(kyber.XOFFactory).XOF(seed)
}
