// Package key holds the per-party key material (spec §3/§4.2): a PrivateKey
// scalar that never leaves the host, and the PublicKey point derived from
// it. Unlike the teacher's key.Identity (github.com/drand/drand/common/key),
// pbmx keys carry no network address or TLS flag -- that's the transport
// collaborator's concern, not the core's.
package key

import (
	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/xerr"
)

// PrivateKey is a party's secret scalar. It is never serialized as part of
// any chain payload; persistence of its encoded bytes is the caller's
// responsibility (spec §6, "Persisted state").
type PrivateKey struct {
	scheme *crypto.Scheme
	x      kyber.Scalar
}

// PublicKey is the published point xG corresponding to a PrivateKey.
type PublicKey struct {
	scheme *crypto.Scheme
	point  kyber.Point
}

// Generate draws a fresh, uniformly random key pair under scheme.
func Generate(scheme *crypto.Scheme) (*PrivateKey, *PublicKey, error) {
	if scheme == nil {
		scheme = crypto.Default()
	}
	x := scheme.RandomScalar()
	pub := scheme.Group.Point().Mul(x, scheme.Base())
	return &PrivateKey{scheme: scheme, x: x}, &PublicKey{scheme: scheme, point: pub}, nil
}

// Scalar exposes the raw private scalar for use by the mask/share layer,
// which needs it to compute decryption shares (spec §4.2).
func (k *PrivateKey) Scalar() kyber.Scalar { return k.x }

// Public derives the corresponding public key.
func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{scheme: k.scheme, point: k.scheme.Group.Point().Mul(k.x, k.scheme.Base())}
}

// Sign authenticates msg under this private key, used to sign blocks (spec §4.5).
func (k *PrivateKey) Sign(msg []byte) ([]byte, error) {
	sig, err := k.scheme.AuthScheme.Sign(k.x, msg)
	if err != nil {
		return nil, xerr.Wrap(xerr.ChainIntegrity, err, "sign")
	}
	return sig, nil
}

// Zeroize clears the in-memory scalar value. Go offers no hard memory
// erasure guarantee, but this at least removes the value from the live
// object graph on every exit path, matching spec §9's "scoped resource
// acquisition" requirement for sensitive bytes.
func (k *PrivateKey) Zeroize() {
	if k.x != nil {
		k.x.Zero()
	}
}

// Encode returns the canonical scalar encoding of the private key.
func (k *PrivateKey) Encode() ([]byte, error) { return k.scheme.EncodeScalar(k.x) }

// Decode reconstructs a private key from its canonical encoding.
func Decode(scheme *crypto.Scheme, buf []byte) (*PrivateKey, error) {
	if scheme == nil {
		scheme = crypto.Default()
	}
	x, err := scheme.DecodeScalar(buf)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{scheme: scheme, x: x}, nil
}

// Point exposes the raw public point for use by the mask/proof layers.
func (p *PublicKey) Point() kyber.Point { return p.point }

// Verify checks a signature produced by Sign.
func (p *PublicKey) Verify(msg, sig []byte) error {
	if err := p.scheme.AuthScheme.Verify(p.point, msg, sig); err != nil {
		return xerr.Wrap(xerr.ChainIntegrity, err, "verify signature")
	}
	return nil
}

// Fingerprint computes the stable identifier for this public key.
func (p *PublicKey) Fingerprint() (crypto.Fingerprint, error) {
	return p.scheme.Fingerprint(p.point)
}

// Equal reports whether two public keys are the same group element.
func (p *PublicKey) Equal(q *PublicKey) bool {
	if p == nil || q == nil {
		return p == q
	}
	return p.point.Equal(q.point)
}

// Add returns a new PublicKey equal to the group sum of p and q -- used to
// fold a party's key into the running shared key H (spec §3 invariant:
// "H is the sum of all published party public keys").
func (p *PublicKey) Add(q *PublicKey) *PublicKey {
	return &PublicKey{scheme: p.scheme, point: p.scheme.Group.Point().Add(p.point, q.point)}
}

// Encode returns the canonical point encoding of the public key.
func (p *PublicKey) Encode() ([]byte, error) { return p.scheme.EncodePoint(p.point) }

// DecodePublicKey reconstructs a public key from its canonical encoding.
func DecodePublicKey(scheme *crypto.Scheme, buf []byte) (*PublicKey, error) {
	if scheme == nil {
		scheme = crypto.Default()
	}
	pt, err := scheme.DecodePoint(buf)
	if err != nil {
		return nil, err
	}
	return &PublicKey{scheme: scheme, point: pt}, nil
}

// IdentityPublicKey returns the additive identity, the starting point for
// folding published keys into the shared key H.
func IdentityPublicKey(scheme *crypto.Scheme) *PublicKey {
	if scheme == nil {
		scheme = crypto.Default()
	}
	return &PublicKey{scheme: scheme, point: scheme.Group.Point().Null()}
}
