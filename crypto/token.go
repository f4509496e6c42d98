package crypto

import (
	"encoding/hex"
	"math"

	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/xerr"
)

// MaxTokenMagnitude bounds the |token| value recoverable via RecoverToken's
// baby-step/giant-step search. Tokens are carried end-to-end as a full signed
// 64-bit integer (mask/remask/share never inspect magnitude), but
// unmask_open's discrete-log search is only tractable up to a configured
// bound, the tradeoff every exponential-ElGamal scheme makes.
const MaxTokenMagnitude = int64(1) << 32

// ErrSentinelToken is returned when asked to embed the reserved sentinel -1.
var ErrSentinelToken = xerr.New(xerr.Decoding, "token -1 is a reserved sentinel and cannot be embedded")

// EmbedToken deterministically and injectively lifts a token into the group
// as t*G (the "exponential ElGamal" embedding).
func (s *Scheme) EmbedToken(t int64) (kyber.Point, error) {
	if t == -1 {
		return nil, ErrSentinelToken
	}
	return s.Group.Point().Mul(s.ScalarFromInt64(t), s.Base()), nil
}

// RecoverToken inverts EmbedToken by baby-step/giant-step search restricted
// to [-maxMagnitude, maxMagnitude], excluding the reserved sentinel -1. A
// non-positive maxMagnitude falls back to MaxTokenMagnitude.
func (s *Scheme) RecoverToken(p kyber.Point, maxMagnitude int64) (int64, error) {
	if maxMagnitude <= 0 {
		maxMagnitude = MaxTokenMagnitude
	}
	n := 2 * maxMagnitude
	m := int64(math.Ceil(math.Sqrt(float64(n + 1))))
	if m < 1 {
		m = 1
	}

	base := s.Base()
	table := make(map[string]int64, m)
	acc := s.Group.Point().Null()
	for j := int64(0); j < m; j++ {
		table[pointKey(acc)] = j
		acc = s.Group.Point().Add(acc, base)
	}

	// target = p + maxMagnitude*G shifts the search window to [0, n].
	target := s.Group.Point().Add(p, s.Group.Point().Mul(s.ScalarFromInt64(maxMagnitude), base))
	stride := s.Group.Point().Mul(s.ScalarFromInt64(m), base)
	negStride := s.Group.Point().Neg(stride)

	cur := target
	steps := n/m + 1
	for i := int64(0); i <= steps; i++ {
		if j, ok := table[pointKey(cur)]; ok {
			t := i*m + j - maxMagnitude
			if t != -1 {
				return t, nil
			}
		}
		cur = s.Group.Point().Add(cur, negStride)
	}
	return 0, xerr.New(xerr.ExhaustedRecovery, "token not found within magnitude bound %d", maxMagnitude)
}

func pointKey(p kyber.Point) string {
	b, _ := p.MarshalBinary()
	return hex.EncodeToString(b)
}
