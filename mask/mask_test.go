package mask_test

import (
	"testing"

	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/mask"
	"github.com/stretchr/testify/require"
)

func TestMaskRemaskUnmaskRoundtrip(t *testing.T) {
	cs := crypto.Default()

	x1 := cs.RandomScalar()
	pub1 := cs.Group.Point().Mul(x1, cs.Base())
	x2 := cs.RandomScalar()
	pub2 := cs.Group.Point().Mul(x2, cs.Base())
	h := cs.Group.Point().Add(pub1, pub2)

	ms := mask.NewScheme(cs, h)

	const token int64 = 17
	m, proofMask, err := ms.Mask(token)
	require.NoError(t, err)

	tg, err := cs.EmbedToken(token)
	require.NoError(t, err)
	require.NoError(t, ms.VerifyMask(m, tg, proofMask))

	remasked, proofRemask, err := ms.Remask(m)
	require.NoError(t, err)
	require.NoError(t, ms.VerifyRemask(m, remasked, proofRemask))

	sh1, proofShare1, err := mask.Share(cs, remasked, x1, pub1)
	require.NoError(t, err)
	require.NoError(t, mask.VerifyShare(cs, remasked, pub1, sh1, proofShare1))

	sh2, proofShare2, err := mask.Share(cs, remasked, x2, pub2)
	require.NoError(t, err)
	require.NoError(t, mask.VerifyShare(cs, remasked, pub2, sh2, proofShare2))

	afterShare1 := mask.UnmaskShare(cs, remasked, sh1)
	fullyUnmasked := mask.UnmaskPrivate(cs, afterShare1, x2)

	recovered, err := mask.UnmaskOpen(cs, fullyUnmasked, 0)
	require.NoError(t, err)
	require.Equal(t, token, recovered)
}

func TestMaskDebugJSON(t *testing.T) {
	cs := crypto.Default()
	x := cs.RandomScalar()
	pub := cs.Group.Point().Mul(x, cs.Base())
	ms := mask.NewScheme(cs, pub)

	m, _, err := ms.Mask(5)
	require.NoError(t, err)
	buf, err := m.DebugJSON(cs)
	require.NoError(t, err)
	require.Contains(t, string(buf), `"C1"`)
	require.Contains(t, string(buf), `"C2"`)

	sh, _, err := mask.Share(cs, m, x, pub)
	require.NoError(t, err)
	shareBuf, err := sh.DebugJSON(cs)
	require.NoError(t, err)
	require.Contains(t, string(shareBuf), `"Point"`)
}

func TestUnmaskOpenRejectsPartiallyUnmaskedMask(t *testing.T) {
	cs := crypto.Default()
	x1 := cs.RandomScalar()
	pub1 := cs.Group.Point().Mul(x1, cs.Base())
	h := pub1

	ms := mask.NewScheme(cs, h)
	m, _, err := ms.Mask(5)
	require.NoError(t, err)

	_, err = mask.UnmaskOpen(cs, m, 0)
	require.Error(t, err)
}

func TestVerifyMaskRejectsTamperedProof(t *testing.T) {
	cs := crypto.Default()
	x1 := cs.RandomScalar()
	pub1 := cs.Group.Point().Mul(x1, cs.Base())
	ms := mask.NewScheme(cs, pub1)

	m, p, err := ms.Mask(3)
	require.NoError(t, err)

	other, _, err := ms.Mask(4)
	require.NoError(t, err)

	tgWrong, err := cs.EmbedToken(4)
	require.NoError(t, err)
	require.Error(t, ms.VerifyMask(other, tgWrong, p))

	tgRight, err := cs.EmbedToken(3)
	require.NoError(t, err)
	require.NoError(t, ms.VerifyMask(m, tgRight, p))
}
