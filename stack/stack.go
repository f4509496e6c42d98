// Package stack implements the stack-level operations of spec §4.3: ordered
// sequences of masks, content-addressed by a Fingerprint of their canonical
// encoding, plus the shuffle/shift/insert/entanglement/take/pile operations
// a session wires into payloads. Mirrors how the teacher threads a single
// *crypto.Scheme through every operation instead of passing the group
// around ad hoc (crypto/schemes.go, common/key/keys.go).
package stack

import (
	"sort"

	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/mask"
	"github.com/rmartinho/pbmx/proof"
	"github.com/rmartinho/pbmx/wire"
	"github.com/rmartinho/pbmx/xerr"
)

const tagMask uint32 = 1

// pairsOf converts masks to proof's raw (C1, C2) view, the shape the proof
// package's shuffle/rotation/entanglement provers and verifiers operate on
// (proof cannot import package mask: mask already imports proof for
// DlogEq, and Go forbids the cycle).
func pairsOf(masks []mask.Mask) []proof.Pair {
	pairs := make([]proof.Pair, len(masks))
	for i, m := range masks {
		pairs[i] = proof.Pair{C1: m.C1, C2: m.C2}
	}
	return pairs
}

// Stack is an ordered, immutable sequence of masks, content-addressed by Id
// (spec §3: "Id = fingerprint of canonical encoding of the sequence").
type Stack struct {
	Masks []mask.Mask
}

// New wraps a slice of masks as a Stack. The slice is copied so the caller's
// backing array can't mutate the stack after construction (stacks are value
// types safe to copy, spec §5).
func New(masks []mask.Mask) Stack {
	cp := make([]mask.Mask, len(masks))
	copy(cp, masks)
	return Stack{Masks: cp}
}

// Len returns the number of masks in the stack.
func (s Stack) Len() int { return len(s.Masks) }

// Encode returns the canonical byte encoding of s: one length-delimited
// field per mask, in order.
func (s Stack) Encode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	for _, m := range s.Masks {
		buf, err := mask.Encode(cs, m)
		if err != nil {
			return nil, err
		}
		w.Field(tagMask, buf)
	}
	return w.Bytes(), nil
}

// DecodeStack decodes a Stack from its canonical encoding, the inverse of
// Encode.
func DecodeStack(cs *crypto.Scheme, buf []byte) (Stack, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return Stack{}, err
	}
	masks := make([]mask.Mask, 0, len(fields))
	for _, f := range fields {
		if f.Tag != tagMask {
			return Stack{}, xerr.New(xerr.Decoding, "stack: unknown field tag %d", f.Tag)
		}
		m, err := mask.DecodeMask(cs, f.Data)
		if err != nil {
			return Stack{}, err
		}
		masks = append(masks, m)
	}
	return Stack{Masks: masks}, nil
}

// Id computes the stack's content-addressed Fingerprint.
func (s Stack) Id(cs *crypto.Scheme) (crypto.Fingerprint, error) {
	buf, err := s.Encode(cs)
	if err != nil {
		return crypto.Fingerprint{}, err
	}
	return cs.FingerprintOf(buf)
}

// Mask encrypts a sequence of tokens under ms's shared key, returning the
// resulting Stack and one DlogEq proof per mask in the same order (wire tag
// 4's "per-mask DlogEq proofs").
func Mask(ms *mask.Scheme, tokens []int64) (Stack, []*proof.DlogEq, error) {
	masks := make([]mask.Mask, len(tokens))
	proofs := make([]*proof.DlogEq, len(tokens))
	for i, t := range tokens {
		m, p, err := ms.Mask(t)
		if err != nil {
			return Stack{}, nil, err
		}
		masks[i] = m
		proofs[i] = p
	}
	return New(masks), proofs, nil
}

// VerifyMask checks the per-mask proofs returned by Mask against the public
// tokens and resulting stack.
func VerifyMask(ms *mask.Scheme, cs *crypto.Scheme, s Stack, tokens []int64, proofs []*proof.DlogEq) error {
	if len(s.Masks) != len(tokens) || len(s.Masks) != len(proofs) {
		return xerr.New(xerr.ShapeMismatch, "mask_stack: mismatched lengths masks=%d tokens=%d proofs=%d", len(s.Masks), len(tokens), len(proofs))
	}
	for i, m := range s.Masks {
		tg, err := cs.EmbedToken(tokens[i])
		if err != nil {
			return err
		}
		if err := ms.VerifyMask(m, tg, proofs[i]); err != nil {
			return err
		}
	}
	return nil
}

// permAndRandomness draws n fresh re-randomization scalars for a shuffle or
// shift, indexed by output position the way proof.ProveShuffle expects; the
// permutation itself is built by the caller.
func permAndRandomness(cs *crypto.Scheme, n int) []kyber.Scalar {
	r := make([]kyber.Scalar, n)
	for i := range r {
		r[i] = cs.RandomScalar()
	}
	return r
}

// applyPerm returns the stack produced by moving in[j] to output position
// perm[j] and re-randomizing it with r[perm[j]].
func applyPerm(cs *crypto.Scheme, ms *mask.Scheme, in []mask.Mask, perm []int, r []kyber.Scalar) []mask.Mask {
	n := len(in)
	out := make([]mask.Mask, n)
	for j, m := range in {
		i := perm[j]
		ri := r[i]
		zeroC1 := cs.Group.Point().Mul(ri, cs.Base())
		zeroC2 := cs.Group.Point().Mul(ri, ms.H())
		out[i] = mask.Mask{
			C1: cs.Group.Point().Add(m.C1, zeroC1),
			C2: cs.Group.Point().Add(m.C2, zeroC2),
		}
	}
	return out
}

// Shuffle applies permutation perm (perm[j] is the output position input
// mask j moves to) to s, returning the shuffled Stack and a Shuffle proof.
// perm must be a permutation of {0,...,s.Len()-1}; n must be at least 2
// (spec §4.3 edge case).
func Shuffle(cs *crypto.Scheme, ms *mask.Scheme, label string, s Stack, perm []int) (Stack, *proof.Shuffle, error) {
	n := s.Len()
	if n < 2 {
		return Stack{}, nil, xerr.New(xerr.ShapeMismatch, "shuffle requires at least 2 elements, got %d", n)
	}
	if len(perm) != n {
		return Stack{}, nil, xerr.New(xerr.ShapeMismatch, "shuffle: permutation length %d does not match stack length %d", len(perm), n)
	}
	r := permAndRandomness(cs, n)
	out := applyPerm(cs, ms, s.Masks, perm, r)
	p, err := proof.ProveShuffle(cs, label, ms.H(), pairsOf(s.Masks), pairsOf(out), perm, r)
	if err != nil {
		return Stack{}, nil, err
	}
	return New(out), p, nil
}

// VerifyShuffle checks a Shuffle proof that out is a permutation-and-remask
// of in.
func VerifyShuffle(cs *crypto.Scheme, ms *mask.Scheme, label string, in, out Stack, p *proof.Shuffle) error {
	return p.Verify(cs, label, ms.H(), pairsOf(in.Masks), pairsOf(out.Masks))
}

// Shift applies a cyclic rotation by k (hidden from the proof) to s,
// returning the shifted Stack and a Rotation proof: output position i holds
// a re-randomization of input position (i+k) mod n, so shifting 1..10 by 3
// gives 4..10,1,2,3 (spec §4.3: "Shift by k=0 is valid and generates a
// trivial but verifiable proof").
func Shift(cs *crypto.Scheme, ms *mask.Scheme, label string, s Stack, k int) (Stack, *proof.Rotation, error) {
	n := s.Len()
	if n < 2 {
		return Stack{}, nil, xerr.New(xerr.ShapeMismatch, "shift requires at least 2 elements, got %d", n)
	}
	perm := make([]int, n)
	for j := 0; j < n; j++ {
		perm[j] = ((j-k)%n + n) % n
	}
	r := permAndRandomness(cs, n)
	out := applyPerm(cs, ms, s.Masks, perm, r)
	p, err := proof.ProveRotation(cs, label, ms.H(), pairsOf(s.Masks), pairsOf(out), -k, r)
	if err != nil {
		return Stack{}, nil, err
	}
	return New(out), p, nil
}

// VerifyShift checks a Rotation proof that out is a cyclic-shift-and-remask
// of in.
func VerifyShift(cs *crypto.Scheme, ms *mask.Scheme, label string, in, out Stack, p *proof.Rotation) error {
	return p.Verify(cs, label, ms.H(), pairsOf(in.Masks), pairsOf(out.Masks))
}

// Insert inserts needle into target at a hidden position, expressed as the
// two bound shifts spec §4.3 describes: shift(target||needle; k) followed by
// shift by -k. Per the Open Question resolution (SPEC_FULL.md §9), Insert
// carries no dedicated proof type of its own -- it returns the combined
// pre-image stack alongside the two intermediate (*Stack, *proof.Rotation)
// results for the caller to wrap as a pile_stacks payload (registering
// combined on-chain) followed by two shift_stack payloads. k is the hidden
// rotation of the join shift: the needle (position target.Len() of
// combined) lands at position (target.Len()-k) mod (target.Len()+1) of
// joined, and any k that is a multiple of target.Len()+1 is a no-op shift
// that still produces a verifiable trivial proof pair.
//
// shiftLabel must derive the same label chain validation recomputes for a
// shift_stack's Source (chain.ShiftLabel), passed as a func rather than
// imported directly since package chain already imports package stack.
// Insert cannot take the join and restore labels as plain strings up
// front: the restore label depends on joined's Id, which is only known
// after the join shift actually runs (its output is re-randomized).
func Insert(cs *crypto.Scheme, ms *mask.Scheme, shiftLabel func(crypto.Fingerprint) string, target, needle Stack, k int) (combined, joined Stack, joinedProof *proof.Rotation, restored Stack, restoredProof *proof.Rotation, err error) {
	combined = New(append(append([]mask.Mask{}, target.Masks...), needle.Masks...))
	combinedId, err := combined.Id(cs)
	if err != nil {
		return Stack{}, Stack{}, nil, Stack{}, nil, err
	}
	joined, joinedProof, err = Shift(cs, ms, shiftLabel(combinedId), combined, k)
	if err != nil {
		return Stack{}, Stack{}, nil, Stack{}, nil, err
	}
	joinedId, err := joined.Id(cs)
	if err != nil {
		return Stack{}, Stack{}, nil, Stack{}, nil, err
	}
	restored, restoredProof, err = Shift(cs, ms, shiftLabel(joinedId), joined, -k)
	if err != nil {
		return Stack{}, Stack{}, nil, Stack{}, nil, err
	}
	return combined, joined, joinedProof, restored, restoredProof, nil
}

// VerifyInsert checks both halves of an Insert's paired shifts. joinLabel
// and restoreLabel are the labels Insert derived internally: its shiftLabel
// func applied to combined's Id and to joined's Id respectively.
func VerifyInsert(cs *crypto.Scheme, ms *mask.Scheme, joinLabel, restoreLabel string, combined, joined, restored Stack, joinedProof, restoredProof *proof.Rotation) error {
	if err := VerifyShift(cs, ms, joinLabel, combined, joined, joinedProof); err != nil {
		return err
	}
	return VerifyShift(cs, ms, restoreLabel, joined, restored, restoredProof)
}

// Entangle proves that every stack in lists was permuted by the same hidden
// permutation perm, sharing one permutation-validity argument across all of
// them (spec §4.3's Entanglement). rs holds independent re-randomization
// scalars per list, indexed by output position like Shuffle's.
func Entangle(cs *crypto.Scheme, ms *mask.Scheme, label string, lists []Stack, perm []int, rs [][]kyber.Scalar) ([]Stack, *proof.Entanglement, error) {
	if len(lists) == 0 {
		return nil, nil, xerr.New(xerr.ShapeMismatch, "entanglement requires at least one stack")
	}
	n := len(perm)
	ins := make([][]proof.Pair, len(lists))
	outs := make([][]proof.Pair, len(lists))
	outMasks := make([][]mask.Mask, len(lists))
	for i, s := range lists {
		if s.Len() != n {
			return nil, nil, xerr.New(xerr.ShapeMismatch, "entanglement: stack %d has length %d, want %d", i, s.Len(), n)
		}
		ins[i] = pairsOf(s.Masks)
		outMasks[i] = applyPerm(cs, ms, s.Masks, perm, rs[i])
		outs[i] = pairsOf(outMasks[i])
	}
	p, err := proof.ProveEntanglement(cs, label, ms.H(), ins, outs, perm, rs)
	if err != nil {
		return nil, nil, err
	}
	result := make([]Stack, len(lists))
	for i, out := range outMasks {
		result[i] = New(out)
	}
	return result, p, nil
}

// VerifyEntangle checks an Entanglement proof across parallel input/output
// stack lists.
func VerifyEntangle(cs *crypto.Scheme, ms *mask.Scheme, label string, ins, outs []Stack, p *proof.Entanglement) error {
	if len(ins) != len(outs) {
		return xerr.New(xerr.ShapeMismatch, "entanglement: mismatched list counts ins=%d outs=%d", len(ins), len(outs))
	}
	inPairs := make([][]proof.Pair, len(ins))
	outPairs := make([][]proof.Pair, len(outs))
	for i := range ins {
		inPairs[i] = pairsOf(ins[i].Masks)
		outPairs[i] = pairsOf(outs[i].Masks)
	}
	return p.Verify(cs, label, ms.H(), inPairs, outPairs)
}

// Take copies the masks at the given indices of source, in the order the
// indices are listed, into a new Stack; source itself is left unchanged. No proof accompanies Take: it is a public,
// order-preserving projection, not a re-randomization (wire tag 8 carries no
// proof field). Indices must be distinct and within range.
func Take(source Stack, indices []int) (Stack, error) {
	n := source.Len()
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return Stack{}, xerr.New(xerr.ShapeMismatch, "take: index %d out of range for stack of length %d", idx, n)
		}
		if seen[idx] {
			return Stack{}, xerr.New(xerr.ShapeMismatch, "take: duplicate index %d", idx)
		}
		seen[idx] = true
	}
	out := make([]mask.Mask, len(indices))
	for i, idx := range indices {
		out[i] = source.Masks[idx]
	}
	return New(out), nil
}

// Pile concatenates several source stacks, in the given order, into one
// result stack (wire tag 9's pile_stacks; no proof accompanies it, for the
// same reason as Take).
func Pile(sources ...Stack) Stack {
	var out []mask.Mask
	for _, s := range sources {
		out = append(out, s.Masks...)
	}
	return New(out)
}

// SortIds sorts fingerprints ascending, the tie-break order spec §4.5
// requires for block parents and replay ordering, exported for any caller
// that needs a deterministic Id ordering.
func SortIds(ids []crypto.Fingerprint) {
	sort.Slice(ids, func(i, j int) bool {
		return string(ids[i].Bytes()) < string(ids[j].Bytes())
	})
}
