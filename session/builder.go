package session

import (
	"sort"

	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/chain"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/key"
	"github.com/rmartinho/pbmx/mask"
	"github.com/rmartinho/pbmx/payload"
	"github.com/rmartinho/pbmx/proof"
	"github.com/rmartinho/pbmx/rng"
	"github.com/rmartinho/pbmx/stack"
	"github.com/rmartinho/pbmx/xerr"
)

// Builder accumulates payloads for one block, then signs and appends it
// (spec §4.6: "the caller constructs a Block via a builder that accumulates
// Payloads, then signs and appends").
type Builder struct {
	session  *Session
	parents  []crypto.Fingerprint
	payloads []payload.Payload
}

// NewBuilder starts a builder acking the session's current heads -- the
// usual case of building on top of everything seen so far. An empty chain
// yields a root builder with no parents.
func (s *Session) NewBuilder() *Builder {
	return &Builder{session: s, parents: append([]crypto.Fingerprint{}, s.chain.Heads()...)}
}

// Ack adds extra parent acks beyond the session's current heads (e.g. a
// late joiner deliberately acking an older head it just caught up on).
// Parents end up lexicographically sorted with duplicates removed, per
// spec §3's "Parents of B are lexicographically sorted by Id; duplicate
// parents are forbidden."
func (b *Builder) Ack(ids ...crypto.Fingerprint) *Builder {
	b.parents = append(b.parents, ids...)
	return b
}

// Add appends one payload to the block under construction.
func (b *Builder) Add(p payload.Payload) *Builder {
	b.payloads = append(b.payloads, p)
	return b
}

// PublishKey adds a publish_key payload under name.
func (b *Builder) PublishKey(name string, pub *key.PublicKey) *Builder {
	return b.Add(payload.PublishKey{Name: name, Key: pub})
}

// Text adds a plain-text payload.
func (b *Builder) Text(text string) *Builder {
	return b.Add(payload.Text{Text: text})
}

// OpenStack adds an already-known stack to the chain without masking it
// fresh (spec §6's open_stack: "Stack").
func (b *Builder) OpenStack(s stack.Stack) *Builder {
	return b.Add(payload.OpenStack{Stack: s})
}

// MaskStack masks tokens into a fresh stack under the session's current
// shared key and queues the resulting mask_stack payload. source names the
// logical predecessor this masking replaces (the empty Fingerprint for a
// freshly-dealt stack with no predecessor).
func (b *Builder) MaskStack(source crypto.Fingerprint, tokens []int64) (stack.Stack, error) {
	ms := b.session.MaskScheme()
	result, proofs, err := stack.Mask(ms, tokens)
	if err != nil {
		return stack.Stack{}, err
	}
	b.Add(payload.MaskStack{Source: source, Tokens: tokens, Result: result, Proofs: proofs})
	return result, nil
}

// ShuffleStack shuffles the stack named by source under perm and queues the
// resulting shuffle_stack payload, using chain.ShuffleLabel so the label the
// prover transcript uses matches exactly what chain validation recomputes.
func (b *Builder) ShuffleStack(source crypto.Fingerprint, perm []int) (stack.Stack, error) {
	in, err := b.session.lookupStackOrErr(source)
	if err != nil {
		return stack.Stack{}, err
	}
	ms := b.session.MaskScheme()
	out, sp, err := stack.Shuffle(b.session.cs, ms, chain.ShuffleLabel(source), in, perm)
	if err != nil {
		return stack.Stack{}, err
	}
	b.Add(payload.ShuffleStack{Source: source, Result: out, Proof: sp})
	return out, nil
}

// ShiftStack rotates the stack named by source by k and queues the
// resulting shift_stack payload.
func (b *Builder) ShiftStack(source crypto.Fingerprint, k int) (stack.Stack, error) {
	in, err := b.session.lookupStackOrErr(source)
	if err != nil {
		return stack.Stack{}, err
	}
	ms := b.session.MaskScheme()
	out, sp, err := stack.Shift(b.session.cs, ms, chain.ShiftLabel(source), in, k)
	if err != nil {
		return stack.Stack{}, err
	}
	b.Add(payload.ShiftStack{Source: source, Result: out, Proof: sp})
	return out, nil
}

// InsertStack expresses stack.Insert as a pile_stacks payload (registering
// target||needle on-chain under its own Id) followed by the two shift_stack
// payloads the Open Question resolution settled on (DESIGN.md, spec §9):
// insert has no dedicated wire tag, it is a pile plus a pair of shifts bound
// by construction. The pile is required: chain validation looks up a
// shift_stack's Source in the stack registry and recomputes its label as
// chain.ShiftLabel(Source), so the combined pre-image stack must exist
// on-chain under a real Id before it can be the source of a shift, and the
// prover must use that same Id's label rather than target's.
func (b *Builder) InsertStack(target, needle crypto.Fingerprint, k int) (joined, restored stack.Stack, err error) {
	targetSt, err := b.session.lookupStackOrErr(target)
	if err != nil {
		return stack.Stack{}, stack.Stack{}, err
	}
	needleSt, err := b.session.lookupStackOrErr(needle)
	if err != nil {
		return stack.Stack{}, stack.Stack{}, err
	}

	ms := b.session.MaskScheme()
	combined, joined, joinedProof, restored, restoredProof, err := stack.Insert(
		b.session.cs, ms, chain.ShiftLabel, targetSt, needleSt, k)
	if err != nil {
		return stack.Stack{}, stack.Stack{}, err
	}
	combinedId, err := combined.Id(b.session.cs)
	if err != nil {
		return stack.Stack{}, stack.Stack{}, err
	}
	joinedId, err := joined.Id(b.session.cs)
	if err != nil {
		return stack.Stack{}, stack.Stack{}, err
	}

	b.Add(payload.PileStacks{Sources: []crypto.Fingerprint{target, needle}, Result: combinedId})
	b.Add(payload.ShiftStack{Source: combinedId, Result: joined, Proof: joinedProof})
	b.Add(payload.ShiftStack{Source: joinedId, Result: restored, Proof: restoredProof})
	return joined, restored, nil
}

// NameStack (re)binds name to target's current Id (spec §4.6: "reassignable
// ... name-stack payload replaces the binding").
func (b *Builder) NameStack(target crypto.Fingerprint, name string) *Builder {
	return b.Add(payload.NameStack{Target: target, Name: name})
}

// TakeStack selects indices out of the stack named by source.
func (b *Builder) TakeStack(source crypto.Fingerprint, indices []int) (stack.Stack, error) {
	in, err := b.session.lookupStackOrErr(source)
	if err != nil {
		return stack.Stack{}, err
	}
	result, err := stack.Take(in, indices)
	if err != nil {
		return stack.Stack{}, err
	}
	resultId, err := result.Id(b.session.cs)
	if err != nil {
		return stack.Stack{}, err
	}
	b.Add(payload.TakeStack{Source: source, Indices: indices, Result: resultId})
	return result, nil
}

// PileStacks concatenates the stacks named by sources.
func (b *Builder) PileStacks(sources []crypto.Fingerprint) (stack.Stack, error) {
	sts := make([]stack.Stack, len(sources))
	for i, id := range sources {
		st, err := b.session.lookupStackOrErr(id)
		if err != nil {
			return stack.Stack{}, err
		}
		sts[i] = st
	}
	result := stack.Pile(sts...)
	resultId, err := result.Id(b.session.cs)
	if err != nil {
		return stack.Stack{}, err
	}
	b.Add(payload.PileStacks{Sources: append([]crypto.Fingerprint{}, sources...), Result: resultId})
	return result, nil
}

// PublishShares publishes priv's decryption shares toward every mask in the
// stack named by target.
func (b *Builder) PublishShares(target crypto.Fingerprint, priv *key.PrivateKey, pub *key.PublicKey) error {
	st, err := b.session.lookupStackOrErr(target)
	if err != nil {
		return err
	}
	shares := make([]mask.Share, st.Len())
	proofs := make([]*proof.DlogEq, st.Len())
	for i, m := range st.Masks {
		sh, pr, serr := mask.Share(b.session.cs, m, priv.Scalar(), pub.Point())
		if serr != nil {
			return serr
		}
		shares[i] = sh
		proofs[i] = pr
	}
	b.Add(payload.PublishShares{Target: target, Shares: shares, Proofs: proofs})
	return nil
}

// ProveEntanglement ties together parallel shuffles sharing one permutation
// (spec §4.3): sources are the pre-shuffle stacks, shuffleIds the matching
// post-shuffle results already on chain via separate shuffle_stack payloads.
func (b *Builder) ProveEntanglement(sources, shuffleIds []crypto.Fingerprint, perm []int, rs [][]kyber.Scalar) ([]stack.Stack, error) {
	ins := make([]stack.Stack, len(sources))
	for i, id := range sources {
		st, err := b.session.lookupStackOrErr(id)
		if err != nil {
			return nil, err
		}
		ins[i] = st
	}
	ms := b.session.MaskScheme()
	outs, ep, err := stack.Entangle(b.session.cs, ms, chain.EntanglementLabel(sources), ins, perm, rs)
	if err != nil {
		return nil, err
	}
	b.Add(payload.ProveEntanglement{Sources: append([]crypto.Fingerprint{}, sources...), ShuffleIds: append([]crypto.Fingerprint{}, shuffleIds...), Proof: ep})
	return outs, nil
}

// RandomSpec declares a new named Rng under the given spec grammar string.
func (b *Builder) RandomSpec(name, specText string) *Builder {
	return b.Add(payload.RandomSpec{Name: name, SpecText: specText})
}

// RandomEntropy contributes a fresh entropy mask toward the named Rng.
func (b *Builder) RandomEntropy(name string) (mask.Mask, error) {
	ms := b.session.MaskScheme()
	m, _, err := ms.Mask(0)
	if err != nil {
		return mask.Mask{}, err
	}
	b.Add(payload.RandomEntropy{Name: name, Entropy: m})
	return m, nil
}

// RandomReveal publishes priv's reveal share toward the named Rng's
// aggregate entropy mask.
func (b *Builder) RandomReveal(name string, priv *key.PrivateKey, pub *key.PublicKey) error {
	st, ok := b.session.LookupRng(name)
	if !ok {
		return xerr.New(xerr.StackUnknown, "random_reveal: rng %q not found", name)
	}
	sh, pr, err := rng.Reveal(b.session.cs, st, priv.Scalar(), pub.Point())
	if err != nil {
		return err
	}
	b.Add(payload.RandomReveal{Name: name, Share: sh, Proof: pr})
	return nil
}

// Sign finalizes the block: parents are sorted and deduplicated, the
// signer fingerprint is derived from pub, and the signature covers the
// block's own content-addressed Id (spec §4.5).
func (b *Builder) Sign(priv *key.PrivateKey, pub *key.PublicKey) (chain.Block, error) {
	fp, err := pub.Fingerprint()
	if err != nil {
		return chain.Block{}, err
	}
	blk := chain.Block{
		Parents:  sortedUniqueParents(b.parents),
		Payloads: b.payloads,
		Signer:   fp,
	}
	id, err := blk.Id(b.session.cs)
	if err != nil {
		return chain.Block{}, err
	}
	sig, err := priv.Sign(id.Bytes())
	if err != nil {
		return chain.Block{}, err
	}
	blk.Signature = sig
	return blk, nil
}

func sortedUniqueParents(ids []crypto.Fingerprint) []crypto.Fingerprint {
	seen := make(map[crypto.Fingerprint]bool, len(ids))
	out := make([]crypto.Fingerprint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].Bytes()) < string(out[j].Bytes())
	})
	return out
}
