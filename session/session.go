// Package session implements the derived state a collaborator folds a
// chain into (spec §4.6): the party roster, the shared key H, the stack
// registry with its reassignable name overlay, and the named Rng states --
// plus the block builder used to commit new payloads. Grounded on the
// teacher's key.Group (github.com/drand/drand/common/key/group.go): a
// roster derived once from trusted input (there, a DKG's resulting group
// file; here, replayed chain blocks) that every party reconstructs
// identically.
package session

import (
	"github.com/drand/kyber"
	"github.com/rmartinho/pbmx/chain"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/mask"
	"github.com/rmartinho/pbmx/payload"
	"github.com/rmartinho/pbmx/rng"
	"github.com/rmartinho/pbmx/stack"
	"github.com/rmartinho/pbmx/xerr"
)

// Session is the mutable derived state of one chain (spec §4.6). It
// implements chain.DerivedState so its own current state is exactly what
// chain.Append validates new blocks against.
type Session struct {
	cs    *crypto.Scheme
	chain *chain.Chain

	partyOrder []crypto.Fingerprint
	partyNames map[crypto.Fingerprint]string
	publicKeys map[crypto.Fingerprint]kyber.Point
	h          kyber.Point

	stacks map[crypto.Fingerprint]stack.Stack
	names  map[string]crypto.Fingerprint

	rngs map[string]*rng.State

	// expectedParties and rngMenu come from an optional bootstrap
	// Descriptor (genesis.go); they are local convenience data, never part
	// of the chain or its validation.
	expectedParties []string
	rngMenu         map[string]string
}

// New returns a fresh Session over an empty chain.
func New(cs *crypto.Scheme) *Session {
	return &Session{
		cs:         cs,
		chain:      chain.New(),
		partyNames: make(map[crypto.Fingerprint]string),
		publicKeys: make(map[crypto.Fingerprint]kyber.Point),
		h:          cs.Group.Point().Null(),
		stacks:     make(map[crypto.Fingerprint]stack.Stack),
		names:      make(map[string]crypto.Fingerprint),
		rngs:       make(map[string]*rng.State),
	}
}

// Chain exposes the underlying chain, e.g. for a transport collaborator
// that needs to iterate or gossip raw blocks.
func (s *Session) Chain() *chain.Chain { return s.chain }

// SharedKey implements chain.DerivedState: H is the sum of every published
// public key (spec §3's "H is the sum of all published party public keys").
func (s *Session) SharedKey() kyber.Point { return s.h }

// LookupPublicKey implements chain.DerivedState.
func (s *Session) LookupPublicKey(fp crypto.Fingerprint) (kyber.Point, bool) {
	p, ok := s.publicKeys[fp]
	return p, ok
}

// LookupStack implements chain.DerivedState. It looks up by stack Id only;
// the name overlay is not consulted (StackByName resolves names).
func (s *Session) LookupStack(id crypto.Fingerprint) (stack.Stack, bool) {
	st, ok := s.stacks[id]
	return st, ok
}

// LookupRng implements chain.DerivedState.
func (s *Session) LookupRng(name string) (*rng.State, bool) {
	st, ok := s.rngs[name]
	return st, ok
}

// Parties returns every published party's fingerprint, in first-publication
// order (spec §4.6); PartyName returns each one's published name.
func (s *Session) Parties() []crypto.Fingerprint {
	return append([]crypto.Fingerprint{}, s.partyOrder...)
}

// PartyName returns the published name for fp, if any.
func (s *Session) PartyName(fp crypto.Fingerprint) (string, bool) {
	n, ok := s.partyNames[fp]
	return n, ok
}

// StackByName resolves a name through the reassignable name overlay (spec
// §4.6: "name-stack payload replaces the binding").
func (s *Session) StackByName(name string) (stack.Stack, bool) {
	id, ok := s.names[name]
	if !ok {
		return stack.Stack{}, false
	}
	return s.LookupStack(id)
}

// Append validates b against the session's current state and, on success,
// folds it into that state. Either both the chain and the derived maps
// advance together, or neither does (spec §4.5's block-atomicity carried
// through to the session layer).
func (s *Session) Append(b chain.Block) error {
	if err := s.chain.Append(s.cs, b, s); err != nil {
		return err
	}
	return s.rebuild()
}

// rebuild recomputes every derived map from scratch by replaying the
// chain's blocks in topological order (spec §4.5: "Replay into derived
// state is a left fold over a topological order of blocks"). Folding
// trusts each block was already validated by the chain it came from --
// rebuild never re-checks proofs, only re-applies their effects.
func (s *Session) rebuild() error {
	s.partyOrder = nil
	s.partyNames = make(map[crypto.Fingerprint]string)
	s.publicKeys = make(map[crypto.Fingerprint]kyber.Point)
	s.h = s.cs.Group.Point().Null()
	s.stacks = make(map[crypto.Fingerprint]stack.Stack)
	s.names = make(map[string]crypto.Fingerprint)
	s.rngs = make(map[string]*rng.State)

	for _, id := range s.chain.TopologicalOrder() {
		b, ok := s.chain.Block(id)
		if !ok {
			continue
		}
		if err := s.apply(b); err != nil {
			return err
		}
	}
	return nil
}

// apply folds one already-validated block's payloads into the session's
// maps, in listed order (spec §5: "Payloads within a block are processed
// in listed order").
func (s *Session) apply(b chain.Block) error {
	for _, p := range b.Payloads {
		if err := s.applyPayload(b, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) applyPayload(b chain.Block, p payload.Payload) error {
	switch pl := p.(type) {
	case payload.RawBytes, payload.Text:
		return nil

	case payload.PublishKey:
		fp, err := pl.Key.Fingerprint()
		if err != nil {
			return err
		}
		if _, known := s.publicKeys[fp]; !known {
			s.partyOrder = append(s.partyOrder, fp)
			s.partyNames[fp] = pl.Name
			s.publicKeys[fp] = pl.Key.Point()
			s.h = s.cs.Group.Point().Add(s.h, pl.Key.Point())
		}
		return nil

	case payload.OpenStack:
		id, err := pl.Stack.Id(s.cs)
		if err != nil {
			return err
		}
		s.stacks[id] = pl.Stack
		return nil

	case payload.MaskStack:
		id, err := pl.Result.Id(s.cs)
		if err != nil {
			return err
		}
		s.stacks[id] = pl.Result
		return nil

	case payload.ShuffleStack:
		id, err := pl.Result.Id(s.cs)
		if err != nil {
			return err
		}
		s.stacks[id] = pl.Result
		return nil

	case payload.ShiftStack:
		id, err := pl.Result.Id(s.cs)
		if err != nil {
			return err
		}
		s.stacks[id] = pl.Result
		return nil

	case payload.NameStack:
		s.names[pl.Name] = pl.Target
		return nil

	case payload.TakeStack:
		source, ok := s.stacks[pl.Source]
		if !ok {
			return xerr.New(xerr.StackUnknown, "take_stack: source %s not in session", pl.Source)
		}
		taken, err := stack.Take(source, pl.Indices)
		if err != nil {
			return err
		}
		s.stacks[pl.Result] = taken
		return nil

	case payload.PileStacks:
		sources := make([]stack.Stack, len(pl.Sources))
		for i, id := range pl.Sources {
			st, ok := s.stacks[id]
			if !ok {
				return xerr.New(xerr.StackUnknown, "pile_stacks: source %s not in session", id)
			}
			sources[i] = st
		}
		s.stacks[pl.Result] = stack.Pile(sources...)
		return nil

	case payload.PublishShares, payload.ProveEntanglement:
		// Already verified during validation; neither carries state the
		// session's four derived maps track (spec §4.6 lists Parties,
		// SharedKey, Stacks, Rngs only). Downstream decryption bookkeeping
		// belongs to the caller iterating the chain's payloads directly.
		return nil

	case payload.RandomSpec:
		spec, err := rng.Parse(pl.SpecText)
		if err != nil {
			return err
		}
		s.rngs[pl.Name] = rng.NewState(pl.Name, spec)
		return nil

	case payload.RandomEntropy:
		st, ok := s.rngs[pl.Name]
		if !ok {
			return xerr.New(xerr.StackUnknown, "random_entropy: rng %q not found", pl.Name)
		}
		st.ContributeEntropy(b.Signer, pl.Entropy)
		return nil

	case payload.RandomReveal:
		st, ok := s.rngs[pl.Name]
		if !ok {
			return xerr.New(xerr.StackUnknown, "random_reveal: rng %q not found", pl.Name)
		}
		st.RevealShare(b.Signer, pl.Share)
		return nil

	default:
		return xerr.New(xerr.Decoding, "session: unrecognized payload type %T", p)
	}
}

// MaskScheme returns a mask.Scheme bound to the session's current shared
// key, the input every masking/shuffling operation needs.
func (s *Session) MaskScheme() *mask.Scheme {
	return mask.NewScheme(s.cs, s.h)
}

func (s *Session) lookupStackOrErr(id crypto.Fingerprint) (stack.Stack, error) {
	st, ok := s.stacks[id]
	if !ok {
		return stack.Stack{}, xerr.New(xerr.StackUnknown, "stack %s not in session", id)
	}
	return st, nil
}
