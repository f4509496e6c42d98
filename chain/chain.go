package chain

import (
	"sort"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/xerr"
)

// validatedCacheSize bounds the re-entrant-validation accelerator cache
// (SPEC_FULL.md §4.5), the same LRU sizing style the teacher's
// client/cache.go uses for a fixed-capacity recently-seen set.
const validatedCacheSize = 4096

// Chain is the DAG of blocks spec §4.5 describes: a map Id -> Block plus
// an adjacency index derived on demand (spec §9's "Cyclic object graphs"
// design note -- no pointers between blocks, only Id references).
type Chain struct {
	blocks    map[crypto.Fingerprint]Block
	validated *lru.Cache
}

// New returns an empty Chain.
func New() *Chain {
	cache, err := lru.New(validatedCacheSize)
	if err != nil {
		// Only fails for a non-positive size, which validatedCacheSize never is.
		panic(err)
	}
	return &Chain{
		blocks:    make(map[crypto.Fingerprint]Block),
		validated: cache,
	}
}

// Empty reports whether the chain has no blocks.
func (c *Chain) Empty() bool { return len(c.blocks) == 0 }

// Blocks returns every block the chain holds, in no particular order.
func (c *Chain) Blocks() []Block {
	out := make([]Block, 0, len(c.blocks))
	for _, b := range c.blocks {
		out = append(out, b)
	}
	return out
}

// Block looks up a block by Id.
func (c *Chain) Block(id crypto.Fingerprint) (Block, bool) {
	b, ok := c.blocks[id]
	return b, ok
}

// ParentsOf returns the ack set of the block named by id, or nil if id
// isn't in the chain.
func (c *Chain) ParentsOf(id crypto.Fingerprint) []crypto.Fingerprint {
	b, ok := c.blocks[id]
	if !ok {
		return nil
	}
	return append([]crypto.Fingerprint{}, b.Parents...)
}

// Roots returns every block with no parents present in the chain (spec
// §4.5), sorted ascending for deterministic iteration.
func (c *Chain) Roots() []crypto.Fingerprint {
	var roots []crypto.Fingerprint
	for id, b := range c.blocks {
		if len(b.Parents) == 0 {
			roots = append(roots, id)
		}
	}
	sortIds(roots)
	return roots
}

// Heads returns every block with no child present in the chain (spec
// §4.5), sorted ascending for deterministic iteration.
func (c *Chain) Heads() []crypto.Fingerprint {
	hasChild := make(map[crypto.Fingerprint]bool, len(c.blocks))
	for _, b := range c.blocks {
		for _, p := range b.Parents {
			hasChild[p] = true
		}
	}
	var heads []crypto.Fingerprint
	for id := range c.blocks {
		if !hasChild[id] {
			heads = append(heads, id)
		}
	}
	sortIds(heads)
	return heads
}

// Merged reports whether the chain currently has exactly one head (spec
// §4.5/§8 scenario 6).
func (c *Chain) Merged() bool { return len(c.Heads()) == 1 }

// Incomplete reports whether any block's ack set references a block the
// chain doesn't have (spec §4.5/§8 scenario 6: a late joiner missing some
// delivered blocks). Append rejects a block whose acks are not already in
// the chain, so a chain filled only through Append never reports true.
func (c *Chain) Incomplete() bool {
	for _, b := range c.blocks {
		for _, p := range b.Parents {
			if _, ok := c.blocks[p]; !ok {
				return true
			}
		}
	}
	return false
}

// Append validates b against state and, if valid, adds it to the chain.
// Atomic: either the block is fully validated and added, or the chain is
// left completely unchanged (spec §4.5). Re-delivering an Id the chain
// already holds is idempotent: identical content returns nil without
// re-validation, different content is a ChainIntegrity error (late joiners
// may safely re-deliver blocks they've already sent). An Id found in the
// validated-Id cache is added back without re-validation.
func (c *Chain) Append(cs *crypto.Scheme, b Block, state DerivedState) error {
	id, err := b.Id(cs)
	if err != nil {
		return err
	}
	if existing, ok := c.blocks[id]; ok {
		if !blocksEqual(existing, b) {
			return xerr.New(xerr.ChainIntegrity, "block %s redelivered with different content", id)
		}
		return nil
	}
	if _, ok := c.validated.Get(id); ok {
		c.blocks[id] = b
		return nil
	}

	if err := c.validate(cs, b, state); err != nil {
		return err
	}

	c.blocks[id] = b
	c.validated.Add(id, true)
	return nil
}

func blocksEqual(a, b Block) bool {
	if len(a.Parents) != len(b.Parents) || len(a.Payloads) != len(b.Payloads) || a.Signer != b.Signer {
		return false
	}
	for i := range a.Parents {
		if a.Parents[i] != b.Parents[i] {
			return false
		}
	}
	return string(a.Signature) == string(b.Signature)
}

func sortIds(ids []crypto.Fingerprint) {
	sort.Slice(ids, func(i, j int) bool {
		return string(ids[i].Bytes()) < string(ids[j].Bytes())
	})
}

// TopologicalOrder returns every block Id the chain holds, ordered so that
// every block appears after all of its parents, with ties (blocks whose
// dependencies are already satisfied) broken by Id ascending -- spec §4.5's
// "Replay determinism: ... a left fold over a topological order of blocks;
// for equal-precedence blocks, ordering is by Id ascending so all parties
// derive identical state."
func (c *Chain) TopologicalOrder() []crypto.Fingerprint {
	indegree := make(map[crypto.Fingerprint]int, len(c.blocks))
	children := make(map[crypto.Fingerprint][]crypto.Fingerprint, len(c.blocks))
	for id, b := range c.blocks {
		present := 0
		for _, p := range b.Parents {
			if _, ok := c.blocks[p]; ok {
				present++
				children[p] = append(children[p], id)
			}
		}
		indegree[id] = present
	}

	var ready []crypto.Fingerprint
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sortIds(ready)

	var order []crypto.Fingerprint
	for len(ready) > 0 {
		sortIds(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, child := range children[next] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}
	return order
}
