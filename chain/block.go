// Package chain implements the append-only DAG of signed blocks (spec
// §4.5): Block encoding/Id/signing, and the Chain graph structure with its
// validate/append/roots/heads/parents_of/merged/empty/incomplete surface.
// Mirrors the teacher's chain package in spirit (a store of content-linked
// records with a canonical encoding and a signature check), generalized
// from drand's linear, round-numbered beacon chain to an ack-linked DAG,
// since the core has no single leader minting one round at a time.
package chain

import (
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/payload"
	"github.com/rmartinho/pbmx/wire"
	"github.com/rmartinho/pbmx/xerr"
)

// Block is a signed, ack-linked record of payloads (spec §4.5). Parents is
// the sorted ack set; Payloads are processed in listed order (spec §5).
type Block struct {
	Parents   []crypto.Fingerprint
	Payloads  []payload.Payload
	Signer    crypto.Fingerprint
	Signature []byte
}

const (
	tagBlockParent  uint32 = 1
	tagBlockPayload uint32 = 2
	tagBlockSigner  uint32 = 3
	tagBlockBody    uint32 = 4
	tagBlockSig     uint32 = 5
)

const (
	tagPayloadEntryTag  uint32 = 1
	tagPayloadEntryData uint32 = 2
)

// preSignatureEncode returns the canonical encoding of every field the
// signature covers: parents, payloads (in order), and the signer
// fingerprint. This is what Id hashes and what Sign/Verify operate on.
func (b Block) preSignatureEncode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	for _, p := range b.Parents {
		w.Field(tagBlockParent, p.Bytes())
	}
	for _, pl := range b.Payloads {
		inner, err := pl.Encode(cs)
		if err != nil {
			return nil, err
		}
		entry := wire.NewWriter()
		entry.Uint64Field(tagPayloadEntryTag, uint64(pl.Tag()))
		entry.Field(tagPayloadEntryData, inner)
		w.Field(tagBlockPayload, entry.Bytes())
	}
	w.Field(tagBlockSigner, b.Signer.Bytes())
	return w.Bytes(), nil
}

// Id computes the block's content-addressed Fingerprint: the hash of its
// pre-signature canonical encoding (spec §4.5). The signature signs this
// Id, not the raw pre-signature bytes, so verifiers hash once and reuse the
// result for both content-addressing and signature checking.
func (b Block) Id(cs *crypto.Scheme) (crypto.Fingerprint, error) {
	buf, err := b.preSignatureEncode(cs)
	if err != nil {
		return crypto.Fingerprint{}, err
	}
	return cs.FingerprintOf(buf)
}

// Encode returns the canonical encoding of the full block, signature
// included.
func (b Block) Encode(cs *crypto.Scheme) ([]byte, error) {
	body, err := b.preSignatureEncode(cs)
	if err != nil {
		return nil, err
	}
	w := wire.NewWriter()
	w.Field(tagBlockBody, body)
	w.Field(tagBlockSig, b.Signature)
	return w.Bytes(), nil
}

// DecodeBlock decodes a Block from its canonical encoding, the inverse of
// Encode.
func DecodeBlock(cs *crypto.Scheme, buf []byte) (Block, error) {
	outer, err := wire.NewReader(buf).All()
	if err != nil {
		return Block{}, err
	}
	var body []byte
	var b Block
	haveBody := false
	for _, f := range outer {
		switch f.Tag {
		case tagBlockBody:
			body = f.Data
			haveBody = true
		case tagBlockSig:
			b.Signature = append([]byte{}, f.Data...)
		default:
			return Block{}, xerr.New(xerr.Decoding, "block: unknown field tag %d", f.Tag)
		}
	}
	if !haveBody {
		return Block{}, xerr.New(xerr.Decoding, "block: missing body field")
	}

	fields, err := wire.NewReader(body).All()
	if err != nil {
		return Block{}, err
	}
	for _, f := range fields {
		switch f.Tag {
		case tagBlockParent:
			var fp crypto.Fingerprint
			fp, err = crypto.FingerprintFromBytes(f.Data)
			b.Parents = append(b.Parents, fp)
		case tagBlockPayload:
			var pl payload.Payload
			pl, err = decodePayloadEntry(cs, f.Data)
			b.Payloads = append(b.Payloads, pl)
		case tagBlockSigner:
			b.Signer, err = crypto.FingerprintFromBytes(f.Data)
		default:
			err = xerr.New(xerr.Decoding, "block: unknown body field tag %d", f.Tag)
		}
		if err != nil {
			return Block{}, err
		}
	}
	return b, nil
}

func decodePayloadEntry(cs *crypto.Scheme, buf []byte) (payload.Payload, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	var tag uint32
	var data []byte
	haveTag, haveData := false, false
	for _, f := range fields {
		switch f.Tag {
		case tagPayloadEntryTag:
			var v uint64
			v, err = wire.Uint64(f.Data)
			tag = uint32(v)
			haveTag = true
		case tagPayloadEntryData:
			data = f.Data
			haveData = true
		default:
			err = xerr.New(xerr.Decoding, "payload entry: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	if !haveTag || !haveData {
		return nil, xerr.New(xerr.Decoding, "payload entry: missing tag or data field")
	}
	return payload.Decode(cs, tag, data)
}

// referencedStackIds returns every stack Fingerprint a payload reads,
// independent of whatever it writes, used by validation to resolve
// StackUnknown references.
func referencedStackIds(p payload.Payload) []crypto.Fingerprint {
	switch pl := p.(type) {
	case payload.MaskStack:
		return nil
	case payload.ShuffleStack:
		return []crypto.Fingerprint{pl.Source}
	case payload.ShiftStack:
		return []crypto.Fingerprint{pl.Source}
	case payload.NameStack:
		return []crypto.Fingerprint{pl.Target}
	case payload.TakeStack:
		return []crypto.Fingerprint{pl.Source}
	case payload.PileStacks:
		return append([]crypto.Fingerprint{}, pl.Sources...)
	case payload.PublishShares:
		return []crypto.Fingerprint{pl.Target}
	case payload.ProveEntanglement:
		return append(append([]crypto.Fingerprint{}, pl.Sources...), pl.ShuffleIds...)
	default:
		return nil
	}
}
