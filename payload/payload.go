// Package payload implements the closed tagged set of move types a block
// carries (spec §4.5/§6): the wire contract's payload oneof, tags 1-9 and
// 11-16 (tag 10 reserved). Each payload arm is a plain struct, dispatched by
// an exhaustive switch on its wire tag rather than a class hierarchy (spec
// §9: "Runtime polymorphism on Payload should be a tagged variant").
//
// Proof types (DlogEq, Shuffle, Rotation, Entanglement) already carry their
// own canonical encodings (package proof); this package only frames them
// alongside the Ids, names, and stacks each payload kind additionally
// carries.
package payload

import (
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/key"
	"github.com/rmartinho/pbmx/mask"
	"github.com/rmartinho/pbmx/proof"
	"github.com/rmartinho/pbmx/stack"
	"github.com/rmartinho/pbmx/wire"
	"github.com/rmartinho/pbmx/xerr"
)

// Wire tags for the payload oneof (spec §6). These numbers are part of the
// wire contract and must never be renumbered.
const (
	TagRawBytes          uint32 = 1
	TagPublishKey        uint32 = 2
	TagOpenStack         uint32 = 3
	TagMaskStack         uint32 = 4
	TagShuffleStack      uint32 = 5
	TagShiftStack        uint32 = 6
	TagNameStack         uint32 = 7
	TagTakeStack         uint32 = 8
	TagPileStacks        uint32 = 9
	TagPublishShares     uint32 = 11
	TagRandomSpec        uint32 = 12
	TagRandomEntropy     uint32 = 13
	TagRandomReveal      uint32 = 14
	TagText              uint32 = 15
	TagProveEntanglement uint32 = 16
)

// Payload is one move a block carries. Tag identifies which of the wire
// contract's 15 arms a concrete value is; Encode returns that arm's
// canonical inner encoding (the bytes a Block frames under Tag()).
type Payload interface {
	Tag() uint32
	Encode(cs *crypto.Scheme) ([]byte, error)
}

// Decode dispatches on tag to reconstruct the Payload it names from its
// inner encoding, the inverse of Payload.Encode. An unrecognized tag
// (including the reserved tag 10) is a DecodingError.
func Decode(cs *crypto.Scheme, tag uint32, buf []byte) (Payload, error) {
	switch tag {
	case TagRawBytes:
		return decodeRawBytes(buf)
	case TagPublishKey:
		return decodePublishKey(cs, buf)
	case TagOpenStack:
		return decodeOpenStack(cs, buf)
	case TagMaskStack:
		return decodeMaskStack(cs, buf)
	case TagShuffleStack:
		return decodeShuffleStack(cs, buf)
	case TagShiftStack:
		return decodeShiftStack(cs, buf)
	case TagNameStack:
		return decodeNameStack(buf)
	case TagTakeStack:
		return decodeTakeStack(buf)
	case TagPileStacks:
		return decodePileStacks(buf)
	case TagPublishShares:
		return decodePublishShares(cs, buf)
	case TagRandomSpec:
		return decodeRandomSpec(buf)
	case TagRandomEntropy:
		return decodeRandomEntropy(cs, buf)
	case TagRandomReveal:
		return decodeRandomReveal(cs, buf)
	case TagText:
		return decodeText(buf)
	case TagProveEntanglement:
		return decodeProveEntanglement(cs, buf)
	default:
		return nil, xerr.New(xerr.Decoding, "payload: unknown tag %d", tag)
	}
}

func encodeFingerprints(w *wire.Writer, tag uint32, fps []crypto.Fingerprint) {
	for _, fp := range fps {
		w.Field(tag, fp.Bytes())
	}
}

func decodeFingerprint(data []byte) (crypto.Fingerprint, error) {
	return crypto.FingerprintFromBytes(data)
}

// RawBytes carries an opaque, caller-defined byte payload (tag 1).
type RawBytes struct {
	Data []byte
}

func (RawBytes) Tag() uint32 { return TagRawBytes }

// Encode returns Data unchanged: the whole payload content is the opaque
// bytes, with no further framing.
func (p RawBytes) Encode(*crypto.Scheme) ([]byte, error) { return p.Data, nil }

func decodeRawBytes(buf []byte) (Payload, error) {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	return RawBytes{Data: cp}, nil
}

// PublishKey announces a party's public key under a human-readable name
// (tag 2). Publishing extends the session's shared key H (spec §3).
type PublishKey struct {
	Name string
	Key  *key.PublicKey
}

func (PublishKey) Tag() uint32 { return TagPublishKey }

const (
	tagPublishKeyName uint32 = iota + 1
	tagPublishKeyKey
)

func (p PublishKey) Encode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	w.StringField(tagPublishKeyName, p.Name)
	keyBuf, err := p.Key.Encode()
	if err != nil {
		return nil, err
	}
	w.Field(tagPublishKeyKey, keyBuf)
	return w.Bytes(), nil
}

func decodePublishKey(cs *crypto.Scheme, buf []byte) (Payload, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	p := PublishKey{}
	for _, f := range fields {
		switch f.Tag {
		case tagPublishKeyName:
			p.Name = string(f.Data)
		case tagPublishKeyKey:
			p.Key, err = key.DecodePublicKey(cs, f.Data)
		default:
			err = xerr.New(xerr.Decoding, "publish_key: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	if p.Key == nil {
		return nil, xerr.New(xerr.Decoding, "publish_key: missing key field")
	}
	return p, nil
}

// OpenStack reveals a freshly constructed Stack in full (tag 3), used to
// seed a session with a brand new, unmasked-origin stack of masks.
type OpenStack struct {
	Stack stack.Stack
}

func (OpenStack) Tag() uint32 { return TagOpenStack }

func (p OpenStack) Encode(cs *crypto.Scheme) ([]byte, error) { return p.Stack.Encode(cs) }

func decodeOpenStack(cs *crypto.Scheme, buf []byte) (Payload, error) {
	s, err := stack.DecodeStack(cs, buf)
	if err != nil {
		return nil, err
	}
	return OpenStack{Stack: s}, nil
}

// MaskStack records that Result was produced by masking a sequence of
// known tokens, with one DlogEq proof per mask (tag 4). Tokens is carried
// alongside the proofs -- spec.md's "Content" column names "source Id,
// resulting Stack, per-mask DlogEq proofs" descriptively, but a DlogEq
// mask-correctness proof is a statement about a *known* embedded token
// (see mask.Scheme.VerifyMask); without the token values themselves no
// verifier can check the proof at all, so Tokens is the field that makes
// tag 4 actually verifiable. This is documented as a deliberate reading of
// the wire contract in DESIGN.md: the tag NUMBER is the pinned contract,
// the listed content is illustrative.
type MaskStack struct {
	Source crypto.Fingerprint
	Tokens []int64
	Result stack.Stack
	Proofs []*proof.DlogEq
}

func (MaskStack) Tag() uint32 { return TagMaskStack }

const (
	tagMaskStackSource uint32 = iota + 1
	tagMaskStackToken
	tagMaskStackResult
	tagMaskStackProof
)

func (p MaskStack) Encode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	w.Field(tagMaskStackSource, p.Source.Bytes())
	for _, t := range p.Tokens {
		w.Uint64Field(tagMaskStackToken, uint64(t))
	}
	resultBuf, err := p.Result.Encode(cs)
	if err != nil {
		return nil, err
	}
	w.Field(tagMaskStackResult, resultBuf)
	for _, pr := range p.Proofs {
		prBuf, err := pr.Encode(cs)
		if err != nil {
			return nil, err
		}
		w.Field(tagMaskStackProof, prBuf)
	}
	return w.Bytes(), nil
}

func decodeMaskStack(cs *crypto.Scheme, buf []byte) (Payload, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	p := MaskStack{}
	for _, f := range fields {
		switch f.Tag {
		case tagMaskStackSource:
			p.Source, err = decodeFingerprint(f.Data)
		case tagMaskStackToken:
			var v uint64
			v, err = wire.Uint64(f.Data)
			p.Tokens = append(p.Tokens, int64(v))
		case tagMaskStackResult:
			p.Result, err = stack.DecodeStack(cs, f.Data)
		case tagMaskStackProof:
			var pr *proof.DlogEq
			pr, err = proof.DecodeDlogEq(cs, f.Data)
			p.Proofs = append(p.Proofs, pr)
		default:
			err = xerr.New(xerr.Decoding, "mask_stack: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ShuffleStack records that Result is a verifiably shuffled-and-remasked
// version of the stack named by Source (tag 5).
type ShuffleStack struct {
	Source crypto.Fingerprint
	Result stack.Stack
	Proof  *proof.Shuffle
}

func (ShuffleStack) Tag() uint32 { return TagShuffleStack }

const (
	tagShuffleStackSource uint32 = iota + 1
	tagShuffleStackResult
	tagShuffleStackProof
)

func (p ShuffleStack) Encode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	w.Field(tagShuffleStackSource, p.Source.Bytes())
	resultBuf, err := p.Result.Encode(cs)
	if err != nil {
		return nil, err
	}
	w.Field(tagShuffleStackResult, resultBuf)
	proofBuf, err := p.Proof.Encode(cs)
	if err != nil {
		return nil, err
	}
	w.Field(tagShuffleStackProof, proofBuf)
	return w.Bytes(), nil
}

func decodeShuffleStack(cs *crypto.Scheme, buf []byte) (Payload, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	p := ShuffleStack{}
	for _, f := range fields {
		switch f.Tag {
		case tagShuffleStackSource:
			p.Source, err = decodeFingerprint(f.Data)
		case tagShuffleStackResult:
			p.Result, err = stack.DecodeStack(cs, f.Data)
		case tagShuffleStackProof:
			p.Proof, err = proof.DecodeShuffle(cs, f.Data)
		default:
			err = xerr.New(xerr.Decoding, "shuffle_stack: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ShiftStack records that Result is a verifiably rotated-and-remasked
// version of the stack named by Source (tag 6). Per SPEC_FULL.md §9's
// resolution of the insert-payload open question, an insert operation is
// expressed as a PileStacks payload followed by two ShiftStack payloads
// rather than a dedicated tag.
type ShiftStack struct {
	Source crypto.Fingerprint
	Result stack.Stack
	Proof  *proof.Rotation
}

func (ShiftStack) Tag() uint32 { return TagShiftStack }

const (
	tagShiftStackSource uint32 = iota + 1
	tagShiftStackResult
	tagShiftStackProof
)

func (p ShiftStack) Encode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	w.Field(tagShiftStackSource, p.Source.Bytes())
	resultBuf, err := p.Result.Encode(cs)
	if err != nil {
		return nil, err
	}
	w.Field(tagShiftStackResult, resultBuf)
	proofBuf, err := p.Proof.Encode(cs)
	if err != nil {
		return nil, err
	}
	w.Field(tagShiftStackProof, proofBuf)
	return w.Bytes(), nil
}

func decodeShiftStack(cs *crypto.Scheme, buf []byte) (Payload, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	p := ShiftStack{}
	for _, f := range fields {
		switch f.Tag {
		case tagShiftStackSource:
			p.Source, err = decodeFingerprint(f.Data)
		case tagShiftStackResult:
			p.Result, err = stack.DecodeStack(cs, f.Data)
		case tagShiftStackProof:
			p.Proof, err = proof.DecodeRotation(cs, f.Data)
		default:
			err = xerr.New(xerr.Decoding, "shift_stack: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NameStack (re)binds a human-readable name to a stack Id (tag 7). A
// reassignment simply replaces any prior binding (spec §9: "a stack name
// reassignment is allowed").
type NameStack struct {
	Target crypto.Fingerprint
	Name   string
}

func (NameStack) Tag() uint32 { return TagNameStack }

const (
	tagNameStackTarget uint32 = iota + 1
	tagNameStackName
)

func (p NameStack) Encode(*crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	w.Field(tagNameStackTarget, p.Target.Bytes())
	w.StringField(tagNameStackName, p.Name)
	return w.Bytes(), nil
}

func decodeNameStack(buf []byte) (Payload, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	p := NameStack{}
	for _, f := range fields {
		switch f.Tag {
		case tagNameStackTarget:
			p.Target, err = decodeFingerprint(f.Data)
		case tagNameStackName:
			p.Name = string(f.Data)
		default:
			err = xerr.New(xerr.Decoding, "name_stack: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// TakeStack records that Result was built from the masks at Indices in the
// stack named by Source, in that order (tag 8).
type TakeStack struct {
	Source  crypto.Fingerprint
	Indices []int
	Result  crypto.Fingerprint
}

func (TakeStack) Tag() uint32 { return TagTakeStack }

const (
	tagTakeStackSource uint32 = iota + 1
	tagTakeStackIndex
	tagTakeStackResult
)

func (p TakeStack) Encode(*crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	w.Field(tagTakeStackSource, p.Source.Bytes())
	for _, idx := range p.Indices {
		w.Uint64Field(tagTakeStackIndex, uint64(idx))
	}
	w.Field(tagTakeStackResult, p.Result.Bytes())
	return w.Bytes(), nil
}

func decodeTakeStack(buf []byte) (Payload, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	p := TakeStack{}
	for _, f := range fields {
		switch f.Tag {
		case tagTakeStackSource:
			p.Source, err = decodeFingerprint(f.Data)
		case tagTakeStackIndex:
			var v uint64
			v, err = wire.Uint64(f.Data)
			p.Indices = append(p.Indices, int(v))
		case tagTakeStackResult:
			p.Result, err = decodeFingerprint(f.Data)
		default:
			err = xerr.New(xerr.Decoding, "take_stack: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// PileStacks records that Result was built by concatenating the stacks
// named by Sources, in order (tag 9). Piling carries no proof: it's a
// public, order-preserving rearrangement the verifier can recompute
// directly from the named stacks.
type PileStacks struct {
	Sources []crypto.Fingerprint
	Result  crypto.Fingerprint
}

func (PileStacks) Tag() uint32 { return TagPileStacks }

const (
	tagPileStacksSource uint32 = iota + 1
	tagPileStacksResult
)

func (p PileStacks) Encode(*crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	encodeFingerprints(w, tagPileStacksSource, p.Sources)
	w.Field(tagPileStacksResult, p.Result.Bytes())
	return w.Bytes(), nil
}

func decodePileStacks(buf []byte) (Payload, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	p := PileStacks{}
	for _, f := range fields {
		switch f.Tag {
		case tagPileStacksSource:
			var fp crypto.Fingerprint
			fp, err = decodeFingerprint(f.Data)
			p.Sources = append(p.Sources, fp)
		case tagPileStacksResult:
			p.Result, err = decodeFingerprint(f.Data)
		default:
			err = xerr.New(xerr.Decoding, "pile_stacks: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// PublishShares records the signing party's decryption shares toward the
// stack named by Target, one share and proof per mask position (tag 11).
type PublishShares struct {
	Target crypto.Fingerprint
	Shares []mask.Share
	Proofs []*proof.DlogEq
}

func (PublishShares) Tag() uint32 { return TagPublishShares }

const (
	tagPublishSharesTarget uint32 = iota + 1
	tagPublishSharesShare
	tagPublishSharesProof
)

func (p PublishShares) Encode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	w.Field(tagPublishSharesTarget, p.Target.Bytes())
	for _, sh := range p.Shares {
		shBuf, err := mask.EncodeShare(cs, sh)
		if err != nil {
			return nil, err
		}
		w.Field(tagPublishSharesShare, shBuf)
	}
	for _, pr := range p.Proofs {
		prBuf, err := pr.Encode(cs)
		if err != nil {
			return nil, err
		}
		w.Field(tagPublishSharesProof, prBuf)
	}
	return w.Bytes(), nil
}

func decodePublishShares(cs *crypto.Scheme, buf []byte) (Payload, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	p := PublishShares{}
	for _, f := range fields {
		switch f.Tag {
		case tagPublishSharesTarget:
			p.Target, err = decodeFingerprint(f.Data)
		case tagPublishSharesShare:
			var sh mask.Share
			sh, err = mask.DecodeShare(cs, f.Data)
			p.Shares = append(p.Shares, sh)
		case tagPublishSharesProof:
			var pr *proof.DlogEq
			pr, err = proof.DecodeDlogEq(cs, f.Data)
			p.Proofs = append(p.Proofs, pr)
		default:
			err = xerr.New(xerr.Decoding, "publish_shares: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RandomSpec names a new Rng, backed by a dice-notation spec string (tag
// 12). SpecText is kept verbatim (not the Canonical rendering) so the wire
// bytes match exactly what the publishing party typed.
type RandomSpec struct {
	Name     string
	SpecText string
}

func (RandomSpec) Tag() uint32 { return TagRandomSpec }

const (
	tagRandomSpecName uint32 = iota + 1
	tagRandomSpecSpec
)

func (p RandomSpec) Encode(*crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	w.StringField(tagRandomSpecName, p.Name)
	w.StringField(tagRandomSpecSpec, p.SpecText)
	return w.Bytes(), nil
}

func decodeRandomSpec(buf []byte) (Payload, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	p := RandomSpec{}
	for _, f := range fields {
		switch f.Tag {
		case tagRandomSpecName:
			p.Name = string(f.Data)
		case tagRandomSpecSpec:
			p.SpecText = string(f.Data)
		default:
			err = xerr.New(xerr.Decoding, "random_spec: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RandomEntropy contributes one party's entropy mask toward the named Rng
// (tag 13).
type RandomEntropy struct {
	Name    string
	Entropy mask.Mask
}

func (RandomEntropy) Tag() uint32 { return TagRandomEntropy }

const (
	tagRandomEntropyName uint32 = iota + 1
	tagRandomEntropyMask
)

func (p RandomEntropy) Encode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	w.StringField(tagRandomEntropyName, p.Name)
	maskBuf, err := mask.Encode(cs, p.Entropy)
	if err != nil {
		return nil, err
	}
	w.Field(tagRandomEntropyMask, maskBuf)
	return w.Bytes(), nil
}

func decodeRandomEntropy(cs *crypto.Scheme, buf []byte) (Payload, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	p := RandomEntropy{}
	for _, f := range fields {
		switch f.Tag {
		case tagRandomEntropyName:
			p.Name = string(f.Data)
		case tagRandomEntropyMask:
			p.Entropy, err = mask.DecodeMask(cs, f.Data)
		default:
			err = xerr.New(xerr.Decoding, "random_entropy: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RandomReveal publishes one party's reveal share toward the named Rng's
// aggregate entropy mask, with its correctness proof (tag 14).
type RandomReveal struct {
	Name  string
	Share mask.Share
	Proof *proof.DlogEq
}

func (RandomReveal) Tag() uint32 { return TagRandomReveal }

const (
	tagRandomRevealName uint32 = iota + 1
	tagRandomRevealShare
	tagRandomRevealProof
)

func (p RandomReveal) Encode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	w.StringField(tagRandomRevealName, p.Name)
	shBuf, err := mask.EncodeShare(cs, p.Share)
	if err != nil {
		return nil, err
	}
	w.Field(tagRandomRevealShare, shBuf)
	prBuf, err := p.Proof.Encode(cs)
	if err != nil {
		return nil, err
	}
	w.Field(tagRandomRevealProof, prBuf)
	return w.Bytes(), nil
}

func decodeRandomReveal(cs *crypto.Scheme, buf []byte) (Payload, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	p := RandomReveal{}
	for _, f := range fields {
		switch f.Tag {
		case tagRandomRevealName:
			p.Name = string(f.Data)
		case tagRandomRevealShare:
			p.Share, err = mask.DecodeShare(cs, f.Data)
		case tagRandomRevealProof:
			p.Proof, err = proof.DecodeDlogEq(cs, f.Data)
		default:
			err = xerr.New(xerr.Decoding, "random_reveal: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Text carries a free-form UTF-8 chat/annotation string (tag 15).
type Text struct {
	Text string
}

func (Text) Tag() uint32 { return TagText }

func (p Text) Encode(*crypto.Scheme) ([]byte, error) { return []byte(p.Text), nil }

func decodeText(buf []byte) (Payload, error) {
	return Text{Text: string(buf)}, nil
}

// ProveEntanglement attests that every stack named by Sources was permuted
// into the corresponding stack named by ShuffleIds using one shared hidden
// permutation (tag 16), cheaper than N independent ShuffleStack proofs.
type ProveEntanglement struct {
	Sources    []crypto.Fingerprint
	ShuffleIds []crypto.Fingerprint
	Proof      *proof.Entanglement
}

func (ProveEntanglement) Tag() uint32 { return TagProveEntanglement }

const (
	tagProveEntanglementSource uint32 = iota + 1
	tagProveEntanglementShuffle
	tagProveEntanglementProof
)

func (p ProveEntanglement) Encode(cs *crypto.Scheme) ([]byte, error) {
	w := wire.NewWriter()
	encodeFingerprints(w, tagProveEntanglementSource, p.Sources)
	encodeFingerprints(w, tagProveEntanglementShuffle, p.ShuffleIds)
	proofBuf, err := p.Proof.Encode(cs)
	if err != nil {
		return nil, err
	}
	w.Field(tagProveEntanglementProof, proofBuf)
	return w.Bytes(), nil
}

func decodeProveEntanglement(cs *crypto.Scheme, buf []byte) (Payload, error) {
	fields, err := wire.NewReader(buf).All()
	if err != nil {
		return nil, err
	}
	p := ProveEntanglement{}
	for _, f := range fields {
		switch f.Tag {
		case tagProveEntanglementSource:
			var fp crypto.Fingerprint
			fp, err = decodeFingerprint(f.Data)
			p.Sources = append(p.Sources, fp)
		case tagProveEntanglementShuffle:
			var fp crypto.Fingerprint
			fp, err = decodeFingerprint(f.Data)
			p.ShuffleIds = append(p.ShuffleIds, fp)
		case tagProveEntanglementProof:
			p.Proof, err = proof.DecodeEntanglement(cs, f.Data)
		default:
			err = xerr.New(xerr.Decoding, "prove_entanglement: unknown field tag %d", f.Tag)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}
