package payload

import (
	json "github.com/nikkolasg/hexjson"
	"github.com/rmartinho/pbmx/crypto"
)

// TagName returns a human-readable name for a payload wire tag, used only
// in debug rendering and error messages.
func TagName(tag uint32) string {
	switch tag {
	case TagRawBytes:
		return "raw_bytes"
	case TagPublishKey:
		return "publish_key"
	case TagOpenStack:
		return "open_stack"
	case TagMaskStack:
		return "mask_stack"
	case TagShuffleStack:
		return "shuffle_stack"
	case TagShiftStack:
		return "shift_stack"
	case TagNameStack:
		return "name_stack"
	case TagTakeStack:
		return "take_stack"
	case TagPileStacks:
		return "pile_stacks"
	case TagPublishShares:
		return "publish_shares"
	case TagRandomSpec:
		return "random_spec"
	case TagRandomEntropy:
		return "random_entropy"
	case TagRandomReveal:
		return "random_reveal"
	case TagText:
		return "text"
	case TagProveEntanglement:
		return "prove_entanglement"
	default:
		return "unknown"
	}
}

// DebugView is the hex-rendered shape of a Payload for log lines and test
// failure output -- never the canonical encoding a Block frames (Encode is
// that). A single generic rendering of a payload's own inner encoding is
// enough for a debug line; it is the payload's Tag, not its individual
// fields, that a log reader needs to tell moves apart.
type DebugView struct {
	Tag     uint32
	TagName string
	Data    []byte
}

// Describe builds p's DebugView, the shape chain.Block.DebugJSON nests one
// per payload so a whole block renders as a single JSON document.
func Describe(cs *crypto.Scheme, p Payload) (DebugView, error) {
	data, err := p.Encode(cs)
	if err != nil {
		return DebugView{}, err
	}
	return DebugView{Tag: p.Tag(), TagName: TagName(p.Tag()), Data: data}, nil
}

// DebugJSON renders p for logging and test failure output.
func DebugJSON(cs *crypto.Scheme, p Payload) ([]byte, error) {
	v, err := Describe(cs, p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
