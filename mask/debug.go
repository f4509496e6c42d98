package mask

import (
	json "github.com/nikkolasg/hexjson"
	"github.com/rmartinho/pbmx/crypto"
)

// maskDebugView is the hex-rendered shape of a Mask for log lines and test
// failure output -- never the canonical wire encoding used for hashing or
// transport (mask.Encode is that). hexjson renders []byte as hex instead of
// base64, the same separation the teacher keeps between Beacon.Marshal and
// its protobuf wire format.
type maskDebugView struct {
	C1 []byte
	C2 []byte
}

// DebugJSON renders m for logging and test failure output.
func (m Mask) DebugJSON(cs *crypto.Scheme) ([]byte, error) {
	c1, err := cs.EncodePoint(m.C1)
	if err != nil {
		return nil, err
	}
	c2, err := cs.EncodePoint(m.C2)
	if err != nil {
		return nil, err
	}
	return json.Marshal(maskDebugView{C1: c1, C2: c2})
}

type shareDebugView struct {
	Point []byte
}

// DebugJSON renders sh for logging and test failure output.
func (sh Share) DebugJSON(cs *crypto.Scheme) ([]byte, error) {
	p, err := cs.EncodePoint(sh.Point)
	if err != nil {
		return nil, err
	}
	return json.Marshal(shareDebugView{Point: p})
}
