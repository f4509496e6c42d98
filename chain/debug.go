package chain

import (
	json "github.com/nikkolasg/hexjson"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/payload"
)

// blockDebugView is the hex-rendered shape of a Block for log lines and
// test failure output -- never the canonical encoding Id/Encode produce,
// the same separation the teacher keeps between Beacon.Marshal (JSON,
// operator-facing) and the protobuf wire format used node-to-node.
type blockDebugView struct {
	Id        []byte
	Parents   [][]byte
	Payloads  []payload.DebugView
	Signer    []byte
	Signature []byte
}

// DebugJSON renders b for logging and test failure output.
func (b Block) DebugJSON(cs *crypto.Scheme) ([]byte, error) {
	id, err := b.Id(cs)
	if err != nil {
		return nil, err
	}
	parents := make([][]byte, len(b.Parents))
	for i, p := range b.Parents {
		parents[i] = p.Bytes()
	}
	payloads := make([]payload.DebugView, len(b.Payloads))
	for i, p := range b.Payloads {
		v, err := payload.Describe(cs, p)
		if err != nil {
			return nil, err
		}
		payloads[i] = v
	}
	return json.Marshal(blockDebugView{
		Id:        id.Bytes(),
		Parents:   parents,
		Payloads:  payloads,
		Signer:    b.Signer.Bytes(),
		Signature: b.Signature,
	})
}
