package stack

import (
	json "github.com/nikkolasg/hexjson"
	"github.com/rmartinho/pbmx/crypto"
)

// stackDebugView is the hex-rendered shape of a Stack for log lines and
// test failure output -- never the canonical encoding Id/Encode produce.
type stackDebugView struct {
	Id  []byte
	C1s [][]byte
	C2s [][]byte
}

// DebugJSON renders s for logging and test failure output.
func (s Stack) DebugJSON(cs *crypto.Scheme) ([]byte, error) {
	id, err := s.Id(cs)
	if err != nil {
		return nil, err
	}
	c1s := make([][]byte, s.Len())
	c2s := make([][]byte, s.Len())
	for i, m := range s.Masks {
		c1, err := cs.EncodePoint(m.C1)
		if err != nil {
			return nil, err
		}
		c2, err := cs.EncodePoint(m.C2)
		if err != nil {
			return nil, err
		}
		c1s[i], c2s[i] = c1, c2
	}
	return json.Marshal(stackDebugView{Id: id.Bytes(), C1s: c1s, C2s: c2s})
}
