package session

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/rmartinho/pbmx/crypto"
	"github.com/rmartinho/pbmx/xerr"
)

// Descriptor is a local, pre-chain convenience record (spec §4.6's
// "(added)"): an expected party roster and a menu of named Rng specs a
// collaborator can hand to Bootstrap to start a fresh Session without
// retyping spec grammar strings. It is never part of the wire contract --
// purely local configuration, the same role the teacher's key.Group TOML
// file plays before a DKG has produced a distributed key.
type Descriptor struct {
	Name            string            `toml:"name"`
	ExpectedParties []string          `toml:"expected_parties"`
	RngSpecs        map[string]string `toml:"rng_specs"`
}

// LoadDescriptor reads a Descriptor from a TOML file, mirroring the
// teacher's toml.DecodeFile usage for its own group/key config files.
func LoadDescriptor(path string) (Descriptor, error) {
	var d Descriptor
	if _, err := toml.DecodeFile(path, &d); err != nil {
		return Descriptor{}, xerr.Wrap(xerr.Decoding, err, "decoding session descriptor %s", path)
	}
	return d, nil
}

// Save writes d to path as TOML.
func (d Descriptor) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return xerr.Wrap(xerr.Decoding, err, "creating session descriptor %s", path)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(d); err != nil {
		return xerr.Wrap(xerr.Decoding, err, "encoding session descriptor %s", path)
	}
	return nil
}

// Bootstrap returns a fresh Session carrying d's expected-party roster and
// Rng spec menu as local bookkeeping; none of it is chain state until the
// corresponding publish_key/random_spec payloads actually land on chain.
func (d Descriptor) Bootstrap(cs *crypto.Scheme) *Session {
	s := New(cs)
	s.expectedParties = append([]string{}, d.ExpectedParties...)
	s.rngMenu = make(map[string]string, len(d.RngSpecs))
	for name, spec := range d.RngSpecs {
		s.rngMenu[name] = spec
	}
	return s
}

// PartiesComplete reports whether every expected party name (from the
// bootstrap Descriptor, if any) has a matching published party.
func (s *Session) PartiesComplete() bool {
	if len(s.expectedParties) == 0 {
		return true
	}
	published := make(map[string]bool, len(s.partyNames))
	for _, name := range s.partyNames {
		published[name] = true
	}
	for _, want := range s.expectedParties {
		if !published[want] {
			return false
		}
	}
	return true
}

// RngSpecText looks up a named spec string from the bootstrap Descriptor's
// menu, sparing a caller from retyping the grammar by hand when building a
// random_spec payload.
func (s *Session) RngSpecText(name string) (string, bool) {
	text, ok := s.rngMenu[name]
	return text, ok
}
