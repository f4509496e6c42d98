// Package rng implements shared, verifiable randomness (spec §4.4): a named
// Rng backed by a dice-notation spec string, collective entropy masks, and
// per-party reveal shares, producing a deterministic value once every
// current party has revealed.
//
// The spec grammar (spec §6) is parsed by hand, in the small
// recursive-descent style the teacher's config/DSL readers favor over a
// parser-generator dependency: `spec = expr ; expr = term (('+'|'-') term)* ;
// term = dice | constant ; dice = nonzero 'd' nonzero ; constant = '0' |
// [1-9][0-9]* ; nonzero = [1-9][0-9]*`.
package rng

import (
	"strconv"
	"strings"

	"github.com/rmartinho/pbmx/xerr"
)

// term is one parsed term of a spec: either a plain constant, or n
// independent uniform draws from [1, m] ("n d m").
type term struct {
	sign    int
	dice    bool
	n, m    int // dice: count and die size
	literal int // constant: the literal value
}

// Spec is a parsed random-value expression: a signed sum of terms, each
// either a literal constant or a dice roll.
type Spec struct {
	source string
	terms  []term
}

// String returns the original spec string the Spec was parsed from.
func (s Spec) String() string { return s.source }

// Canonical reconstructs the spec from its parsed terms, a normalized form
// alongside the verbatim source string String returns.
func (s Spec) Canonical() string { return describeTerms(s.terms) }

// Range returns the inclusive [min, max] integer range the spec can produce.
func (s Spec) Range() (min, max int64) {
	for _, t := range s.terms {
		var lo, hi int64
		if t.dice {
			lo, hi = int64(t.n), int64(t.n)*int64(t.m)
		} else {
			lo, hi = int64(t.literal), int64(t.literal)
		}
		if t.sign < 0 {
			lo, hi = -hi, -lo
		}
		min += lo
		max += hi
	}
	return min, max
}

// Parse parses a spec string per spec §6's grammar, returning a
// SpecParseError on any syntactic violation.
func Parse(src string) (Spec, error) {
	p := &specParser{src: src}
	p.skipSpace()
	terms, err := p.expr()
	if err != nil {
		return Spec{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Spec{}, xerr.New(xerr.SpecParseError, "random spec %q: unexpected trailing input at offset %d", src, p.pos)
	}
	return Spec{source: src, terms: terms}, nil
}

type specParser struct {
	src string
	pos int
}

func (p *specParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *specParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// expr = term (('+'|'-') term)*
func (p *specParser) expr() ([]term, error) {
	first, err := p.term(1)
	if err != nil {
		return nil, err
	}
	terms := []term{first}
	for {
		p.skipSpace()
		c := p.peek()
		if c != '+' && c != '-' {
			break
		}
		sign := 1
		if c == '-' {
			sign = -1
		}
		p.pos++
		p.skipSpace()
		t, err := p.term(sign)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, nil
}

// term = dice | constant, both unsigned; sign carries the leading operator
// (or +1 for the first term).
func (p *specParser) term(sign int) (term, error) {
	start := p.pos
	n, err := p.unsignedInt()
	if err != nil {
		return term{}, err
	}
	if p.peek() == 'd' {
		p.pos++
		m, err := p.nonzeroInt()
		if err != nil {
			return term{}, err
		}
		if n == 0 {
			return term{}, xerr.New(xerr.SpecParseError, "random spec %q: dice count must be nonzero at offset %d", p.src, start)
		}
		return term{sign: sign, dice: true, n: n, m: m}, nil
	}
	return term{sign: sign, literal: n}, nil
}

// unsignedInt = '0' | [1-9][0-9]*
func (p *specParser) unsignedInt() (int, error) {
	start := p.pos
	if p.peek() == '0' {
		p.pos++
		return 0, nil
	}
	return p.nonzeroIntFrom(start)
}

// nonzeroInt = [1-9][0-9]*
func (p *specParser) nonzeroInt() (int, error) {
	return p.nonzeroIntFrom(p.pos)
}

func (p *specParser) nonzeroIntFrom(start int) (int, error) {
	if p.peek() < '1' || p.peek() > '9' {
		return 0, xerr.New(xerr.SpecParseError, "random spec %q: expected digit at offset %d", p.src, p.pos)
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	v, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return 0, xerr.Wrap(xerr.SpecParseError, err, "random spec %q: invalid integer", p.src)
	}
	return v, nil
}

// describeTerms reconstructs a canonical rendering of terms for Canonical;
// it is never used for hashing.
func describeTerms(terms []term) string {
	var b strings.Builder
	for i, t := range terms {
		if i > 0 || t.sign < 0 {
			if t.sign < 0 {
				b.WriteByte('-')
			} else {
				b.WriteByte('+')
			}
		}
		if t.dice {
			b.WriteString(strconv.Itoa(t.n))
			b.WriteByte('d')
			b.WriteString(strconv.Itoa(t.m))
		} else {
			b.WriteString(strconv.Itoa(t.literal))
		}
	}
	return b.String()
}
