package metadata

import (
	"strconv"

	"github.com/pkg/errors"
)

// node is the canonical textual encoding's syntax tree (spec §4.3): either
// an atom (a length-prefixed byte string, "<len>:<bytes>") or a list of
// nodes wrapped in parentheses. This mirrors a minimal S-expression grammar;
// it exists purely to give the metadata codec a canonical, unambiguous
// framing that is immune to delimiter characters appearing inside names or
// digests.
type node struct {
	atom     []byte
	list     []node
	isAtom   bool
}

func atomNode(b []byte) node {
	return node{atom: b, isAtom: true}
}

func listNode(children ...node) node {
	return node{list: children}
}

// encode renders a node tree into its canonical textual form.
func encode(n node) []byte {
	if n.isAtom {
		return []byte(strconv.Itoa(len(n.atom)) + ":" + string(n.atom))
	}
	out := []byte("(")
	for _, child := range n.list {
		out = append(out, encode(child)...)
	}
	out = append(out, ')')
	return out
}

// sexpParser walks canonical textual form input left to right, without
// backtracking, matching the grammar's unambiguous length-prefixed framing.
type sexpParser struct {
	data []byte
	pos  int
}

func parseNode(data []byte) (node, error) {
	p := &sexpParser{data: data}
	n, err := p.parse()
	if err != nil {
		return node{}, err
	}
	if p.pos != len(p.data) {
		return node{}, errors.New("trailing data after top-level record")
	}
	return n, nil
}

func (p *sexpParser) parse() (node, error) {
	if p.pos >= len(p.data) {
		return node{}, errors.New("unexpected end of input")
	}
	switch p.data[p.pos] {
	case '(':
		p.pos++
		var children []node
		for {
			if p.pos >= len(p.data) {
				return node{}, errors.New("unterminated list")
			}
			if p.data[p.pos] == ')' {
				p.pos++
				return listNode(children...), nil
			}
			child, err := p.parse()
			if err != nil {
				return node{}, err
			}
			children = append(children, child)
		}
	default:
		return p.parseAtom()
	}
}

func (p *sexpParser) parseAtom() (node, error) {
	start := p.pos
	for p.pos < len(p.data) && p.data[p.pos] != ':' {
		if p.data[p.pos] < '0' || p.data[p.pos] > '9' {
			return node{}, errors.Errorf("invalid length prefix at offset %d", start)
		}
		p.pos++
	}
	if p.pos >= len(p.data) {
		return node{}, errors.New("missing ':' after length prefix")
	}
	length, err := strconv.Atoi(string(p.data[start:p.pos]))
	if err != nil {
		return node{}, errors.Wrap(err, "invalid length prefix")
	}
	p.pos++ // skip ':'
	if p.pos+length > len(p.data) {
		return node{}, errors.New("atom length exceeds remaining input")
	}
	value := p.data[p.pos : p.pos+length]
	p.pos += length
	return atomNode(value), nil
}
