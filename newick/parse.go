// Package newick parses and renders trees in the NEWICK textual format,
// including the BEAST-style annotation extension [&key=value,...].
//
// Parse produces a flat node list in post-order: children always precede
// their parent, and the root is the final node. The list form keeps parse
// output compact and lets the trees package encode it without walking an
// object graph.
//
// Supported beyond plain NEWICK:
//
//   - quoted labels with backslash escapes ('it''s' style quoting is not
//     recognised; use a backslash)
//   - bracket comments [...] which are skipped
//   - annotation blocks [&a=1,b={1,2},c="x y"] which accumulate per node
//   - internal node labels and an optional trailing semicolon
package newick

import (
	"strconv"
	"strings"

	"github.com/arloliu/treebank/errs"
)

// Attr is a single key=value annotation attached to a node.
type Attr struct {
	Key   string
	Value string
}

// Node is one parsed tree node.
//
// Sons holds indices into the same node slice; children always precede their
// parent (the parser emits post-order). A node with no sons is a tip.
type Node struct {
	// Taxon is the node label, empty when absent. Quoted labels keep their
	// quotes verbatim, matching the historical parser behaviour.
	Taxon string

	// Branch is the branch length above the node, nil when the input carries
	// none.
	Branch *float64

	// Sons are child indices into the parsed node slice, in input order.
	Sons []int

	// Attributes holds accumulated [&...] annotations in input order, nil
	// when the node carries none.
	Attributes []Attr
}

// Parse parses a single NEWICK tree. The trailing ';' is optional.
//
// The returned slice is in post-order: Sons of a node only reference earlier
// entries, and the last entry is the root. Errors are *errs.ParseError values
// carrying the byte offset of the failure.
func Parse(text string) ([]Node, error) {
	p := parser{src: text}

	nodes := make([]Node, 0, 16)
	if err := p.readSubTree(&nodes); err != nil {
		return nil, err
	}

	p.skipSpaces()
	if p.pos < len(p.src) && p.src[p.pos] == ';' {
		p.pos++
	}
	if p.pos != len(p.src) {
		return nil, errs.NewParseError(p.pos, errs.ErrExtraneousTrailing)
	}

	return nodes, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

// readSubTree consumes one subtree and appends its nodes to out, the subtree
// root last.
func (p *parser) readSubTree(out *[]Node) error {
	p.skipSpaces()
	if p.pos >= len(p.src) {
		return errs.NewParseError(p.pos, errs.ErrUnexpectedChar)
	}

	var node Node

	if p.src[p.pos] == '(' {
		for {
			p.pos++
			if err := p.readSubTree(out); err != nil {
				return err
			}
			node.Sons = append(node.Sons, len(*out)-1)

			p.skipSpaces()
			if p.pos >= len(p.src) {
				return errs.NewParseError(p.pos, errs.ErrUnexpectedChar)
			}
			if p.src[p.pos] == ',' {
				continue
			}
			if p.src[p.pos] == ')' {
				p.pos++
				break
			}

			return errs.NewParseError(p.pos, errs.ErrUnexpectedChar)
		}
	} else {
		taxon, err := p.readTip()
		if err != nil {
			return err
		}
		node.Taxon = taxon
	}

	if err := p.readSuffix(&node); err != nil {
		return err
	}

	*out = append(*out, node)

	return nil
}

// readTip consumes a terminal label: a quoted string (quotes kept verbatim)
// or a bareword running until whitespace or a structural character.
func (p *parser) readTip() (string, error) {
	start := p.pos
	c := p.src[p.pos]
	if c == '\'' || c == '"' {
		end, ok := scanQuoted(p.src, p.pos+1, c)
		if !ok {
			return "", errs.NewParseError(start, errs.ErrUnterminatedQuote)
		}
		p.pos = end + 1

		return p.src[start:p.pos], nil
	}

	for p.pos < len(p.src) && !isSpace(p.src[p.pos]) && !isStructural(p.src[p.pos]) {
		p.pos++
	}

	return p.src[start:p.pos], nil
}

// readSuffix consumes the optional label, ':'-prefixed branch length,
// annotation blocks and comments following a subtree or tip.
func (p *parser) readSuffix(node *Node) error {
	p.skipSpaces()

	var nodeTxt strings.Builder
	colonPos := -1

	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '(' || c == ')' || c == ',' || c == ';' {
			break
		}
		if c == '[' {
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '&' {
				blockStart := p.pos
				p.pos += 2
				attrs, err := p.parseAttributes(blockStart)
				if err != nil {
					return err
				}
				node.Attributes = append(node.Attributes, attrs...)
				p.skipSpaces()

				continue
			}

			// skip comment, a ']' inside needs escaping
			end, ok := scanQuoted(p.src, p.pos+1, ']')
			if !ok {
				return errs.NewParseError(p.pos, errs.ErrUnexpectedChar)
			}
			p.pos = end + 1

			continue
		}

		if c == ':' && colonPos < 0 {
			colonPos = p.pos
		}
		nodeTxt.WriteByte(c)
		p.pos++
	}

	return parseNodeText(nodeTxt.String(), colonPos, node)
}

// parseNodeText splits the accumulated suffix text into an optional label and
// an optional branch length after the first ':'.
func parseNodeText(txt string, colonPos int, node *Node) error {
	txt = strings.TrimLeft(txt, " \t\n\r")
	if len(txt) == 0 {
		return nil
	}

	i := strings.IndexByte(txt, ':')
	if i != 0 {
		k := i
		if k < 0 {
			k = len(txt)
		}
		node.Taxon = strings.TrimSpace(txt[:k])
	}
	if i < 0 {
		return nil
	}

	num := strings.TrimLeft(txt[i+1:], " \t\n\r")
	n := numberPrefix(num)
	if n == 0 {
		return errs.NewParseError(colonPos, errs.ErrBadNumber)
	}
	b, err := strconv.ParseFloat(num[:n], 64)
	if err != nil {
		return errs.NewParseError(colonPos, errs.ErrBadNumber)
	}
	node.Branch = &b

	// anything after the branch length (support values etc.) is ignored
	return nil
}

// parseAttributes consumes the body of an annotation block, leaving the
// position just past the closing ']'. blockStart is the offset of the opening
// '[' for error reporting.
func (p *parser) parseAttributes(blockStart int) ([]Attr, error) {
	var attrs []Attr

	for {
		if p.pos >= len(p.src) {
			return nil, errs.NewParseError(blockStart, errs.ErrUnexpectedChar)
		}
		if p.src[p.pos] == ']' {
			p.pos++
			return attrs, nil
		}
		if p.src[p.pos] == ',' {
			p.pos++
		}

		nameStart := p.pos
		nameEnd := indexBefore(p.src, p.pos, '=', ",]\"{}")
		if nameEnd < 0 {
			return nil, errs.NewParseError(blockStart, errs.ErrUnexpectedChar)
		}
		if p.src[nameEnd] != '=' {
			return nil, errs.NewParseError(nameStart, errs.ErrMissingEquals)
		}
		name := p.src[nameStart:nameEnd]
		p.pos = nameEnd + 1
		if p.pos >= len(p.src) {
			return nil, errs.NewParseError(blockStart, errs.ErrUnexpectedChar)
		}

		var value string
		switch p.src[p.pos] {
		case '"':
			end, ok := scanQuoted(p.src, p.pos+1, '"')
			if !ok {
				return nil, errs.NewParseError(p.pos, errs.ErrUnterminatedQuote)
			}
			value = p.src[p.pos+1 : end]
			p.pos = end + 1
		case '{':
			end, ok := scanQuoted(p.src, p.pos+1, '}')
			if !ok {
				return nil, errs.NewParseError(p.pos, errs.ErrUnterminatedQuote)
			}
			value = p.src[p.pos+1 : end]
			p.pos = end + 1
		default:
			end := indexBefore(p.src, p.pos, ',', "]")
			if end < 0 {
				return nil, errs.NewParseError(blockStart, errs.ErrUnexpectedChar)
			}
			value = p.src[p.pos:end]
			p.pos = end
		}

		attrs = append(attrs, Attr{
			Key:   strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
}

// scanQuoted returns the index of the closing sep at or after start, honouring
// backslash escapes. ok is false when no unescaped sep exists.
func scanQuoted(s string, start int, sep byte) (end int, ok bool) {
	for i := start; i < len(s); i++ {
		if s[i] == sep && (i == 0 || s[i-1] != '\\') {
			return i, true
		}
	}

	return 0, false
}

// indexBefore returns the index of the first ch or stopAt byte at or after
// start, whichever comes first, or -1 when end of input is reached first.
// When stopped, the returned index points at the stop byte.
func indexBefore(s string, start int, ch byte, stopAt string) int {
	for i := start; i < len(s); i++ {
		if s[i] == ch {
			return i
		}
		if strings.IndexByte(stopAt, s[i]) >= 0 {
			return i
		}
	}

	return -1
}

// numberPrefix returns the length of the leading run of characters that can
// appear in a floating point literal.
func numberPrefix(s string) int {
	n := 0
	for n < len(s) {
		c := s[n]
		if (c >= '0' && c <= '9') || c == '.' || c == '+' || c == '-' || c == 'e' || c == 'E' {
			n++
			continue
		}

		break
	}

	return n
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isStructural(c byte) bool {
	switch c {
	case ':', '[', ',', '(', ')', ']', ';':
		return true
	}

	return false
}
