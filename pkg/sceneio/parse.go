package sceneio

import (
	"fmt"
	"strconv"
)

type valueKind int

const (
	valueNumber valueKind = iota
	valueString
	valueToken
	valuePath
	valueAsset
	valueTuple
	valueArray
	valueSamples
	valueSkipped
)

// value is a parsed USDA attribute or metadata value. Dictionaries are
// consumed but not retained. A time-sample dictionary keeps only its
// earliest sample, as the single item of a valueSamples value.
type value struct {
	kind  valueKind
	num   float64
	text  string
	items []value
}

// layer is the parsed content of one .usda file.
type layer struct {
	metadata map[string]value
	prims    []*prim
}

// prim is one def/over/class block with its resolved attributes.
type prim struct {
	specifier string
	typeName  string
	name      string
	line      int
	attrs     map[string]value
	children  []*prim
}

type tokenStream struct {
	tokens []token
	pos    int
}

func (s *tokenStream) peek() token {
	return s.tokens[s.pos]
}

func (s *tokenStream) next() token {
	t := s.tokens[s.pos]
	if t.kind != tokenEOF {
		s.pos++
	}
	return t
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.peek().kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) expect(kind tokenKind, what string) (token, error) {
	t := s.peek()
	if t.kind != kind {
		return t, fmt.Errorf("line %d: expected %s, got %s", t.line, what, t)
	}
	s.pos++
	return t, nil
}

func isSpecifier(t token) bool {
	return t.kind == tokenIdent && (t.raw == "def" || t.raw == "over" || t.raw == "class")
}

// parseLayer parses a complete USDA document.
func parseLayer(src string) (*layer, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	stream := &tokenStream{tokens: tokens}
	l := &layer{metadata: map[string]value{}}

	if stream.peek().kind == tokenLParen {
		if err := parseMetadata(stream, l.metadata); err != nil {
			return nil, err
		}
	}
	for stream.peek().kind != tokenEOF {
		t := stream.peek()
		if !isSpecifier(t) {
			return nil, fmt.Errorf("line %d: expected prim definition, got %s", t.line, t)
		}
		p, err := parsePrim(stream)
		if err != nil {
			return nil, err
		}
		l.prims = append(l.prims, p)
	}
	return l, nil
}

// parseMetadata reads "( key = value ... )". Keys may be prefixed with a
// list-edit verb (prepend, append, delete, add, reorder). Bare strings are
// documentation and dropped.
func parseMetadata(stream *tokenStream, into map[string]value) error {
	if _, err := stream.expect(tokenLParen, "'('"); err != nil {
		return err
	}
	for !stream.match(tokenRParen) {
		t := stream.next()
		switch t.kind {
		case tokenEOF:
			return fmt.Errorf("line %d: unterminated metadata", t.line)
		case tokenString, tokenPath, tokenSemicolon:
			continue
		case tokenIdent:
			key := t.raw
			switch key {
			case "prepend", "append", "delete", "add", "reorder":
				k, err := stream.expect(tokenIdent, "metadata key")
				if err != nil {
					return err
				}
				key = k.raw
			}
			if !stream.match(tokenEq) {
				continue
			}
			v, err := parseValue(stream)
			if err != nil {
				return err
			}
			if into != nil {
				into[key] = v
			}
		default:
			return fmt.Errorf("line %d: unexpected %s in metadata", t.line, t)
		}
	}
	return nil
}

func parsePrim(stream *tokenStream) (*prim, error) {
	spec := stream.next()
	p := &prim{specifier: spec.raw, line: spec.line, attrs: map[string]value{}}
	if stream.peek().kind == tokenIdent {
		p.typeName = stream.next().raw
	}
	name, err := stream.expect(tokenString, "prim name")
	if err != nil {
		return nil, err
	}
	p.name = name.raw
	if stream.peek().kind == tokenLParen {
		if err := parseMetadata(stream, nil); err != nil {
			return nil, err
		}
	}
	if _, err := stream.expect(tokenLBrace, "'{'"); err != nil {
		return nil, err
	}
	for !stream.match(tokenRBrace) {
		t := stream.peek()
		switch {
		case t.kind == tokenEOF:
			return nil, fmt.Errorf("line %d: prim %q is not closed", p.line, p.name)
		case t.kind == tokenSemicolon:
			stream.next()
		case isSpecifier(t):
			child, err := parsePrim(stream)
			if err != nil {
				return nil, err
			}
			p.children = append(p.children, child)
		case t.kind == tokenIdent && t.raw == "variantSet":
			if err := skipVariantSet(stream); err != nil {
				return nil, err
			}
		case t.kind == tokenIdent:
			if err := parseProperty(stream, p); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("line %d: unexpected %s in prim %q", t.line, t, p.name)
		}
	}
	return p, nil
}

// parseProperty reads an attribute or relationship declaration such as
// "uniform token[] xformOpOrder = [...]" or "rel material:binding = </M>".
// The property name is the last identifier before '=' or the end of the
// declaration line.
func parseProperty(stream *tokenStream, p *prim) error {
	first := stream.peek()
	var name string
	for {
		t := stream.peek()
		if t.kind == tokenIdent && t.line == first.line {
			name = stream.next().raw
			continue
		}
		if t.kind == tokenLBracket && t.line == first.line && stream.tokens[stream.pos+1].kind == tokenRBracket {
			// array type suffix
			stream.pos += 2
			continue
		}
		break
	}
	if stream.match(tokenEq) {
		v, err := parseValue(stream)
		if err != nil {
			return err
		}
		p.attrs[name] = v
	}
	if stream.peek().kind == tokenLParen {
		return parseMetadata(stream, nil)
	}
	return nil
}

func skipVariantSet(stream *tokenStream) error {
	stream.next()
	if _, err := stream.expect(tokenString, "variant set name"); err != nil {
		return err
	}
	if _, err := stream.expect(tokenEq, "'='"); err != nil {
		return err
	}
	t := stream.peek()
	if t.kind != tokenLBrace {
		return fmt.Errorf("line %d: expected '{', got %s", t.line, t)
	}
	return skipBalanced(stream)
}

// skipBalanced consumes a bracketed group starting at the current token.
func skipBalanced(stream *tokenStream) error {
	open := stream.next()
	depth := 1
	for depth > 0 {
		t := stream.next()
		switch t.kind {
		case tokenEOF:
			return fmt.Errorf("line %d: unbalanced %s", open.line, open)
		case tokenLParen, tokenLBracket, tokenLBrace:
			depth++
		case tokenRParen, tokenRBracket, tokenRBrace:
			depth--
		}
	}
	return nil
}

func parseValue(stream *tokenStream) (value, error) {
	t := stream.peek()
	switch t.kind {
	case tokenNumber:
		stream.next()
		f, err := strconv.ParseFloat(t.raw, 64)
		if err != nil {
			return value{}, fmt.Errorf("line %d: invalid number %q", t.line, t.raw)
		}
		return value{kind: valueNumber, num: f}, nil
	case tokenString:
		stream.next()
		return value{kind: valueString, text: t.raw}, nil
	case tokenIdent:
		stream.next()
		return value{kind: valueToken, text: t.raw}, nil
	case tokenPath:
		stream.next()
		return value{kind: valuePath, text: t.raw}, nil
	case tokenAsset:
		stream.next()
		return value{kind: valueAsset, text: t.raw}, nil
	case tokenLParen:
		items, err := parseList(stream, tokenRParen)
		return value{kind: valueTuple, items: items}, err
	case tokenLBracket:
		items, err := parseList(stream, tokenRBracket)
		return value{kind: valueArray, items: items}, err
	case tokenLBrace:
		if stream.tokens[stream.pos+1].kind == tokenNumber || stream.tokens[stream.pos+1].kind == tokenRBrace {
			return parseTimeSamples(stream)
		}
		return value{kind: valueSkipped}, skipBalanced(stream)
	default:
		return value{}, fmt.Errorf("line %d: expected value, got %s", t.line, t)
	}
}

// parseTimeSamples reads "{ 0: (0, 0, 1), 24: (0, 0, 2), }".
func parseTimeSamples(stream *tokenStream) (value, error) {
	stream.next()
	out := value{kind: valueSamples}
	earliest := 0.0
	for !stream.match(tokenRBrace) {
		t, err := stream.expect(tokenNumber, "sample time")
		if err != nil {
			return value{}, err
		}
		at, err := strconv.ParseFloat(t.raw, 64)
		if err != nil {
			return value{}, fmt.Errorf("line %d: invalid sample time %q", t.line, t.raw)
		}
		if _, err := stream.expect(tokenColon, "':'"); err != nil {
			return value{}, err
		}
		v, err := parseValue(stream)
		if err != nil {
			return value{}, err
		}
		if len(out.items) == 0 || at < earliest {
			out.items = []value{v}
			earliest = at
		}
		if !stream.match(tokenComma) {
			if _, err := stream.expect(tokenRBrace, "'}'"); err != nil {
				return value{}, err
			}
			break
		}
	}
	return out, nil
}

func parseList(stream *tokenStream, closer tokenKind) ([]value, error) {
	stream.next()
	var items []value
	for {
		if stream.match(closer) {
			return items, nil
		}
		v, err := parseValue(stream)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		if stream.match(closer) {
			return items, nil
		}
		if _, err := stream.expect(tokenComma, "','"); err != nil {
			return nil, err
		}
	}
}
