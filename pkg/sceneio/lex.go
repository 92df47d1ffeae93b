package sceneio

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenString
	tokenNumber
	tokenPath
	tokenAsset
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenLBrace
	tokenRBrace
	tokenEq
	tokenComma
	tokenColon
	tokenSemicolon
)

type token struct {
	kind tokenKind
	raw  string
	line int
}

func (t token) String() string {
	if t.kind == tokenEOF {
		return "end of file"
	}
	return strconv.Quote(t.raw)
}

// tokenize splits USDA text into tokens. Comments run from '#' to the end
// of the line, so the "#usda 1.0" header disappears here.
func tokenize(input string) ([]token, error) {
	var tokens []token
	i, line := 0, 1

	emit := func(kind tokenKind, raw string) {
		tokens = append(tokens, token{kind: kind, raw: raw, line: line})
	}

	for i < len(input) {
		ch := input[i]
		switch {
		case ch == '\n':
			line++
			i++
			continue
		case ch == ' ' || ch == '\t' || ch == '\r':
			i++
			continue
		case ch == '#':
			for i < len(input) && input[i] != '\n' {
				i++
			}
			continue
		}

		switch ch {
		case '(':
			emit(tokenLParen, "(")
			i++
		case ')':
			emit(tokenRParen, ")")
			i++
		case '[':
			emit(tokenLBracket, "[")
			i++
		case ']':
			emit(tokenRBracket, "]")
			i++
		case '{':
			emit(tokenLBrace, "{")
			i++
		case '}':
			emit(tokenRBrace, "}")
			i++
		case '=':
			emit(tokenEq, "=")
			i++
		case ',':
			emit(tokenComma, ",")
			i++
		case ':':
			emit(tokenColon, ":")
			i++
		case ';':
			emit(tokenSemicolon, ";")
			i++
		case '<':
			end := strings.IndexByte(input[i:], '>')
			if end < 0 {
				return nil, fmt.Errorf("line %d: unterminated path", line)
			}
			emit(tokenPath, input[i+1:i+end])
			i += end + 1
		case '@':
			end := strings.IndexByte(input[i+1:], '@')
			if end < 0 {
				return nil, fmt.Errorf("line %d: unterminated asset path", line)
			}
			emit(tokenAsset, input[i+1:i+1+end])
			i += end + 2
		case '"', '\'':
			start := line
			s, n, err := scanString(input[i:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", start, err)
			}
			tokens = append(tokens, token{kind: tokenString, raw: s, line: start})
			line += strings.Count(input[i:i+n], "\n")
			i += n
		default:
			start := i
			for i < len(input) && isWordByte(input[i]) {
				if input[i] == ':' && (i+1 == len(input) || !isWordByte(input[i+1])) {
					break
				}
				i++
			}
			if i == start {
				return nil, fmt.Errorf("line %d: unexpected character %q", line, ch)
			}
			raw := input[start:i]
			if looksLikeNumber(raw) {
				emit(tokenNumber, raw)
			} else {
				emit(tokenIdent, raw)
			}
		}
	}
	emit(tokenEOF, "")
	return tokens, nil
}

// scanString reads a single, double or triple quoted string at the start of
// s and returns its value and the number of bytes consumed.
func scanString(s string) (string, int, error) {
	quote := s[:1]
	if len(s) >= 3 && s[:3] == strings.Repeat(quote, 3) {
		end := strings.Index(s[3:], s[:3])
		if end < 0 {
			return "", 0, fmt.Errorf("unterminated string")
		}
		return s[3 : 3+end], end + 6, nil
	}
	escaped := false
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '\n':
			return "", 0, fmt.Errorf("newline in string")
		case c == s[0]:
			body := s[1:i]
			if s[0] == '\'' {
				body = strings.ReplaceAll(body, `"`, `\"`)
				body = strings.ReplaceAll(body, `\'`, `'`)
			}
			v, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return "", 0, fmt.Errorf("invalid string literal: %w", err)
			}
			return v, i + 1, nil
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

// Identifiers carry namespace separators and property suffixes, as in
// "xformOp:rotateXYZ" or "points.timeSamples". A colon directly followed by
// whitespace is a dictionary separator and is emitted on its own.
func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '.' || c == ':' || c == '-' || c == '+' || c == '!'
}

func looksLikeNumber(raw string) bool {
	ch := raw[0]
	if ch == '-' || ch == '+' || ch == '.' {
		if len(raw) == 1 {
			return false
		}
		ch = raw[1]
		if ch == '.' && len(raw) > 2 {
			ch = raw[2]
		}
	}
	return (ch >= '0' && ch <= '9') || raw == "inf" || raw == "-inf" || raw == "nan"
}
