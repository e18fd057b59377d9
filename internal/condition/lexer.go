package condition

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokDot
	tokEq
	tokNeq
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of expression"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokDot:
		return "'.'"
	case tokEq:
		return "'=='"
	case tokNeq:
		return "'!='"
	case tokAnd:
		return "'&&'"
	case tokOr:
		return "'||'"
	case tokNot:
		return "'!'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	}
	return "unknown token"
}

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// lex splits src into tokens, always ending with tokEOF
func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '.':
			tokens = append(tokens, token{kind: tokDot, pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, pos: i})
			i++
		case c == '=':
			if i+1 < len(src) && src[i+1] == '=' {
				// "===" is accepted as a spelling of "=="
				width := 2
				if i+2 < len(src) && src[i+2] == '=' {
					width = 3
				}
				tokens = append(tokens, token{kind: tokEq, pos: i})
				i += width
				continue
			}
			return nil, fmt.Errorf("unexpected '=' at offset %d", i)
		case c == '!':
			if i+1 < len(src) && src[i+1] == '=' {
				width := 2
				if i+2 < len(src) && src[i+2] == '=' {
					width = 3
				}
				tokens = append(tokens, token{kind: tokNeq, pos: i})
				i += width
				continue
			}
			tokens = append(tokens, token{kind: tokNot, pos: i})
			i++
		case c == '&':
			if i+1 < len(src) && src[i+1] == '&' {
				tokens = append(tokens, token{kind: tokAnd, pos: i})
				i += 2
				continue
			}
			return nil, fmt.Errorf("unexpected '&' at offset %d", i)
		case c == '|':
			if i+1 < len(src) && src[i+1] == '|' {
				tokens = append(tokens, token{kind: tokOr, pos: i})
				i += 2
				continue
			}
			return nil, fmt.Errorf("unexpected '|' at offset %d", i)
		case c == '\'' || c == '"':
			text, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, text: text, pos: i})
			i = next
		case c == '-' || isDigit(c):
			start := i
			i++
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			text := src[start:i]
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q at offset %d", text, start)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, num: num, pos: start})
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: src[start:i], pos: start})
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(src)})
	return tokens, nil
}

// lexString reads a quoted literal starting at src[start] and returns the
// unescaped text and the offset just past the closing quote
func lexString(src string, start int) (string, int, error) {
	quote := src[start]
	var b strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\\':
			if i+1 >= len(src) {
				return "", 0, fmt.Errorf("unterminated escape at offset %d", i)
			}
			b.WriteByte(src[i+1])
			i += 2
		case c == quote:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string starting at offset %d", start)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
