package hostmem

import (
	"strings"

	"plcheck/internal/ident"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokQuotedIdent
	tokNumber
	tokString
	tokParam
	tokOp
	tokComma
	tokLParen
	tokRParen
	tokDot
	tokStar
)

type token struct {
	kind tokenKind
	// text is folded for plain identifiers, verbatim otherwise.
	text string
	// pos is the 1-based character offset of the token start.
	pos int
	// num is the parameter number for tokParam.
	num int
}

// lex splits a SQL fragment into tokens. Unknown bytes become operator
// tokens; the analyzer tolerates them.
func lex(s string) []token {
	var toks []token
	i := 0
	for i < len(s) {
		ch := s[i]
		start := i
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '-' && i+1 < len(s) && s[i+1] == '-':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case isIdentStart(ch):
			for i < len(s) && isIdentCont(s[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: ident.Fold(s[start:i]), pos: start + 1})
		case ch == '"':
			i++
			var b strings.Builder
			for i < len(s) {
				if s[i] == '"' {
					if i+1 < len(s) && s[i+1] == '"' {
						b.WriteByte('"')
						i += 2
						continue
					}
					i++
					break
				}
				b.WriteByte(s[i])
				i++
			}
			toks = append(toks, token{kind: tokQuotedIdent, text: b.String(), pos: start + 1})
		case ch == '\'':
			i++
			var b strings.Builder
			for i < len(s) {
				if s[i] == '\'' {
					if i+1 < len(s) && s[i+1] == '\'' {
						b.WriteByte('\'')
						i += 2
						continue
					}
					i++
					break
				}
				b.WriteByte(s[i])
				i++
			}
			toks = append(toks, token{kind: tokString, text: b.String(), pos: start + 1})
		case ch >= '0' && ch <= '9':
			for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: s[start:i], pos: start + 1})
		case ch == '$':
			i++
			n := 0
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				n = n*10 + int(s[i]-'0')
				i++
			}
			toks = append(toks, token{kind: tokParam, text: s[start:i], pos: start + 1, num: n})
		case ch == ',':
			i++
			toks = append(toks, token{kind: tokComma, text: ",", pos: start + 1})
		case ch == '(':
			i++
			toks = append(toks, token{kind: tokLParen, text: "(", pos: start + 1})
		case ch == ')':
			i++
			toks = append(toks, token{kind: tokRParen, text: ")", pos: start + 1})
		case ch == '.':
			i++
			toks = append(toks, token{kind: tokDot, text: ".", pos: start + 1})
		case ch == '*':
			i++
			toks = append(toks, token{kind: tokStar, text: "*", pos: start + 1})
		default:
			for i < len(s) && isOpByte(s[i]) {
				i++
			}
			if i == start {
				i++
			}
			toks = append(toks, token{kind: tokOp, text: s[start:i], pos: start + 1})
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(s) + 1})
	return toks
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

func isIdentCont(ch byte) bool {
	return isIdentStart(ch) || ch >= '0' && ch <= '9'
}

func isOpByte(ch byte) bool {
	switch ch {
	case '+', '-', '/', '<', '>', '=', '~', '!', '@', '#', '%', '^', '&', '|', '?':
		return true
	}
	return false
}
