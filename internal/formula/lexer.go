package formula

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokField
	tokLParen
	tokRParen
	tokComma
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// operators ordered longest first so "===" wins over "==" and "=".
var operators = []string{"===", "!==", "==", "!=", "<=", ">=", "&&", "||", "+", "-", "*", "/", "%", "<", ">", "!"}

// canonicalOp folds JavaScript-style strict operators onto their plain forms.
func canonicalOp(op string) string {
	switch op {
	case "===":
		return "=="
	case "!==":
		return "!="
	default:
		return op
	}
}

type lexer struct {
	src    string
	pos    int
	tokens []token
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src}

	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}

		lx.tokens = append(lx.tokens, tok)
		if tok.kind == tokEOF {
			return lx.tokens, nil
		}
	}
}

func (lx *lexer) next() (token, error) {
	lx.skipSpace()

	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, pos: lx.pos}, nil
	}

	start := lx.pos
	c := lx.src[lx.pos]

	switch {
	case c == '(':
		lx.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case c == ')':
		lx.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case c == ',':
		lx.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case c == '"' || c == '\'':
		return lx.lexString(c)
	case c == '[':
		return lx.lexField()
	case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
		return lx.lexNumber()
	}

	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
	if isIdentStart(r) {
		return lx.lexIdent(), nil
	}

	for _, op := range operators {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.pos += len(op)
			return token{kind: tokOp, text: canonicalOp(op), pos: start}, nil
		}
	}

	return token{}, &SyntaxError{Pos: start, Msg: "unexpected character " + string(r)}
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !unicode.IsSpace(r) {
			return
		}

		lx.pos += size
	}
}

func (lx *lexer) lexNumber() (token, error) {
	start := lx.pos
	seenDot, seenExp := false, false

	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		switch {
		case isDigit(c):
			lx.pos++
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
			lx.pos++
		case (c == 'e' || c == 'E') && !seenExp:
			seenExp = true
			lx.pos++

			if lx.pos < len(lx.src) && (lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-') {
				lx.pos++
			}

			if lx.pos >= len(lx.src) || !isDigit(lx.src[lx.pos]) {
				return token{}, &SyntaxError{Pos: start, Msg: "malformed exponent"}
			}
		default:
			return token{kind: tokNumber, text: lx.src[start:lx.pos], pos: start}, nil
		}
	}

	return token{kind: tokNumber, text: lx.src[start:lx.pos], pos: start}, nil
}

func (lx *lexer) lexString(quote byte) (token, error) {
	start := lx.pos
	lx.pos++

	var sb strings.Builder

	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		switch c {
		case quote:
			lx.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		case '\\':
			if lx.pos+1 >= len(lx.src) {
				return token{}, &SyntaxError{Pos: lx.pos, Msg: "unterminated escape"}
			}

			esc := lx.src[lx.pos+1]
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(esc)
			}

			lx.pos += 2
		default:
			sb.WriteByte(c)
			lx.pos++
		}
	}

	return token{}, &SyntaxError{Pos: start, Msg: "unterminated string"}
}

func (lx *lexer) lexField() (token, error) {
	start := lx.pos

	end := strings.IndexByte(lx.src[start+1:], ']')
	if end < 0 {
		return token{}, &SyntaxError{Pos: start, Msg: "unterminated field reference"}
	}

	name := strings.TrimSpace(lx.src[start+1 : start+1+end])
	if name == "" {
		return token{}, &SyntaxError{Pos: start, Msg: "empty field reference"}
	}

	lx.pos = start + end + 2

	return token{kind: tokField, text: name, pos: start}, nil
}

func (lx *lexer) lexIdent() token {
	start := lx.pos

	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !isIdentPart(r) {
			break
		}

		lx.pos += size
	}

	return token{kind: tokIdent, text: lx.src[start:lx.pos], pos: start}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
