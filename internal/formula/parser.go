package formula

import (
	"fmt"
	"strconv"
)

const (
	// MaxSourceLength bounds formula source size in bytes.
	MaxSourceLength = 4096
	// MaxDepth bounds expression nesting.
	MaxDepth = 64
)

// binary operator precedence; higher binds tighter.
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

// Expression is a parsed formula, safe for concurrent evaluation.
type Expression struct {
	src  string
	root node
	refs []string
}

// Parse parses src into an Expression.
func Parse(src string) (*Expression, error) {
	if len(src) > MaxSourceLength {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooComplex, len(src), MaxSourceLength)
	}

	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	if p.peek().kind == tokEOF {
		return nil, &SyntaxError{Pos: 0, Msg: "empty expression"}
	}

	root, err := p.parseExpr(1, 0)
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.text)}
	}

	return &Expression{
		src:  src,
		root: root,
		refs: collectRefs(root, map[string]bool{}, nil),
	}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(src string) *Expression {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}

	return e
}

// Source returns the original formula text.
func (e *Expression) Source() string { return e.src }

// String returns the fully parenthesized canonical form.
func (e *Expression) String() string { return e.root.String() }

// Refs returns the distinct names the expression reads, in source order.
func (e *Expression) Refs() []string {
	return append([]string(nil), e.refs...)
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}

	return tok
}

// parseExpr is precedence climbing over binary operators of at least minPrec.
func (p *parser) parseExpr(minPrec, depth int) (node, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrTooComplex, MaxDepth)
	}

	left, err := p.parseUnary(depth)
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.kind != tokOp {
			return left, nil
		}

		prec, ok := precedence[tok.text]
		if !ok || prec < minPrec {
			return left, nil
		}

		p.advance()

		right, err := p.parseExpr(prec+1, depth+1)
		if err != nil {
			return nil, err
		}

		left = binaryExpr{op: tok.text, l: left, r: right}
	}
}

func (p *parser) parseUnary(depth int) (node, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrTooComplex, MaxDepth)
	}

	tok := p.peek()
	if tok.kind == tokOp && (tok.text == "-" || tok.text == "!" || tok.text == "+") {
		p.advance()

		x, err := p.parseUnary(depth + 1)
		if err != nil {
			return nil, err
		}

		return unaryExpr{op: tok.text, x: x}, nil
	}

	return p.parsePrimary(depth)
}

func (p *parser) parsePrimary(depth int) (node, error) {
	tok := p.advance()

	switch tok.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, &SyntaxError{Pos: tok.pos, Msg: "invalid number " + tok.text}
		}

		return numberLit{val: v}, nil
	case tokString:
		return stringLit{val: tok.text}, nil
	case tokField:
		return fieldRef{name: tok.text}, nil
	case tokIdent:
		switch tok.text {
		case "true":
			return boolLit{val: true}, nil
		case "false":
			return boolLit{val: false}, nil
		case "null", "undefined":
			return nullLit{}, nil
		}

		if p.peek().kind == tokLParen {
			return p.parseCall(tok, depth)
		}

		return fieldRef{name: tok.text}, nil
	case tokLParen:
		inner, err := p.parseExpr(1, depth+1)
		if err != nil {
			return nil, err
		}

		if closing := p.advance(); closing.kind != tokRParen {
			return nil, &SyntaxError{Pos: closing.pos, Msg: "expected )"}
		}

		return inner, nil
	case tokEOF:
		return nil, &SyntaxError{Pos: tok.pos, Msg: "unexpected end of expression"}
	default:
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.text)}
	}
}

func (p *parser) parseCall(name token, depth int) (node, error) {
	if _, ok := builtins[name.text]; !ok {
		return nil, &SyntaxError{Pos: name.pos, Msg: fmt.Sprintf("%v %q", ErrUnknownFunction, name.text)}
	}

	p.advance() // (

	var args []node

	if p.peek().kind == tokRParen {
		p.advance()

		if err := checkArity(name.text, 0); err != nil {
			return nil, &SyntaxError{Pos: name.pos, Msg: err.Error()}
		}

		return callExpr{name: name.text}, nil
	}

	for {
		arg, err := p.parseExpr(1, depth+1)
		if err != nil {
			return nil, err
		}

		args = append(args, arg)

		tok := p.advance()
		switch tok.kind {
		case tokComma:
			continue
		case tokRParen:
			if err := checkArity(name.text, len(args)); err != nil {
				return nil, &SyntaxError{Pos: name.pos, Msg: err.Error()}
			}

			return callExpr{name: name.text, args: args}, nil
		default:
			return nil, &SyntaxError{Pos: tok.pos, Msg: "expected , or )"}
		}
	}
}
