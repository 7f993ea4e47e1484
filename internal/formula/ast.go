package formula

import (
	"strconv"
	"strings"
)

// node is an expression tree node.
type node interface {
	String() string
}

type numberLit struct{ val float64 }

type stringLit struct{ val string }

type boolLit struct{ val bool }

type nullLit struct{}

// fieldRef reads a bound field value or named constant.
type fieldRef struct{ name string }

type unaryExpr struct {
	op string
	x  node
}

type binaryExpr struct {
	op   string
	l, r node
}

type callExpr struct {
	name string
	args []node
}

func (n numberLit) String() string { return strconv.FormatFloat(n.val, 'g', -1, 64) }
func (n stringLit) String() string { return strconv.Quote(n.val) }
func (n boolLit) String() string   { return strconv.FormatBool(n.val) }
func (nullLit) String() string     { return "null" }

func (n fieldRef) String() string {
	if isPlainIdent(n.name) {
		return n.name
	}

	return "[" + n.name + "]"
}

func (n unaryExpr) String() string { return n.op + n.x.String() }

func (n binaryExpr) String() string {
	return "(" + n.l.String() + " " + n.op + " " + n.r.String() + ")"
}

func (n callExpr) String() string {
	args := make([]string, len(n.args))
	for i, a := range n.args {
		args[i] = a.String()
	}

	return n.name + "(" + strings.Join(args, ", ") + ")"
}

func isPlainIdent(s string) bool {
	for i, r := range s {
		if i == 0 && !isIdentStart(r) {
			return false
		}

		if !isIdentPart(r) {
			return false
		}
	}

	return s != "" && !isKeyword(s)
}

func isKeyword(s string) bool {
	return s == "true" || s == "false" || s == "null"
}

// collectRefs appends every field reference under n, in source order.
func collectRefs(n node, seen map[string]bool, out []string) []string {
	switch t := n.(type) {
	case fieldRef:
		if !seen[t.name] {
			seen[t.name] = true
			out = append(out, t.name)
		}
	case unaryExpr:
		out = collectRefs(t.x, seen, out)
	case binaryExpr:
		out = collectRefs(t.l, seen, out)
		out = collectRefs(t.r, seen, out)
	case callExpr:
		for _, a := range t.args {
			out = collectRefs(a, seen, out)
		}
	}

	return out
}
