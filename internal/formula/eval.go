package formula

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"schema-engine/internal/common"
)

// Env binds names for one evaluation. It is read-only during evaluation.
type Env struct {
	// Fields maps record keys to values. A key that is absent is undefined.
	Fields map[string]any
	// Constants are named values consulted after Fields.
	Constants map[string]any
}

func (env Env) lookup(name string) (any, error) {
	if v, ok := env.Fields[name]; ok {
		return normalize(v), nil
	}

	if v, ok := env.Constants[name]; ok {
		return normalize(v), nil
	}

	return nil, undefinedField(name)
}

// Eval evaluates the expression. The result is float64, string, bool or nil.
func (e *Expression) Eval(env Env) (any, error) {
	return eval(e.root, env)
}

// normalize maps record values onto the language's value domain.
func normalize(v any) any {
	if f, ok := common.ToFloat(v); ok {
		return f
	}

	switch t := v.(type) {
	case nil, string, bool:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}

func eval(n node, env Env) (any, error) {
	switch t := n.(type) {
	case numberLit:
		return t.val, nil
	case stringLit:
		return t.val, nil
	case boolLit:
		return t.val, nil
	case nullLit:
		return nil, nil
	case fieldRef:
		return env.lookup(t.name)
	case unaryExpr:
		return evalUnary(t, env)
	case binaryExpr:
		return evalBinary(t, env)
	case callExpr:
		return evalCall(t, env)
	default:
		return nil, fmt.Errorf("unsupported node %T", n)
	}
}

func evalUnary(n unaryExpr, env Env) (any, error) {
	x, err := eval(n.x, env)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "!":
		b, ok := x.(bool)
		if !ok {
			return nil, typeErrorf("! needs a boolean, got %s", typeName(x))
		}

		return !b, nil
	case "-", "+":
		f, ok := x.(float64)
		if !ok {
			return nil, typeErrorf("unary %s needs a number, got %s", n.op, typeName(x))
		}

		if n.op == "-" {
			return -f, nil
		}

		return f, nil
	default:
		return nil, fmt.Errorf("unsupported unary operator %q", n.op)
	}
}

func evalBinary(n binaryExpr, env Env) (any, error) {
	l, err := eval(n.l, env)
	if err != nil {
		return nil, err
	}

	// Logical operators short-circuit.
	if n.op == "&&" || n.op == "||" {
		lb, ok := l.(bool)
		if !ok {
			return nil, typeErrorf("%s needs booleans, got %s", n.op, typeName(l))
		}

		if (n.op == "&&" && !lb) || (n.op == "||" && lb) {
			return lb, nil
		}

		r, err := eval(n.r, env)
		if err != nil {
			return nil, err
		}

		rb, ok := r.(bool)
		if !ok {
			return nil, typeErrorf("%s needs booleans, got %s", n.op, typeName(r))
		}

		return rb, nil
	}

	r, err := eval(n.r, env)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return common.StrictEqual(l, r), nil
	case "!=":
		return !common.StrictEqual(l, r), nil
	case "+":
		ls, lStr := l.(string)
		rs, rStr := r.(string)

		if lStr || rStr {
			if !lStr {
				ls = FormatValue(l)
			}

			if !rStr {
				rs = FormatValue(r)
			}

			return ls + rs, nil
		}
	case "<", "<=", ">", ">=":
		return compare(n.op, l, r)
	}

	lf, lok := l.(float64)
	rf, rok := r.(float64)

	if !lok || !rok {
		return nil, typeErrorf("%s needs numbers, got %s and %s", n.op, typeName(l), typeName(r))
	}

	switch n.op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, ErrDivisionByZero
		}

		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, ErrDivisionByZero
		}

		return math.Mod(lf, rf), nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", n.op)
	}
}

func compare(op string, l, r any) (any, error) {
	var c int

	switch lv := l.(type) {
	case float64:
		rv, ok := r.(float64)
		if !ok {
			return nil, typeErrorf("cannot compare number with %s", typeName(r))
		}

		c = cmpFloat(lv, rv)
	case string:
		rv, ok := r.(string)
		if !ok {
			return nil, typeErrorf("cannot compare string with %s", typeName(r))
		}

		c = strings.Compare(lv, rv)
	default:
		return nil, typeErrorf("cannot order %s", typeName(l))
	}

	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// FormatValue renders a value the way string concatenation and string
// outputs see it: integral numbers without a decimal point.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatFloat(t, 'f', 0, 64)
		}

		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case float64:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// isUndefined reports whether err is a missing-binding error.
func isUndefined(err error) bool {
	return errors.Is(err, ErrUndefinedField)
}
