package formula

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

type builtin struct {
	minArgs, maxArgs int // maxArgs < 0 means variadic
	fn               func(args []node, env Env) (any, error)
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"abs":      {minArgs: 1, maxArgs: 1, fn: numeric1(math.Abs)},
		"floor":    {minArgs: 1, maxArgs: 1, fn: numeric1(math.Floor)},
		"ceil":     {minArgs: 1, maxArgs: 1, fn: numeric1(math.Ceil)},
		"round":    {minArgs: 1, maxArgs: 2, fn: roundFn},
		"min":      {minArgs: 1, maxArgs: -1, fn: extremum(func(a, b float64) bool { return a < b })},
		"max":      {minArgs: 1, maxArgs: -1, fn: extremum(func(a, b float64) bool { return a > b })},
		"if":       {minArgs: 3, maxArgs: 3, fn: ifFn},
		"coalesce": {minArgs: 1, maxArgs: -1, fn: coalesceFn},
		"len":      {minArgs: 1, maxArgs: 1, fn: lenFn},
		"lower":    {minArgs: 1, maxArgs: 1, fn: string1(strings.ToLower)},
		"upper":    {minArgs: 1, maxArgs: 1, fn: string1(strings.ToUpper)},
	}
}

func checkArity(name string, n int) error {
	b := builtins[name]
	if n < b.minArgs || (b.maxArgs >= 0 && n > b.maxArgs) {
		return fmt.Errorf("%s: wrong number of arguments (%d)", name, n)
	}

	return nil
}

func evalCall(n callExpr, env Env) (any, error) {
	b, ok := builtins[n.name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownFunction, n.name)
	}

	return b.fn(n.args, env)
}

func evalArgs(args []node, env Env) ([]any, error) {
	out := make([]any, len(args))

	for i, a := range args {
		v, err := eval(a, env)
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

func numberArg(name string, v any) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, typeErrorf("%s needs a number, got %s", name, typeName(v))
	}

	return f, nil
}

func numeric1(op func(float64) float64) func([]node, Env) (any, error) {
	return func(args []node, env Env) (any, error) {
		vals, err := evalArgs(args, env)
		if err != nil {
			return nil, err
		}

		f, err := numberArg("argument", vals[0])
		if err != nil {
			return nil, err
		}

		return op(f), nil
	}
}

func string1(op func(string) string) func([]node, Env) (any, error) {
	return func(args []node, env Env) (any, error) {
		vals, err := evalArgs(args, env)
		if err != nil {
			return nil, err
		}

		s, ok := vals[0].(string)
		if !ok {
			return nil, typeErrorf("needs a string, got %s", typeName(vals[0]))
		}

		return op(s), nil
	}
}

func roundFn(args []node, env Env) (any, error) {
	vals, err := evalArgs(args, env)
	if err != nil {
		return nil, err
	}

	f, err := numberArg("round", vals[0])
	if err != nil {
		return nil, err
	}

	digits := 0.0
	if len(vals) == 2 {
		if digits, err = numberArg("round digits", vals[1]); err != nil {
			return nil, err
		}
	}

	scale := math.Pow(10, math.Trunc(digits))

	return math.Round(f*scale) / scale, nil
}

func extremum(better func(a, b float64) bool) func([]node, Env) (any, error) {
	return func(args []node, env Env) (any, error) {
		vals, err := evalArgs(args, env)
		if err != nil {
			return nil, err
		}

		best, err := numberArg("argument", vals[0])
		if err != nil {
			return nil, err
		}

		for _, v := range vals[1:] {
			f, err := numberArg("argument", v)
			if err != nil {
				return nil, err
			}

			if better(f, best) {
				best = f
			}
		}

		return best, nil
	}
}

func ifFn(args []node, env Env) (any, error) {
	c, err := eval(args[0], env)
	if err != nil {
		return nil, err
	}

	b, ok := c.(bool)
	if !ok {
		return nil, typeErrorf("if needs a boolean condition, got %s", typeName(c))
	}

	if b {
		return eval(args[1], env)
	}

	return eval(args[2], env)
}

// coalesceFn returns the first argument that is defined and not null.
func coalesceFn(args []node, env Env) (any, error) {
	for _, a := range args {
		v, err := eval(a, env)
		if err != nil {
			if isUndefined(err) {
				continue
			}

			return nil, err
		}

		if v != nil {
			return v, nil
		}
	}

	return nil, nil
}

func lenFn(args []node, env Env) (any, error) {
	vals, err := evalArgs(args, env)
	if err != nil {
		return nil, err
	}

	s, ok := vals[0].(string)
	if !ok {
		return nil, typeErrorf("len needs a string, got %s", typeName(vals[0]))
	}

	return float64(utf8.RuneCountInString(s)), nil
}
