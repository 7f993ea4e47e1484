package formula

import (
	"errors"
	"fmt"
)

var (
	// ErrUndefinedField is returned when an expression reads a name bound to nothing.
	ErrUndefinedField = errors.New("undefined field")
	// ErrDivisionByZero is returned for x / 0 and x % 0.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrType is returned when an operator or function gets operands of the wrong type.
	ErrType = errors.New("type mismatch")
	// ErrUnknownFunction is returned for calls outside the built-in set.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrTooComplex is returned when an expression exceeds size or nesting limits.
	ErrTooComplex = errors.New("expression too complex")
)

// SyntaxError reports a parse failure at a byte offset of the source.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

func undefinedField(name string) error {
	return fmt.Errorf("%w %q", ErrUndefinedField, name)
}

func typeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrType, fmt.Sprintf(format, args...))
}
