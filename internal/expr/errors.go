package expr

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateSymbol  = errors.New("expr: symbol already declared")
	ErrInvalidName      = errors.New("expr: invalid symbol name")
	ErrStaticDerivative = errors.New("expr: parameter has no time derivative")
	ErrForeignSymbol    = errors.New("expr: symbol from another registry")
	ErrSingular         = errors.New("expr: matrix is singular")
	ErrDivisionByZero   = errors.New("expr: division by zero")
	ErrDimension        = errors.New("expr: dimension mismatch")
	ErrUnbound          = errors.New("expr: unbound symbol")
	ErrNotNumeric       = errors.New("expr: expression is not numeric")
)

// SingularError reports the column where Gauss-Jordan elimination found
// no usable pivot.
type SingularError struct {
	Column int
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("expr: matrix is singular: no pivot in column %d", e.Column)
}

func (e *SingularError) Unwrap() error { return ErrSingular }
