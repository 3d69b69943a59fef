package dynamo

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories for a derivation run. Package-level sentinels wrap one
// of these so callers can branch on the category with errors.Is.
var (
	// ErrConstruction indicates a malformed mechanism description.
	ErrConstruction = errors.New("dynamo: invalid mechanism construction")

	// ErrModeling indicates inconsistent coordinates, speeds or kinematic
	// differential equations.
	ErrModeling = errors.New("dynamo: inconsistent model")

	// ErrSolve indicates the equations could not be reduced.
	ErrSolve = errors.New("dynamo: equations could not be solved")

	// ErrEvaluation indicates a numeric evaluation failure.
	ErrEvaluation = errors.New("dynamo: evaluation failed")

	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// DerivationError wraps an error with the pipeline stage and the symbol or
// equation it concerns.
type DerivationError struct {
	Stage    string
	Category error
	Symbol   string
	Equation int
	Wrapped  error
}

// Wrap builds a DerivationError. Equation is -1 when not applicable.
func Wrap(stage string, category error, err error) *DerivationError {
	return &DerivationError{Stage: stage, Category: category, Equation: -1, Wrapped: err}
}

// WithSymbol annotates the error with the symbol it concerns.
func (e *DerivationError) WithSymbol(name string) *DerivationError {
	e.Symbol = name
	return e
}

// WithEquation annotates the error with an equation or row index.
func (e *DerivationError) WithEquation(i int) *DerivationError {
	e.Equation = i
	return e
}

func (e *DerivationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Stage)
	if e.Symbol != "" {
		fmt.Fprintf(&b, " [%s]", e.Symbol)
	}
	if e.Equation >= 0 {
		fmt.Fprintf(&b, " (equation %d)", e.Equation)
	}
	b.WriteString(": ")
	b.WriteString(e.Wrapped.Error())
	return b.String()
}

// Unwrap exposes both the category and the underlying error.
func (e *DerivationError) Unwrap() []error {
	if e.Category == nil {
		return []error{e.Wrapped}
	}
	return []error{e.Category, e.Wrapped}
}
