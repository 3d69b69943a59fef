package expr

import (
	"context"
	"fmt"
	"strings"
)

// Matrix is a dense row-major matrix of expressions.
type Matrix struct {
	rows, cols int
	data       []Expr
}

// NewMatrix returns a rows×cols zero matrix.
func NewMatrix(rows, cols int) *Matrix {
	m := &Matrix{rows: rows, cols: cols, data: make([]Expr, rows*cols)}
	for i := range m.data {
		m.data[i] = zero
	}
	return m
}

// Identity returns the n×n identity.
func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Set(i, i, one)
	}
	return m
}

// MatrixOf builds a matrix from rows of equal length.
func MatrixOf(rows [][]Expr) (*Matrix, error) {
	if len(rows) == 0 {
		return NewMatrix(0, 0), nil
	}
	m := NewMatrix(len(rows), len(rows[0]))
	for i, r := range rows {
		if len(r) != m.cols {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrDimension, i, len(r), m.cols)
		}
		for j, e := range r {
			m.Set(i, j, e)
		}
	}
	return m, nil
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) At(i, j int) Expr { return m.data[i*m.cols+j] }

func (m *Matrix) Set(i, j int, e Expr) { m.data[i*m.cols+j] = e }

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []Expr {
	return append([]Expr(nil), m.data[i*m.cols:(i+1)*m.cols]...)
}

// Col returns a copy of column j.
func (m *Matrix) Col(j int) []Expr {
	out := make([]Expr, m.rows)
	for i := range out {
		out[i] = m.At(i, j)
	}
	return out
}

// Clone returns a shallow copy; expressions are immutable.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{rows: m.rows, cols: m.cols, data: append([]Expr(nil), m.data...)}
}

// T returns the transpose.
func (m *Matrix) T() *Matrix {
	t := NewMatrix(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			t.Set(j, i, m.At(i, j))
		}
	}
	return t
}

// Map applies fn to every entry.
func (m *Matrix) Map(fn func(Expr) Expr) *Matrix {
	out := m.Clone()
	for i, e := range out.data {
		out.data[i] = fn(e)
	}
	return out
}

// Mul returns m·o.
func (m *Matrix) Mul(o *Matrix) (*Matrix, error) {
	if m.cols != o.rows {
		return nil, fmt.Errorf("%w: %dx%d times %dx%d", ErrDimension, m.rows, m.cols, o.rows, o.cols)
	}
	out := NewMatrix(m.rows, o.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < o.cols; j++ {
			terms := make([]Expr, 0, m.cols)
			for k := 0; k < m.cols; k++ {
				terms = append(terms, Mul(m.At(i, k), o.At(k, j)))
			}
			out.Set(i, j, Add(terms...))
		}
	}
	return out, nil
}

// MulVec returns m·v.
func (m *Matrix) MulVec(v []Expr) ([]Expr, error) {
	if m.cols != len(v) {
		return nil, fmt.Errorf("%w: %dx%d times vector of %d", ErrDimension, m.rows, m.cols, len(v))
	}
	out := make([]Expr, m.rows)
	for i := 0; i < m.rows; i++ {
		terms := make([]Expr, 0, m.cols)
		for k := 0; k < m.cols; k++ {
			terms = append(terms, Mul(m.At(i, k), v[k]))
		}
		out[i] = Add(terms...)
	}
	return out, nil
}

// BlockDiag returns diag(a, b).
func BlockDiag(a, b *Matrix) *Matrix {
	out := NewMatrix(a.rows+b.rows, a.cols+b.cols)
	for i := 0; i < a.rows; i++ {
		for j := 0; j < a.cols; j++ {
			out.Set(i, j, a.At(i, j))
		}
	}
	for i := 0; i < b.rows; i++ {
		for j := 0; j < b.cols; j++ {
			out.Set(a.rows+i, a.cols+j, b.At(i, j))
		}
	}
	return out
}

func (m *Matrix) String() string {
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < m.rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("[")
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(m.At(i, j).String())
		}
		b.WriteString("]")
	}
	b.WriteString("]")
	return b.String()
}

// Inverse inverts m by Gauss-Jordan elimination over rational-function
// normal forms. A column without a non-zero pivot yields a *SingularError.
func (s *Simplifier) Inverse(ctx context.Context, m *Matrix) (*Matrix, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("%w: inverse of %dx%d", ErrDimension, m.rows, m.cols)
	}
	n := m.rows
	rhs := make([][]ratfn, n)
	for i := range rhs {
		rhs[i] = make([]ratfn, n)
		for j := range rhs[i] {
			if i == j {
				rhs[i][j] = ratConst(ratOne, false)
			} else {
				rhs[i][j] = ratConst(ratZero, false)
			}
		}
	}
	if err := s.eliminate(ctx, m, rhs); err != nil {
		return nil, err
	}
	out := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, s.fromRat(rhs[i][j]))
		}
	}
	return out, nil
}

// Solve returns x with m·x = b.
func (s *Simplifier) Solve(ctx context.Context, m *Matrix, b []Expr) ([]Expr, error) {
	if m.rows != m.cols || len(b) != m.rows {
		return nil, fmt.Errorf("%w: solve %dx%d with %d right-hand sides", ErrDimension, m.rows, m.cols, len(b))
	}
	rhs := make([][]ratfn, len(b))
	for i, e := range b {
		r, err := s.toRat(e)
		if err != nil {
			return nil, err
		}
		rhs[i] = []ratfn{r}
	}
	if err := s.eliminate(ctx, m, rhs); err != nil {
		return nil, err
	}
	out := make([]Expr, len(b))
	for i := range out {
		out[i] = s.fromRat(rhs[i][0])
	}
	return out, nil
}

// eliminate reduces m to the identity, applying the same row operations to
// rhs.
func (s *Simplifier) eliminate(ctx context.Context, m *Matrix, rhs [][]ratfn) error {
	prev := s.ctx
	s.ctx = ctx
	defer func() { s.ctx = prev }()

	n := m.rows
	a := make([][]ratfn, n)
	for i := 0; i < n; i++ {
		a[i] = make([]ratfn, n)
		for j := 0; j < n; j++ {
			r, err := s.toRat(m.At(i, j))
			if err != nil {
				return err
			}
			a[i][j] = r
		}
	}
	for col := 0; col < n; col++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		piv := -1
		best := 0
		for i := col; i < n; i++ {
			if a[i][col].num.isZero() {
				continue
			}
			size := len(a[i][col].num.terms) + len(a[i][col].den.terms)
			if piv < 0 || size < best {
				piv, best = i, size
			}
		}
		if piv < 0 {
			return &SingularError{Column: col}
		}
		a[col], a[piv] = a[piv], a[col]
		rhs[col], rhs[piv] = rhs[piv], rhs[col]

		p := a[col][col]
		for j := col; j < n; j++ {
			q, err := s.div(a[col][j], p)
			if err != nil {
				return err
			}
			a[col][j] = q
		}
		for j := range rhs[col] {
			q, err := s.div(rhs[col][j], p)
			if err != nil {
				return err
			}
			rhs[col][j] = q
		}
		for i := 0; i < n; i++ {
			if i == col || a[i][col].num.isZero() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			f := a[i][col]
			for j := col; j < n; j++ {
				if a[col][j].num.isZero() {
					continue
				}
				a[i][j] = s.sub(a[i][j], s.mul(f, a[col][j]))
			}
			for j := range rhs[i] {
				if rhs[col][j].num.isZero() {
					continue
				}
				rhs[i][j] = s.sub(rhs[i][j], s.mul(f, rhs[col][j]))
			}
		}
	}
	return nil
}

// Inverse inverts m with a fresh Simplifier.
func (m *Matrix) Inverse(ctx context.Context) (*Matrix, error) {
	return NewSimplifier().Inverse(ctx, m)
}

// Det returns the determinant by cofactor expansion; intended for small
// matrices.
func (m *Matrix) Det() (Expr, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("%w: determinant of %dx%d", ErrDimension, m.rows, m.cols)
	}
	return det(m), nil
}

func det(m *Matrix) Expr {
	switch m.rows {
	case 0:
		return one
	case 1:
		return m.At(0, 0)
	case 2:
		return Sub(Mul(m.At(0, 0), m.At(1, 1)), Mul(m.At(0, 1), m.At(1, 0)))
	}
	terms := make([]Expr, 0, m.cols)
	for j := 0; j < m.cols; j++ {
		if IsZero(m.At(0, j)) {
			continue
		}
		minor := NewMatrix(m.rows-1, m.cols-1)
		for i := 1; i < m.rows; i++ {
			c := 0
			for k := 0; k < m.cols; k++ {
				if k == j {
					continue
				}
				minor.Set(i-1, c, m.At(i, k))
				c++
			}
		}
		t := Mul(m.At(0, j), det(minor))
		if j%2 == 1 {
			t = Neg(t)
		}
		terms = append(terms, t)
	}
	return Add(terms...)
}
