package expr

import (
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

// Notation selects a printer dialect.
type Notation int

const (
	// Mechanics prints time derivatives with primes: u1'.
	Mechanics Notation = iota
	// Plain prints derivatives as identifiers: u1d, u1dd.
	Plain
	// LaTeX prints derivatives with dots.
	LaTeX
	// GoSource prints Go expressions over float64 using package math.
	GoSource
	// CSource prints C expressions over double using math.h.
	CSource
)

var notationNames = map[Notation]string{
	Mechanics: "mechanics",
	Plain:     "plain",
	LaTeX:     "latex",
	GoSource:  "go",
	CSource:   "c",
}

func (n Notation) String() string {
	if s, ok := notationNames[n]; ok {
		return s
	}
	return "unknown"
}

// ParseNotation maps a configuration name to a Notation.
func ParseNotation(s string) (Notation, bool) {
	for n, name := range notationNames {
		if strings.EqualFold(name, s) {
			return n, true
		}
	}
	return Mechanics, false
}

// Format is an explicit printing configuration. There is no package-level
// printing state; every caller passes its Format.
type Format struct {
	Notation Notation
	// Precision is the number of significant digits for inexact constants;
	// zero or negative means the shortest exact representation.
	Precision int
}

const (
	precSum = iota + 1
	precProduct
	precPower
	precAtom
)

var greek = map[string]bool{
	"alpha": true, "beta": true, "gamma": true, "delta": true, "epsilon": true,
	"theta": true, "lambda": true, "mu": true, "nu": true, "rho": true,
	"sigma": true, "tau": true, "phi": true, "psi": true, "omega": true,
}

// Symbol prints a symbol.
func (f Format) Symbol(s *Symbol) string {
	name := s.Name()
	switch f.Notation {
	case Mechanics:
		return name + strings.Repeat("'", s.order)
	case LaTeX:
		head, sub := latexName(name)
		switch s.order {
		case 0:
		case 1:
			head = `\dot{` + head + `}`
		case 2:
			head = `\ddot{` + head + `}`
		default:
			head = head + `^{(` + strconv.Itoa(s.order) + `)}`
		}
		return head + sub
	}
	return name + strings.Repeat("d", s.order)
}

func latexName(name string) (head, sub string) {
	i := len(name)
	for i > 0 && unicode.IsDigit(rune(name[i-1])) {
		i--
	}
	head, digits := name[:i], name[i:]
	if strings.Contains(head, "_") && digits == "" {
		parts := strings.SplitN(head, "_", 2)
		head, digits = parts[0], parts[1]
	}
	if greek[strings.ToLower(head)] {
		head = `\` + head
	}
	if digits == "" {
		return head, ""
	}
	return head, `_{` + digits + `}`
}

// Expr prints e.
func (f Format) Expr(e Expr) string {
	return f.print(e, 0)
}

// Equation prints "lhs = rhs".
func (f Format) Equation(lhs, rhs Expr) string {
	return f.Expr(lhs) + " = " + f.Expr(rhs)
}

func (f Format) source() bool { return f.Notation == GoSource || f.Notation == CSource }

func precOf(e Expr) int {
	switch x := e.(type) {
	case *Sum:
		return precSum
	case *Product:
		return precProduct
	case *Power:
		if c, ok := x.exp.(*Const); ok && c.val.Sign() < 0 {
			return precProduct
		}
		return precPower
	case *Const:
		if x.val.Sign() < 0 || !x.val.IsInt() {
			return precProduct
		}
	}
	return precAtom
}

func (f Format) paren(s string) string {
	if f.Notation == LaTeX {
		return `\left(` + s + `\right)`
	}
	return "(" + s + ")"
}

func (f Format) print(e Expr, outer int) string {
	s := f.render(e)
	if precOf(e) < outer {
		return f.paren(s)
	}
	return s
}

func (f Format) render(e Expr) string {
	switch x := e.(type) {
	case *Const:
		return f.constant(x)
	case *Symbol:
		return f.Symbol(x)
	case *Sum:
		return f.sum(x)
	case *Product:
		return f.product(x)
	case *Power:
		return f.power(x)
	case *Call:
		return f.call(x)
	}
	return "?"
}

func (f Format) float(v float64) string {
	prec := f.Precision
	if prec <= 0 {
		prec = -1
	}
	s := strconv.FormatFloat(v, 'g', prec, 64)
	if f.source() && !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

func (f Format) constant(c *Const) string {
	if c.inexact || (f.source() && !c.val.IsInt()) {
		return f.float(c.Float())
	}
	if c.val.IsInt() {
		s := c.val.Num().String()
		if f.source() {
			s += ".0"
		}
		return s
	}
	if f.Notation == LaTeX {
		num := new(big.Int).Abs(c.val.Num())
		s := `\frac{` + num.String() + `}{` + c.val.Denom().String() + `}`
		if c.val.Sign() < 0 {
			return "-" + s
		}
		return s
	}
	return c.val.RatString()
}

func (f Format) sum(s *Sum) string {
	var b strings.Builder
	for i, t := range s.terms {
		neg := negativeCoeff(t)
		body := t
		if neg {
			body = Neg(t)
		}
		switch {
		case i == 0 && neg:
			b.WriteString("-")
		case i > 0 && neg:
			b.WriteString(" - ")
		case i > 0:
			b.WriteString(" + ")
		}
		b.WriteString(f.print(body, precProduct))
	}
	return b.String()
}

func (f Format) mulSep() string {
	if f.Notation == LaTeX {
		return " "
	}
	return "*"
}

func (f Format) product(p *Product) string {
	c, _ := splitCoeff(p)
	rest := p.factors
	if _, ok := p.factors[0].(*Const); ok {
		rest = p.factors[1:]
	}
	var num, den []string
	sign := ""
	coeff := new(big.Rat).Set(c.val)
	if coeff.Sign() < 0 {
		sign = "-"
		coeff.Neg(coeff)
	}
	switch {
	case c.inexact || f.source():
		if coeff.Cmp(ratOne) != 0 || c.inexact {
			num = append(num, f.constant(newConst(coeff, c.inexact)))
		}
	case coeff.IsInt():
		if coeff.Cmp(ratOne) != 0 {
			num = append(num, coeff.Num().String())
		}
	default:
		if coeff.Num().Cmp(big.NewInt(1)) != 0 {
			num = append(num, coeff.Num().String())
		}
		den = append(den, coeff.Denom().String())
	}
	for _, x := range rest {
		if pw, ok := x.(*Power); ok {
			if ec, ok := pw.exp.(*Const); ok && ec.val.Sign() < 0 {
				inv := Pow(pw.base, newConst(new(big.Rat).Neg(ec.val), ec.inexact))
				den = append(den, f.print(inv, precPower))
				continue
			}
		}
		num = append(num, f.print(x, precProduct))
	}
	numS := strings.Join(num, f.mulSep())
	if numS == "" {
		numS = "1"
	}
	if len(den) == 0 {
		return sign + numS
	}
	denS := strings.Join(den, f.mulSep())
	if f.Notation == LaTeX {
		return sign + `\frac{` + numS + `}{` + denS + `}`
	}
	if len(den) > 1 {
		denS = "(" + denS + ")"
	}
	return sign + numS + "/" + denS
}

func (f Format) power(p *Power) string {
	ec, isConst := p.exp.(*Const)
	if isConst && ec.val.Sign() < 0 {
		// a lone reciprocal
		return f.product(newProduct([]Expr{one, p}))
	}
	if isConst && !ec.inexact && ec.val.Cmp(big.NewRat(1, 2)) == 0 {
		arg := f.print(p.base, 0)
		switch f.Notation {
		case GoSource:
			return "math.Sqrt(" + arg + ")"
		case LaTeX:
			return `\sqrt{` + arg + `}`
		}
		return "sqrt(" + arg + ")"
	}
	switch f.Notation {
	case GoSource:
		return "math.Pow(" + f.print(p.base, 0) + ", " + f.print(p.exp, 0) + ")"
	case CSource:
		return "pow(" + f.print(p.base, 0) + ", " + f.print(p.exp, 0) + ")"
	case LaTeX:
		return "{" + f.print(p.base, precAtom) + "}^{" + f.print(p.exp, 0) + "}"
	}
	return f.print(p.base, precAtom) + "**" + f.print(p.exp, precAtom)
}

var goFuncs = map[Func]string{
	FuncSin: "math.Sin", FuncCos: "math.Cos", FuncTan: "math.Tan",
	FuncExp: "math.Exp", FuncLog: "math.Log",
}

func (f Format) call(c *Call) string {
	arg := f.print(c.arg, 0)
	switch f.Notation {
	case GoSource:
		return goFuncs[c.fn] + "(" + arg + ")"
	case LaTeX:
		return `\` + c.fn.String() + `{\left(` + arg + `\right)}`
	}
	return c.fn.String() + "(" + arg + ")"
}
