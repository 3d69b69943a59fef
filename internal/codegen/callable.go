package codegen

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/kanedyn/internal/dynamo"
	"github.com/san-kum/kanedyn/internal/expr"
)

var (
	ErrUnboundSymbol = errors.New("codegen: unbound symbol")
	ErrNonFinite     = errors.New("codegen: non-finite value")
	ErrArgCount      = errors.New("codegen: wrong number of arguments")
	ErrDuplicateArg  = errors.New("codegen: argument listed twice")
)

type opcode uint8

const (
	opAdd opcode = iota
	opMul
	opPowInt
	opSqrt
	opPow
	opCall
)

type instr struct {
	op  opcode
	dst int
	src []int
	n   int
	fn  expr.Func
}

// Callable evaluates a vector of expressions with a compiled register
// program. Shared subexpressions are computed once. A Callable holds no
// mutable state and is safe for concurrent use.
type Callable struct {
	exprs   []expr.Expr
	args    []*expr.Symbol
	init    []float64
	prog    []instr
	out     []int
	unbound [][]*expr.Symbol
	pool    *scratchPool
}

type slotEntry struct {
	key  expr.Expr
	slot int
}

type compiler struct {
	args  map[*expr.Symbol]int
	slots map[uint64][]slotEntry
	init  []float64
	prog  []instr
}

func (c *compiler) alloc(v float64) int {
	c.init = append(c.init, v)
	return len(c.init) - 1
}

func (c *compiler) lookup(e expr.Expr) (int, bool) {
	for _, en := range c.slots[e.Hash()] {
		if expr.Equal(en.key, e) {
			return en.slot, true
		}
	}
	return 0, false
}

func (c *compiler) emit(e expr.Expr) int {
	if s, ok := c.lookup(e); ok {
		return s
	}
	var slot int
	switch x := e.(type) {
	case *expr.Const:
		slot = c.alloc(x.Float())
	case *expr.Symbol:
		if i, ok := c.args[x]; ok {
			return i
		}
		slot = c.alloc(math.NaN())
	case *expr.Sum:
		slot = c.nary(opAdd, x.Terms())
	case *expr.Product:
		slot = c.nary(opMul, x.Factors())
	case *expr.Power:
		slot = c.power(x)
	case *expr.Call:
		a := c.emit(x.Arg())
		slot = c.alloc(0)
		c.prog = append(c.prog, instr{op: opCall, dst: slot, src: []int{a}, fn: x.Func()})
	}
	c.slots[e.Hash()] = append(c.slots[e.Hash()], slotEntry{key: e, slot: slot})
	return slot
}

func (c *compiler) nary(op opcode, xs []expr.Expr) int {
	src := make([]int, len(xs))
	for i, x := range xs {
		src[i] = c.emit(x)
	}
	slot := c.alloc(0)
	c.prog = append(c.prog, instr{op: op, dst: slot, src: src})
	return slot
}

func (c *compiler) power(p *expr.Power) int {
	b := c.emit(p.Base())
	slot := c.alloc(0)
	if k, ok := p.Exp().(*expr.Const); ok && !k.Inexact() {
		r := k.Rat()
		switch {
		case r.IsInt() && r.Num().IsInt64() && math.Abs(float64(r.Num().Int64())) <= 64:
			c.prog = append(c.prog, instr{op: opPowInt, dst: slot, src: []int{b}, n: int(r.Num().Int64())})
			return slot
		case r.Num().Int64() == 1 && r.Denom().Int64() == 2:
			c.prog = append(c.prog, instr{op: opSqrt, dst: slot, src: []int{b}})
			return slot
		}
	}
	e := c.emit(p.Exp())
	c.prog = append(c.prog, instr{op: opPow, dst: slot, src: []int{b, e}})
	return slot
}

// Compile builds a callable over exprs taking args positionally. Symbols
// of exprs missing from args make Call fail; Partial leaves them symbolic.
func Compile(exprs []expr.Expr, args []*expr.Symbol) (*Callable, error) {
	c := &compiler{args: make(map[*expr.Symbol]int, len(args)), slots: make(map[uint64][]slotEntry)}
	for i, a := range args {
		if _, dup := c.args[a]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateArg, a)
		}
		c.args[a] = i
		c.alloc(math.NaN())
	}
	cl := &Callable{
		exprs:   append([]expr.Expr(nil), exprs...),
		args:    append([]*expr.Symbol(nil), args...),
		out:     make([]int, len(exprs)),
		unbound: make([][]*expr.Symbol, len(exprs)),
	}
	for i, e := range exprs {
		cl.out[i] = c.emit(e)
		for _, s := range expr.Free(e) {
			if _, ok := c.args[s]; !ok {
				cl.unbound[i] = append(cl.unbound[i], s)
			}
		}
	}
	cl.init = c.init
	cl.prog = c.prog
	cl.pool = newScratchPool(len(c.init))
	return cl, nil
}

func (c *Callable) Args() []*expr.Symbol { return append([]*expr.Symbol(nil), c.args...) }
func (c *Callable) Len() int             { return len(c.exprs) }

// Unbound returns the symbols of the expressions that are not arguments,
// sorted by name.
func (c *Callable) Unbound() []*expr.Symbol {
	seen := make(map[*expr.Symbol]bool)
	var out []*expr.Symbol
	for _, syms := range c.unbound {
		for _, s := range syms {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	expr.SortSymbols(out)
	return out
}

// checkArgs rejects a wrong count and non-finite values.
func (c *Callable) checkArgs(stage string, vals []float64) error {
	if len(vals) != len(c.args) {
		return dynamo.Wrap(stage, dynamo.ErrEvaluation,
			fmt.Errorf("%w: got %d, want %d", ErrArgCount, len(vals), len(c.args)))
	}
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return dynamo.Wrap(stage, dynamo.ErrEvaluation,
				fmt.Errorf("%w: argument %v", ErrNonFinite, v)).
				WithSymbol(plain.Symbol(c.args[i]))
		}
	}
	return nil
}

func (c *Callable) check(vals []float64) error {
	if err := c.checkArgs("evaluate", vals); err != nil {
		return err
	}
	for i, syms := range c.unbound {
		if len(syms) > 0 {
			return dynamo.Wrap("evaluate", dynamo.ErrEvaluation, ErrUnboundSymbol).
				WithSymbol(plain.Symbol(syms[0])).
				WithEquation(i)
		}
	}
	return nil
}

// Call evaluates every expression at vals.
func (c *Callable) Call(vals []float64) ([]float64, error) {
	out := make([]float64, len(c.exprs))
	if err := c.CallInto(out, vals); err != nil {
		return nil, err
	}
	return out, nil
}

// CallInto is Call writing into dst, which must have length Len().
func (c *Callable) CallInto(dst, vals []float64) error {
	if err := c.check(vals); err != nil {
		return err
	}
	if len(dst) != len(c.exprs) {
		return dynamo.Wrap("evaluate", dynamo.ErrEvaluation, dynamo.ErrDimensionMismatch)
	}
	regs := c.pool.getAndCopy(c.init)
	defer c.pool.put(regs)
	s := *regs
	copy(s, vals)
	c.run(s)
	for i, slot := range c.out {
		v := s[slot]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return dynamo.Wrap("evaluate", dynamo.ErrEvaluation, ErrNonFinite).WithEquation(i)
		}
		dst[i] = v
	}
	return nil
}

func (c *Callable) run(s []float64) {
	for _, in := range c.prog {
		switch in.op {
		case opAdd:
			acc := 0.0
			for _, k := range in.src {
				acc += s[k]
			}
			s[in.dst] = acc
		case opMul:
			acc := 1.0
			for _, k := range in.src {
				acc *= s[k]
			}
			s[in.dst] = acc
		case opPowInt:
			s[in.dst] = powi(s[in.src[0]], in.n)
		case opSqrt:
			s[in.dst] = math.Sqrt(s[in.src[0]])
		case opPow:
			s[in.dst] = math.Pow(s[in.src[0]], s[in.src[1]])
		case opCall:
			s[in.dst] = expr.CallFloat(in.fn, s[in.src[0]])
		}
	}
}

func powi(b float64, n int) float64 {
	if n < 0 {
		return 1 / powi(b, -n)
	}
	r := 1.0
	for n > 0 {
		if n&1 == 1 {
			r *= b
		}
		b *= b
		n >>= 1
	}
	return r
}

// Partial binds vals and returns the residual expressions. Entries that
// become fully numeric are evaluated and must be finite; the others keep
// exactly their unbound symbols.
func (c *Callable) Partial(vals []float64) ([]expr.Expr, error) {
	if err := c.checkArgs("partial evaluate", vals); err != nil {
		return nil, err
	}
	env := make(map[*expr.Symbol]float64, len(vals))
	for i, a := range c.args {
		env[a] = vals[i]
	}
	bind := expr.Bind(env)
	out := make([]expr.Expr, len(c.exprs))
	for i, e := range c.exprs {
		if len(c.unbound[i]) > 0 {
			out[i] = expr.Subs(e, bind)
			continue
		}
		v, err := expr.Eval(e, env)
		if err != nil {
			return nil, dynamo.Wrap("partial evaluate", dynamo.ErrEvaluation, err).WithEquation(i)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, dynamo.Wrap("partial evaluate", dynamo.ErrEvaluation, ErrNonFinite).WithEquation(i)
		}
		out[i] = expr.Float(v)
	}
	return out, nil
}
