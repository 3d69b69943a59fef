package kane_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/kanedyn/internal/dynamo"
	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/kane"
	"github.com/san-kum/kanedyn/internal/mechanics"
)

func equivalent(got, want expr.Expr) {
	GinkgoHelper()
	Expect(expr.Equivalent(got, want)).To(BeTrue(), "got %v, want %v", got, want)
}

func dots(syms ...*expr.Symbol) []*expr.Symbol {
	out := make([]*expr.Symbol, len(syms))
	for i, s := range syms {
		d, err := s.Dot()
		Expect(err).NotTo(HaveOccurred())
		out[i] = d
	}
	return out
}

var _ = Describe("KinDiff", func() {
	var (
		reg *expr.Registry
		qs  []*expr.Symbol
		us  []*expr.Symbol
		qd  []*expr.Symbol
	)

	BeforeEach(func() {
		reg = expr.NewRegistry("kd")
		qs = expr.MustSymbols(reg.Coordinates("q1", "q2"))
		us = expr.MustSymbols(reg.Speeds("u1", "u2"))
		qd = dots(qs...)
	})

	It("solves a coupled linear set and round-trips", func() {
		eqs := []expr.Expr{
			expr.Sub(expr.Add(qd[0], qd[1]), us[0]),
			expr.Sub(expr.Sub(qd[0], qd[1]), us[1]),
		}
		kd, err := kane.NewKinDiff(qs, us, eqs)
		Expect(err).NotTo(HaveOccurred())

		solved := kd.Solved()
		equivalent(solved[qd[0]], expr.Div(expr.Add(us[0], us[1]), expr.Int(2)))
		equivalent(solved[qd[1]], expr.Div(expr.Sub(us[0], us[1]), expr.Int(2)))

		for _, r := range kd.Residuals(solved) {
			Expect(expr.IsZero(r)).To(BeTrue(), "residual %v", r)
		}
		Expect(kd.Forcing()).To(HaveLen(2))
		equivalent(kd.Forcing()[0], us[0])
	})

	DescribeTable("rejects malformed sets",
		func(build func() []expr.Expr, want error) {
			_, err := kane.NewKinDiff(qs, us, build())
			Expect(err).To(MatchError(want))
			Expect(err).To(MatchError(dynamo.ErrModeling))
		},
		Entry("too few equations", func() []expr.Expr {
			return []expr.Expr{expr.Sub(qd[0], us[0])}
		}, kane.ErrKinDiffCount),
		Entry("nonlinear in q̇", func() []expr.Expr {
			return []expr.Expr{
				expr.Sub(expr.Square(qd[0]), us[0]),
				expr.Sub(qd[1], us[1]),
			}
		}, kane.ErrKinDiffNonlinear),
		Entry("singular coefficient matrix", func() []expr.Expr {
			return []expr.Expr{
				expr.Sub(expr.Add(qd[0], qd[1]), us[0]),
				expr.Sub(expr.Add(qd[0], qd[1]), us[1]),
			}
		}, kane.ErrKinDiffSingular),
	)

	It("rejects coordinates that cannot be differentiated", func() {
		p, _ := reg.Parameter("p")
		_, err := kane.NewKinDiff([]*expr.Symbol{p}, us[:1], []expr.Expr{us[0]})
		Expect(err).To(MatchError(kane.ErrNotDynamic))
	})
})

var _ = Describe("Method", func() {
	var (
		reg      *expr.Registry
		g        *mechanics.Graph
		asm      *mechanics.Assembly
		q, u     *expr.Symbol
		m, l, gr *expr.Symbol
		kd       *kane.KinDiff
	)

	BeforeEach(func() {
		reg = expr.NewRegistry("method")
		q, _ = reg.Coordinate("q")
		u, _ = reg.Speed("u")
		params := expr.MustSymbols(reg.Parameters("m", "l", "g"))
		m, l, gr = params[0], params[1], params[2]
		g = mechanics.NewGraph(reg, "N", "O")
		asm = mechanics.NewAssembly(g)
		var err error
		kd, err = kane.NewKinDiff([]*expr.Symbol{q}, []*expr.Symbol{u}, []expr.Expr{expr.Sub(dots(q)[0], u)})
		Expect(err).NotTo(HaveOccurred())
	})

	It("reproduces the axial pendulum", func() {
		p, err := g.Locate("P", g.Origin(), g.Base().X().Scale(l))
		Expect(err).NotTo(HaveOccurred())
		Expect(g.SetVel(p, g.Base(), g.Base().X().Scale(u))).To(Succeed())
		_, err = asm.Particle("ParP", p, m)
		Expect(err).NotTo(HaveOccurred())
		Expect(asm.Force("gravity", p, g.Base().X().Scale(expr.Mul(m, gr)))).To(Succeed())

		method, err := kane.New(g, []*expr.Symbol{q}, []*expr.Symbol{u}, kd)
		Expect(err).NotTo(HaveOccurred())
		sys, err := method.Equations(asm.Bodies(), asm.Loads())
		Expect(err).NotTo(HaveOccurred())

		equivalent(sys.Fr()[0], expr.Mul(m, gr))
		equivalent(sys.FrStar()[0], expr.Neg(expr.Mul(m, dots(u)[0])))

		mf := sys.MassMatrixFull()
		Expect(mf.Rows()).To(Equal(2))
		Expect(mf.Cols()).To(Equal(2))
		equivalent(mf.At(0, 0), expr.One())
		equivalent(mf.At(1, 1), m)
		Expect(expr.IsZero(mf.At(0, 1))).To(BeTrue())
		Expect(expr.IsZero(mf.At(1, 0))).To(BeTrue())

		ff := sys.ForcingFull()
		equivalent(ff[0], u)
		equivalent(ff[1], expr.Mul(m, gr))

		kdd := sys.KinDiffDict()
		Expect(kdd).To(HaveLen(1))
		equivalent(kdd[dots(q)[0]], u)
		Expect(sys.States()).To(Equal([]*expr.Symbol{q, u}))
	})

	It("derives the rotating pendulum", func() {
		a, err := g.OrientAxis("A", g.Base(), g.Base().Z(), q)
		Expect(err).NotTo(HaveOccurred())
		p, err := g.Locate("P", g.Origin(), a.X().Scale(l))
		Expect(err).NotTo(HaveOccurred())
		_, err = asm.Particle("bob", p, m)
		Expect(err).NotTo(HaveOccurred())
		Expect(asm.Force("gravity", p, g.Base().X().Scale(expr.Mul(m, gr)))).To(Succeed())

		method, err := kane.New(g, []*expr.Symbol{q}, []*expr.Symbol{u}, kd)
		Expect(err).NotTo(HaveOccurred())
		sys, err := method.Equations(asm.Bodies(), asm.Loads())
		Expect(err).NotTo(HaveOccurred())

		equivalent(sys.MassMatrix().At(0, 0), expr.Mul(m, expr.Square(l)))
		equivalent(sys.Forcing()[0], expr.Neg(expr.Mul(m, gr, l, expr.Sin(q))))
	})

	It("includes rotational inertia and torques of rigid bodies", func() {
		a, err := g.OrientAxis("A", g.Base(), g.Base().Z(), q)
		Expect(err).NotTo(HaveOccurred())
		izz, _ := reg.Parameter("Izz")
		tau, _ := reg.Parameter("T")
		in := mechanics.InertiaOf(a, expr.Zero(), expr.Zero(), izz, expr.Zero(), expr.Zero(), expr.Zero())
		_, err = asm.RigidBody("disc", a, g.Origin(), m, in)
		Expect(err).NotTo(HaveOccurred())
		Expect(asm.Torque("motor", a, a.Z().Scale(tau))).To(Succeed())

		method, err := kane.New(g, []*expr.Symbol{q}, []*expr.Symbol{u}, kd)
		Expect(err).NotTo(HaveOccurred())
		sys, err := method.Equations(asm.Bodies(), asm.Loads())
		Expect(err).NotTo(HaveOccurred())

		equivalent(sys.MassMatrix().At(0, 0), izz)
		equivalent(sys.Forcing()[0], tau)
	})

	It("rejects cardinality mismatches", func() {
		_, err := kane.New(g, []*expr.Symbol{q}, nil, kd)
		Expect(err).To(MatchError(kane.ErrNoSpeeds))

		other, _ := reg.Coordinate("r")
		_, err = kane.New(g, []*expr.Symbol{other}, []*expr.Symbol{u}, kd)
		Expect(err).To(MatchError(kane.ErrCoordinates))

		_, err = kane.New(g, []*expr.Symbol{q, other}, []*expr.Symbol{u}, kd)
		Expect(err).To(MatchError(kane.ErrKinDiffCount))
		Expect(err).To(MatchError(dynamo.ErrModeling))
	})

	It("detects a rank-deficient mass matrix numerically", func() {
		q2, _ := reg.Coordinate("q2")
		u2, _ := reg.Speed("u2")
		kd2, err := kane.NewKinDiff(
			[]*expr.Symbol{q, q2},
			[]*expr.Symbol{u, u2},
			[]expr.Expr{expr.Sub(dots(q)[0], u), expr.Sub(dots(q2)[0], u2)},
		)
		Expect(err).NotTo(HaveOccurred())
		p, err := g.Locate("P", g.Origin(), g.Base().X().Scale(q))
		Expect(err).NotTo(HaveOccurred())
		_, err = asm.Particle("slider", p, m)
		Expect(err).NotTo(HaveOccurred())

		method, err := kane.New(g, []*expr.Symbol{q, q2}, []*expr.Symbol{u, u2}, kd2)
		Expect(err).NotTo(HaveOccurred())
		sys, err := method.Equations(asm.Bodies(), asm.Loads())
		Expect(err).NotTo(HaveOccurred())

		rank, err := sys.NumericRank(3, 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(rank).To(Equal(3))
	})
})
