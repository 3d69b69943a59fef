package models_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/kanedyn/internal/dynamo"
	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/kane"
	"github.com/san-kum/kanedyn/internal/models"
	"github.com/san-kum/kanedyn/internal/physics"
	"github.com/san-kum/kanedyn/internal/pipeline"
	"github.com/san-kum/kanedyn/internal/reduce"
)

// accelerations evaluates M and f at env and solves M u̇ = f.
func accelerations(sys *kane.System, env map[*expr.Symbol]float64) []float64 {
	GinkgoHelper()
	m := sys.MassMatrix()
	f := sys.Forcing()
	n := m.Rows()
	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v, err := expr.Eval(m.At(i, j), env)
			Expect(err).NotTo(HaveOccurred())
			a.Set(i, j, v)
		}
		v, err := expr.Eval(f[i], env)
		Expect(err).NotTo(HaveOccurred())
		b.SetVec(i, v)
	}
	var x mat.VecDense
	Expect(x.SolveVec(a, b)).To(Succeed())
	return x.RawVector().Data
}

var _ = Describe("Catalogue", func() {
	builders := map[string]func() (*models.Mechanism, error){
		"pendulum":        models.NewPendulum,
		"rotational":      models.NewRotational,
		"double_pendulum": models.NewDoublePendulum,
		"platform":        models.NewPlatform,
	}

	for name, build := range builders {
		It("builds a valid "+name, func() {
			m, err := build()
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Name).To(Equal(name))
			Expect(m.Graph.Validate()).To(Succeed())
			Expect(m.KinDiff).To(HaveLen(len(m.Coordinates)))
			Expect(m.States()).To(HaveLen(len(m.Coordinates) + len(m.Speeds)))

			env, err := m.Bind(nil)
			Expect(err).NotTo(HaveOccurred())
			for _, s := range m.States() {
				Expect(env).To(HaveKey(s), "no default for %s", s.Name())
			}
			for _, p := range m.Parameters() {
				Expect(env).To(HaveKey(p), "no default for %s", p.Name())
			}
			_, err = m.Symbols(m.Smoke...)
			Expect(err).NotTo(HaveOccurred())
		})
	}

	It("rejects bindings of unknown names", func() {
		m, err := models.NewPendulum()
		Expect(err).NotTo(HaveOccurred())
		_, err = m.Bind(map[string]float64{"zeta": 1})
		Expect(err).To(MatchError(models.ErrUnknownSymbol))
	})
})

var _ = Describe("Pendulum", func() {
	It("reduces to the oracle and smoke-evaluates to [1, 9.81]", func() {
		m, err := models.NewPendulum()
		Expect(err).NotTo(HaveOccurred())
		res, err := pipeline.Derive(context.Background(), m, pipeline.Options{Timeout: time.Minute, Verify: true})
		Expect(err).NotTo(HaveOccurred())

		u1 := m.Speeds[0]
		g, _ := m.Registry.Lookup("g")
		Expect(expr.Equal(res.Reduced.RHS[0], u1)).To(BeTrue())
		Expect(expr.Equal(res.Reduced.RHS[1], g)).To(BeTrue())

		out, err := res.Smoke()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(2))
		v0, ok0 := expr.Value(out[0])
		v1, ok1 := expr.Value(out[1])
		Expect(ok0 && ok1).To(BeTrue())
		Expect(v0).To(BeNumerically("~", 1, 1e-12))
		Expect(v1).To(BeNumerically("~", 9.81, 1e-12))
	})
})

var _ = Describe("Rotational", func() {
	It("gives u1' = -g sin(q1)/l", func() {
		m, err := models.NewRotational()
		Expect(err).NotTo(HaveOccurred())
		sys, err := pipeline.Equations(m, nil)
		Expect(err).NotTo(HaveOccurred())
		r, err := reduce.Reduce(context.Background(), sys, sys.KinDiffDict(), reduce.Options{Timeout: time.Minute})
		Expect(err).NotTo(HaveOccurred())

		l, _ := m.Registry.Lookup("l")
		g, _ := m.Registry.Lookup("g")
		want := expr.Neg(expr.Div(expr.Mul(g, expr.Sin(m.Coordinates[0])), l))
		Expect(expr.Equivalent(r.RHS[1], want)).To(BeTrue(), "u1' = %v", r.RHS[1])
		Expect(r.Verify(context.Background())).To(Succeed())
	})
})

var _ = Describe("DoublePendulum", func() {
	var (
		m   *models.Mechanism
		sys *kane.System
		ref *physics.DoublePendulum
		rng *rand.Rand
	)

	BeforeEach(func() {
		var err error
		m, err = models.NewDoublePendulum()
		Expect(err).NotTo(HaveOccurred())
		sys, err = pipeline.Equations(m, nil)
		Expect(err).NotTo(HaveOccurred())
		ref = physics.NewDoublePendulum()
		ref.M2, ref.L1 = 1.5, 0.8
		rng = rand.New(rand.NewPCG(7, 11))
	})

	state := func() dynamo.State {
		x := make(dynamo.State, 4)
		for i := range x {
			x[i] = 4*rng.Float64() - 2
		}
		return x
	}

	bind := func(x dynamo.State) map[*expr.Symbol]float64 {
		GinkgoHelper()
		env, err := m.Bind(map[string]float64{
			"m2": ref.M2, "l1": ref.L1,
			"q1": x[0], "q2": x[1], "u1": x[2], "u2": x[3],
		})
		Expect(err).NotTo(HaveOccurred())
		return env
	}

	It("has a symmetric positive definite mass matrix", func() {
		env := bind(state())
		mm := sys.MassMatrix()
		sym := mat.NewSymDense(2, nil)
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				v, err := expr.Eval(mm.At(i, j), env)
				Expect(err).NotTo(HaveOccurred())
				w, err := expr.Eval(mm.At(j, i), env)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(BeNumerically("~", w, 1e-12))
				sym.SetSym(i, j, v)
			}
		}
		var chol mat.Cholesky
		Expect(chol.Factorize(sym)).To(BeTrue())
	})

	It("matches the closed-form model at random states", func() {
		for k := 0; k < 20; k++ {
			x := state()
			got := accelerations(sys, bind(x))
			want := ref.Derive(x)
			Expect(got[0]).To(BeNumerically("~", want[2], 1e-9), "state %v", x)
			Expect(got[1]).To(BeNumerically("~", want[3], 1e-9), "state %v", x)
		}
	})

	It("compiles to the same numbers end to end", func() {
		res, err := pipeline.Derive(context.Background(), m, pipeline.Options{Timeout: 30 * time.Second})
		if errors.Is(err, reduce.ErrBudgetExceeded) {
			Skip("symbolic reduction exceeded its budget")
		}
		Expect(err).NotTo(HaveOccurred())

		model, err := res.Model(map[string]float64{"m2": ref.M2, "l1": ref.L1})
		Expect(err).NotTo(HaveOccurred())
		for k := 0; k < 10; k++ {
			x := state()
			d, err := model.Derive(x).MaxAbsDiff(ref.Derive(x))
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(BeNumerically("<", 1e-8), "state %v", x)
		}
	})
})

var _ = Describe("Platform", func() {
	var (
		m   *models.Mechanism
		sys *kane.System
	)

	BeforeEach(func() {
		var err error
		m, err = models.NewPlatform()
		Expect(err).NotTo(HaveOccurred())
		sys, err = pipeline.Equations(m, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("has six coordinates, six speeds and six leg outputs", func() {
		Expect(sys.Coordinates()).To(HaveLen(6))
		Expect(sys.Speeds()).To(HaveLen(6))
		Expect(sys.MassMatrixFull().Rows()).To(Equal(12))
		Expect(m.Outputs).To(HaveLen(6))
	})

	It("falls under gravity at rest with idle legs", func() {
		env, err := m.Bind(nil)
		Expect(err).NotTo(HaveOccurred())
		got := accelerations(sys, env)
		want := []float64{0, 0, -9.81, 0, 0, 0}
		for i := range want {
			Expect(got[i]).To(BeNumerically("~", want[i], 1e-9), "u%d'", i+1)
		}
	})

	It("is held by upward leg forces", func() {
		// the vertical share of each leg at the home pose is 1/L
		l := math.Sqrt(2.25 - math.Sqrt(3)/2)
		f := 10 * 9.81 * l / 6
		over := map[string]float64{}
		for i := 1; i <= 6; i++ {
			over[fmt.Sprintf("F%d", i)] = f
		}
		env, err := m.Bind(over)
		Expect(err).NotTo(HaveOccurred())
		got := accelerations(sys, env)
		for i := 0; i < 3; i++ {
			Expect(got[i]).To(BeNumerically("~", 0, 1e-9), "u%d'", i+1)
		}
	})

	It("reports equal leg lengths at the home pose", func() {
		env, err := m.Bind(nil)
		Expect(err).NotTo(HaveOccurred())
		want := math.Sqrt(2.25 - math.Sqrt(3)/2)
		for _, o := range m.Outputs {
			v, err := expr.Eval(o.Expr, env)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeNumerically("~", want, 1e-12), o.Name)
		}
	})

	It("keeps the mass matrix symmetric away from home", func() {
		env, err := m.Bind(map[string]float64{
			"q4": 0.2, "q5": -0.3, "q6": 0.4, "u4": 0.5, "u5": -0.1, "u6": 0.2,
		})
		Expect(err).NotTo(HaveOccurred())
		mm := sys.MassMatrix()
		for i := 0; i < 6; i++ {
			for j := i + 1; j < 6; j++ {
				a, err := expr.Eval(mm.At(i, j), env)
				Expect(err).NotTo(HaveOccurred())
				b, err := expr.Eval(mm.At(j, i), env)
				Expect(err).NotTo(HaveOccurred())
				Expect(a).To(BeNumerically("~", b, 1e-12))
			}
		}
	})
})
