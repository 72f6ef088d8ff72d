package ipddp

// testQuadraticObjective is a copy of objective/quadratic.Objective's logic,
// duplicated here because that package imports this one (for the Objective
// interface's Trajectory parameter), so internal (package ipddp) tests can't
// import it without an import cycle.
import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type testQuadraticObjective struct {
	Q, R, Qf *mat.Dense
	xref     []float64
	xrefSeq  [][]float64
	uref     []float64
	dt       float64
}

func newTestQuadraticObjective(q, r, qf *mat.Dense, xref []float64) *testQuadraticObjective {
	m, _ := r.Dims()
	return &testQuadraticObjective{Q: q, R: r, Qf: qf, xref: xref, uref: make([]float64, m)}
}

func (o *testQuadraticObjective) SetReferenceState(s []float64)    { o.xref = s; o.xrefSeq = nil }
func (o *testQuadraticObjective) SetReferenceStates(s [][]float64) { o.xrefSeq = s }

func (o *testQuadraticObjective) Reference() []float64 { return o.xref }

func (o *testQuadraticObjective) refAt(t float64) []float64 {
	if o.xrefSeq != nil {
		dt := o.dt
		if dt <= 0 {
			dt = 1
		}
		idx := int(math.Round(t / dt))
		if idx >= 0 && idx < len(o.xrefSeq) {
			return o.xrefSeq[idx]
		}
	}
	return o.xref
}

func testQuadForm(q *mat.Dense, d []float64) float64 {
	v := mat.NewVecDense(len(d), d)
	var qv mat.VecDense
	qv.MulVec(q, v)
	return 0.5 * mat.Dot(v, &qv)
}

func testGradVec(q *mat.Dense, d []float64) []float64 {
	v := mat.NewVecDense(len(d), d)
	var qv mat.VecDense
	qv.MulVec(q, v)
	out := make([]float64, len(d))
	for i := range out {
		out[i] = qv.AtVec(i)
	}
	return out
}

func (o *testQuadraticObjective) RunningCost(x, u []float64, t float64) float64 {
	dx := testDiff(x, o.refAt(t))
	du := testDiff(u, o.uref)
	return testQuadForm(o.Q, dx) + testQuadForm(o.R, du)
}

func (o *testQuadraticObjective) TerminalCost(x []float64) float64 {
	dx := testDiff(x, o.xref)
	return testQuadForm(o.Qf, dx)
}

func (o *testQuadraticObjective) RunningCostGradients(x, u []float64, t float64) (lx, lu []float64, lxx, luu, lux *mat.Dense) {
	dx := testDiff(x, o.refAt(t))
	du := testDiff(u, o.uref)
	lx = testGradVec(o.Q, dx)
	lu = testGradVec(o.R, du)
	lxx = o.Q
	luu = o.R
	lux = mat.NewDense(len(u), len(x), nil)
	return
}

func (o *testQuadraticObjective) TerminalCostGradients(x []float64) (phix []float64, phixx *mat.Dense) {
	dx := testDiff(x, o.xref)
	return testGradVec(o.Qf, dx), o.Qf
}

func (o *testQuadraticObjective) Evaluate(traj Trajectory, dt float64) float64 {
	total := 0.0
	for t, ut := range traj.U {
		total += o.RunningCost(traj.X[t], ut, float64(t)*dt)
	}
	total += o.TerminalCost(traj.X[len(traj.X)-1])
	return total
}

func testDiff(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}
