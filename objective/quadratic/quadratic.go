// Package quadratic implements a quadratic state/control tracking cost,
// the reference Objective for the double-integrator and car scenarios.
package quadratic

import (
	"math"

	"github.com/gocddp/ipddp"
	"gonum.org/v1/gonum/mat"
)

// Objective is l(x,u,t) = 0.5*(x-xref)'Q(x-xref) + 0.5*(u-uref)'R(u-uref)
// running cost and phi(x) = 0.5*(x-xref)'Qf(x-xref) terminal cost.
type Objective struct {
	Q, R, Qf *mat.Dense
	xref     []float64
	xrefSeq  [][]float64
	uref     []float64
	dt       float64
}

// New builds a quadratic tracking cost around a single reference state,
// with zero control reference by default.
func New(q, r, qf *mat.Dense, xref []float64) *Objective {
	m, _ := r.Dims()
	return &Objective{Q: q, R: r, Qf: qf, xref: xref, uref: make([]float64, m)}
}

// SetControlReference sets the control setpoint uref used by the running
// cost's control term.
func (o *Objective) SetControlReference(uref []float64) { o.uref = uref }

func (o *Objective) SetReferenceState(s []float64)    { o.xref = s; o.xrefSeq = nil }
func (o *Objective) SetReferenceStates(s [][]float64) { o.xrefSeq = s }

// Reference returns the currently tracked single-state reference.
func (o *Objective) Reference() []float64 { return o.xref }

// SetTimestep records the discretization step used to convert the elapsed
// time RunningCost/RunningCostGradients receive back into a stage index for
// xrefSeq lookups. Called by Problem.initializeIfNecessary, since Problem
// is the only place that knows the timestep when the objective is wired up.
func (o *Objective) SetTimestep(dt float64) { o.dt = dt }

func (o *Objective) refAt(t float64) []float64 {
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

func quadForm(q *mat.Dense, d []float64) float64 {
	v := mat.NewVecDense(len(d), d)
	var qv mat.VecDense
	qv.MulVec(q, v)
	return 0.5 * mat.Dot(v, &qv)
}

func gradVec(q *mat.Dense, d []float64) []float64 {
	v := mat.NewVecDense(len(d), d)
	var qv mat.VecDense
	qv.MulVec(q, v)
	out := make([]float64, len(d))
	for i := range out {
		out[i] = qv.AtVec(i)
	}
	return out
}

func (o *Objective) RunningCost(x, u []float64, t float64) float64 {
	dx := diff(x, o.refAt(t))
	du := diff(u, o.uref)
	return quadForm(o.Q, dx) + quadForm(o.R, du)
}

func (o *Objective) TerminalCost(x []float64) float64 {
	dx := diff(x, o.xref)
	return quadForm(o.Qf, dx)
}

func (o *Objective) RunningCostGradients(x, u []float64, t float64) (lx, lu []float64, lxx, luu, lux *mat.Dense) {
	dx := diff(x, o.refAt(t))
	du := diff(u, o.uref)
	lx = gradVec(o.Q, dx)
	lu = gradVec(o.R, du)
	lxx = o.Q
	luu = o.R
	lux = mat.NewDense(len(u), len(x), nil)
	return
}

func (o *Objective) TerminalCostGradients(x []float64) (phix []float64, phixx *mat.Dense) {
	dx := diff(x, o.xref)
	return gradVec(o.Qf, dx), o.Qf
}

func (o *Objective) Evaluate(traj ipddp.Trajectory, dt float64) float64 {
	total := 0.0
	for t, ut := range traj.U {
		total += o.RunningCost(traj.X[t], ut, float64(t)*dt)
	}
	total += o.TerminalCost(traj.X[len(traj.X)-1])
	return total
}

func diff(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}
