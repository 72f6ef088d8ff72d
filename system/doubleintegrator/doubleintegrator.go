// Package doubleintegrator implements a linear double-integrator system,
// the reference plant for the LQR-sanity and box-constrained scenarios.
package doubleintegrator

import "gonum.org/v1/gonum/mat"

// System is a chain of nDim decoupled double integrators: position and
// velocity per axis, driven by an acceleration input per axis.
// State layout: [p_1, v_1, p_2, v_2, ...]. Control layout: [a_1, a_2, ...].
type System struct {
	nDim     int
	timestep float64
	fx       *mat.Dense
	fu       *mat.Dense
}

// New builds an nDim-axis double integrator, discretized at dt, and
// precomputes its (constant) continuous-time Jacobians.
func New(nDim int, dt float64) *System {
	n, m := 2*nDim, nDim
	fx := mat.NewDense(n, n, nil)
	fu := mat.NewDense(n, m, nil)
	for i := 0; i < nDim; i++ {
		fx.Set(2*i, 2*i+1, 1)
		fu.Set(2*i+1, i, 1)
	}
	return &System{nDim: nDim, timestep: dt, fx: fx, fu: fu}
}

func (s *System) StateDim() int   { return 2 * s.nDim }
func (s *System) ControlDim() int { return s.nDim }

// DiscreteDynamics applies plain explicit Euler: position and velocity both
// update from their current-step values, matching A=[[1,dt],[0,1]],
// B=[[0],[dt]] and the continuous-time Jacobians returned below.
func (s *System) DiscreteDynamics(x, u []float64, t float64) []float64 {
	_ = t
	out := make([]float64, len(x))
	dt := s.timestep
	for i := 0; i < s.nDim; i++ {
		p, v, a := x[2*i], x[2*i+1], u[i]
		out[2*i] = p + dt*v
		out[2*i+1] = v + dt*a
	}
	return out
}

// Jacobians returns the constant continuous-time linearization; the caller
// (backward.go) applies the timestep discretization A = I + dt*Fx.
func (s *System) Jacobians(x, u []float64, t float64) (*mat.Dense, *mat.Dense) {
	return s.fx, s.fu
}

// Hessians returns all-zero tensors: the dynamics are exactly linear.
func (s *System) Hessians(x, u []float64, t float64) (fxx, fuu, fux []*mat.Dense) {
	n, m := s.StateDim(), s.ControlDim()
	fxx = make([]*mat.Dense, n)
	fuu = make([]*mat.Dense, n)
	fux = make([]*mat.Dense, n)
	for i := 0; i < n; i++ {
		fxx[i] = mat.NewDense(n, n, nil)
		fuu[i] = mat.NewDense(m, m, nil)
		fux[i] = mat.NewDense(m, n, nil)
	}
	return
}
