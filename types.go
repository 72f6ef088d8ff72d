// Package ipddp implements the core of an Interior-Point Differential
// Dynamic Programming (IPDDP) solver for finite-horizon discrete-time
// optimal control problems with nonlinear dynamics, nonlinear costs, and
// path/terminal inequality constraints.
package ipddp

import "gonum.org/v1/gonum/mat"

// Trajectory holds the ordered state and control sequences of a rollout.
//
// Invariant: len(X) == H+1, len(U) == H, X[0] == the problem's initial
// state for any trajectory produced by a successful forward pass.
type Trajectory struct {
	X [][]float64 // states x_0 .. x_H, each length n
	U [][]float64 // controls u_0 .. u_{H-1}, each length m
}

// Horizon returns the number of control stages H.
func (t Trajectory) Horizon() int { return len(t.U) }

func cloneVec(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	return c
}

func cloneMat(v [][]float64) [][]float64 {
	c := make([][]float64, len(v))
	for i, r := range v {
		c[i] = cloneVec(r)
	}
	return c
}

// Clone returns a deep copy of the trajectory.
func (t Trajectory) Clone() Trajectory {
	return Trajectory{X: cloneMat(t.X), U: cloneMat(t.U)}
}

// ConstraintTrace holds the per-stage residual, slack, and dual history of
// one named constraint across the whole horizon (spec.md §3, "per-stage
// constraint storage").
type ConstraintTrace struct {
	G [][]float64 // residual g_c(x_t,u_t) - ub_c, one entry per stage, length d_c
	S [][]float64 // slack, strictly positive (invariant I1)
	Y [][]float64 // dual, strictly positive (invariant I1)

	// Feedback gains for the slack/dual recursion, one entry per stage.
	// Ks/Ky entries are nil until the backward pass fills them.
	Ks []*mat.Dense // d_c x n
	Ky []*mat.Dense // d_c x n
	ks [][]float64  // d_c
	ky [][]float64  // d_c
}

func newConstraintTrace(horizon, dc int) *ConstraintTrace {
	ct := &ConstraintTrace{
		G:  make([][]float64, horizon),
		S:  make([][]float64, horizon),
		Y:  make([][]float64, horizon),
		Ks: make([]*mat.Dense, horizon),
		Ky: make([]*mat.Dense, horizon),
		ks: make([][]float64, horizon),
		ky: make([][]float64, horizon),
	}
	for t := 0; t < horizon; t++ {
		ct.G[t] = make([]float64, dc)
		ct.S[t] = make([]float64, dc)
		ct.Y[t] = make([]float64, dc)
		ct.ks[t] = make([]float64, dc)
		ct.ky[t] = make([]float64, dc)
	}
	return ct
}

// ScalarState is the live scalar bookkeeping described in spec.md §3.
type ScalarState struct {
	J         float64 // current cost
	Phi       float64 // merit
	Theta     float64 // filter's current l1-aggregated constraint violation
	InfPr     float64 // primal infeasibility ‖g+s‖∞
	InfDu     float64 // dual infeasibility ‖Q_u‖∞ (unscaled)
	InfComp   float64 // complementarity infeasibility ‖y⊙s-μ‖∞
	StepNorm  float64 // ‖d‖∞
	Rho       float64 // regularization
	Mu        float64 // barrier parameter
	DV0, DV1  float64 // predicted reduction coefficients
	StepLen   float64 // accepted alpha of the last forward pass
}

// ControlGains holds the feedforward/feedback control law produced by the
// backward pass for one stage: u = ubar + alpha*k + K*(x-xbar).
type ControlGains struct {
	Ku [][]float64 // k_u[t], length m
	KU []*mat.Dense
}
