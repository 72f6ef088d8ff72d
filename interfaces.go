package ipddp

import "gonum.org/v1/gonum/mat"

// System is the dynamical-system capability set (spec.md §6). Concrete
// dynamics (car, spacecraft ROE, double integrator, ...) are external
// collaborators referenced only through this contract; the core solver
// never assumes anything about a system beyond these methods.
type System interface {
	// StateDim and ControlDim report n and m.
	StateDim() int
	ControlDim() int

	// DiscreteDynamics propagates one step: x' = f(x, u, t).
	DiscreteDynamics(x, u []float64, t float64) []float64

	// Jacobians returns the continuous-time Jacobians F_x (n x n) and
	// F_u (n x m) at (x, u, t).
	Jacobians(x, u []float64, t float64) (Fx, Fu *mat.Dense)

	// Hessians returns the continuous-time Hessians F_xx, F_uu, F_ux, each
	// a length-n slice of matrices (one per output-state component). Only
	// required when the solver is not running in iLQR mode.
	Hessians(x, u []float64, t float64) (Fxx, Fuu, Fux []*mat.Dense)
}

// Objective is the running/terminal cost capability set (spec.md §6).
type Objective interface {
	// RunningCost and TerminalCost evaluate l(x,u,t) and phi_T(x).
	RunningCost(x, u []float64, t float64) float64
	TerminalCost(x []float64) float64

	// RunningCostGradients returns l_x, l_u, l_xx, l_uu, l_ux at (x,u,t).
	RunningCostGradients(x, u []float64, t float64) (lx, lu []float64, lxx, luu, lux *mat.Dense)

	// TerminalCostGradients returns phi_T_x and phi_T_xx at x.
	TerminalCostGradients(x []float64) (phix []float64, phixx *mat.Dense)

	// Evaluate returns the total cost sum_t l(x_t,u_t,t) + phi_T(x_H).
	Evaluate(traj Trajectory, dt float64) float64

	// SetReferenceState / SetReferenceStates set the target state(s) that
	// the running/terminal cost track.
	SetReferenceState(s []float64)
	SetReferenceStates(s [][]float64)

	// Reference returns the single-state reference currently tracked (the
	// last value passed to SetReferenceState), for the fatal consistency
	// check spec.md §7 requires between it and Problem.referenceState.
	Reference() []float64
}

// Constraint is a single named path or terminal inequality constraint
// g_c(x,u) - upper_bound_c <= 0 (spec.md §6).
type Constraint interface {
	// DualDim returns d_c, the dimension of this constraint's dual/slack.
	DualDim() int

	// Evaluate returns g_c(x,u) (before subtracting the upper bound).
	Evaluate(x, u []float64) []float64

	// UpperBound returns the constant upper bound subtracted from Evaluate.
	UpperBound() []float64

	// StateJacobian and ControlJacobian return d g_c / d x (d_c x n) and
	// d g_c / d u (d_c x m) at (x, u).
	StateJacobian(x, u []float64) *mat.Dense
	ControlJacobian(x, u []float64) *mat.Dense
}

// Residual evaluates g_c(x,u) - upper_bound_c.
func Residual(c Constraint, x, u []float64) []float64 {
	g := c.Evaluate(x, u)
	ub := c.UpperBound()
	r := make([]float64, len(g))
	for i := range g {
		r[i] = g[i] - ub[i]
	}
	return r
}
