// Package car implements the kinematic bicycle model used by the parking
// scenario, differentiated numerically via numdiff.
package car

import (
	"math"

	"github.com/gocddp/ipddp/numdiff"
	"gonum.org/v1/gonum/mat"
)

// State layout: [x, y, heading, speed]. Control layout: [acceleration,
// steering angle].
const (
	stateDim   = 4
	controlDim = 2
)

// System is a kinematic bicycle model with wheelbase Wheelbase, discretized
// at Timestep with forward Euler.
type System struct {
	Wheelbase float64
	Timestep  float64
}

// New builds a car system with the given wheelbase and integration step.
func New(wheelbase, dt float64) *System {
	return &System{Wheelbase: wheelbase, Timestep: dt}
}

func (s *System) StateDim() int   { return stateDim }
func (s *System) ControlDim() int { return controlDim }

func (s *System) continuous(x, u []float64) []float64 {
	heading, speed := x[2], x[3]
	accel, steer := u[0], u[1]
	return []float64{
		speed * math.Cos(heading),
		speed * math.Sin(heading),
		speed * math.Tan(steer) / s.Wheelbase,
		accel,
	}
}

func (s *System) DiscreteDynamics(x, u []float64, t float64) []float64 {
	_ = t
	dx := s.continuous(x, u)
	out := make([]float64, stateDim)
	for i := range out {
		out[i] = x[i] + s.Timestep*dx[i]
	}
	return out
}

// dynamics adapts s.continuous to numdiff's Dynamics signature.
func (s *System) dynamics(x, u, out []float64) {
	copy(out, s.continuous(x, u))
}

// Jacobians differentiates the continuous dynamics numerically, returning
// Fx and Fu directly (spec.md §4.2's System.Jacobians contract).
func (s *System) Jacobians(x, u []float64, t float64) (*mat.Dense, *mat.Dense) {
	_ = t
	return numdiff.Jacobian(stateDim, controlDim, s.dynamics, x, u)
}

// Hessians differentiates the continuous dynamics a second time, returning
// the length-n slice of Fxx/Fuu/Fux blocks that tensorContractVx
// (linalg.go) contracts against V_x (spec.md §4.3 step 2).
func (s *System) Hessians(x, u []float64, t float64) (fxx, fuu, fux []*mat.Dense) {
	_ = t
	return numdiff.Hessian(stateDim, controlDim, s.dynamics, x, u)
}
