// Package box implements one-sided box inequality constraints on the
// control or state vector, the reference Constraint for the
// box-constrained double-integrator and car-parking scenarios.
package box

import "gonum.org/v1/gonum/mat"

// Control is g_c(x,u) = u - upper <= 0 on a subset of control components,
// grounded on the teacher's Bound-per-variable convention (lbfgsb.Bound).
type Control struct {
	m       int
	indices []int
	upper   []float64
	scale   []float64 // -1 turns an upper bound into a lower bound: -(u-lower) <= 0
}

// NewControlUpperBound constrains u[idx] <= upper[idx] for each given index.
func NewControlUpperBound(m int, indices []int, upper []float64) *Control {
	scale := make([]float64, len(indices))
	for i := range scale {
		scale[i] = 1
	}
	return &Control{m: m, indices: indices, upper: upper, scale: scale}
}

// NewControlLowerBound constrains u[idx] >= lower[idx], expressed as
// -(u[idx]-lower[idx]) <= 0.
func NewControlLowerBound(m int, indices []int, lower []float64) *Control {
	c := NewControlUpperBound(m, indices, lower)
	for i := range c.scale {
		c.scale[i] = -1
	}
	return c
}

func (c *Control) DualDim() int { return len(c.indices) }

func (c *Control) Evaluate(x, u []float64) []float64 {
	out := make([]float64, len(c.indices))
	for i, idx := range c.indices {
		out[i] = c.scale[i] * u[idx]
	}
	return out
}

func (c *Control) UpperBound() []float64 {
	out := make([]float64, len(c.indices))
	for i, idx := range c.indices {
		out[i] = c.scale[i] * c.upper[i]
		_ = idx
	}
	return out
}

func (c *Control) StateJacobian(x, u []float64) *mat.Dense {
	return mat.NewDense(len(c.indices), len(x), nil)
}

func (c *Control) ControlJacobian(x, u []float64) *mat.Dense {
	j := mat.NewDense(len(c.indices), c.m, nil)
	for i, idx := range c.indices {
		j.Set(i, idx, c.scale[i])
	}
	return j
}

// State is the state-vector analogue of Control: g_c(x,u) = x - upper <= 0.
type State struct {
	n       int
	indices []int
	upper   []float64
	scale   []float64
}

// NewStateUpperBound constrains x[idx] <= upper[idx].
func NewStateUpperBound(n int, indices []int, upper []float64) *State {
	scale := make([]float64, len(indices))
	for i := range scale {
		scale[i] = 1
	}
	return &State{n: n, indices: indices, upper: upper, scale: scale}
}

// NewStateLowerBound constrains x[idx] >= lower[idx].
func NewStateLowerBound(n int, indices []int, lower []float64) *State {
	s := NewStateUpperBound(n, indices, lower)
	for i := range s.scale {
		s.scale[i] = -1
	}
	return s
}

func (s *State) DualDim() int { return len(s.indices) }

func (s *State) Evaluate(x, u []float64) []float64 {
	out := make([]float64, len(s.indices))
	for i, idx := range s.indices {
		out[i] = s.scale[i] * x[idx]
	}
	return out
}

func (s *State) UpperBound() []float64 {
	out := make([]float64, len(s.indices))
	for i := range s.indices {
		out[i] = s.scale[i] * s.upper[i]
	}
	return out
}

func (s *State) StateJacobian(x, u []float64) *mat.Dense {
	j := mat.NewDense(len(s.indices), s.n, nil)
	for i, idx := range s.indices {
		j.Set(i, idx, s.scale[i])
	}
	return j
}

func (s *State) ControlJacobian(x, u []float64) *mat.Dense {
	m := 0
	if u != nil {
		m = len(u)
	}
	return mat.NewDense(len(s.indices), m, nil)
}
