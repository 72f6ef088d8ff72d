package ipddp

import "gonum.org/v1/gonum/mat"

// workspace holds the backward-pass scratch buffers preallocated once to
// the problem's dimensions and owned exclusively by the solver (spec.md §5
// "Memory": Q-block/LDLT scratch and stacked constraint vectors
// "preallocated once at initialization ... owned exclusively by the
// solver"). ensure is a no-op once a workspace already covers the requested
// dimensions, so repeated Solve calls on the same Problem do not reallocate,
// and every outer iteration's H backward-pass stages reuse the same buffers
// rather than allocating fresh ones per stage.
type workspace struct {
	n, m, dMax int

	quu *mat.Dense // m x m scratch for the regularized Q_uu / Q~_uu block
	qux *mat.Dense // m x n scratch for the constraint-augmented Q_ux block
	rhs *mat.Dense // m x (1+n) scratch for the augmented Cholesky RHS

	// stacked{G,S,Y} back the concatenation of every path constraint's
	// per-stage residual/slack/dual into one length-D vector, reset (not
	// reallocated) at the top of every backward-pass stage.
	stackedG []float64
	stackedS []float64
	stackedY []float64
}

func newWorkspace() *workspace { return &workspace{} }

// ensure grows the workspace buffers to at least (n, m, dMax), reusing the
// existing allocation when it is already big enough.
func (w *workspace) ensure(n, m, dMax int) {
	if n <= w.n && m <= w.m && dMax <= w.dMax {
		return
	}
	w.n, w.m, w.dMax = max3(w.n, n), max3(w.m, m), max3(w.dMax, dMax)
	w.quu = mat.NewDense(w.m, w.m, nil)
	w.qux = mat.NewDense(w.m, w.n, nil)
	w.rhs = mat.NewDense(w.m, 1+w.n, nil)
	w.stackedG = make([]float64, 0, w.dMax)
	w.stackedS = make([]float64, 0, w.dMax)
	w.stackedY = make([]float64, 0, w.dMax)
}

// resetStacks returns the stacked-vector scratch slices truncated to zero
// length but retaining their preallocated capacity, ready for a fresh
// per-stage append sequence.
func (w *workspace) resetStacks() (g, s, y []float64) {
	return w.stackedG[:0], w.stackedS[:0], w.stackedY[:0]
}

func max3(a, b int) int {
	if b > a {
		return b
	}
	return a
}
