package ipddp

import (
	"testing"

	"github.com/gocddp/ipddp/constraint/box"
	"github.com/gocddp/ipddp/system/doubleintegrator"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestConstrainedProblem(t *testing.T) *Problem {
	t.Helper()
	sys := doubleintegrator.New(1, 0.1)
	q := mat.NewDense(2, 2, []float64{1, 0, 0, 0.1})
	r := mat.NewDense(1, 1, []float64{0.01})
	qf := mat.NewDense(2, 2, []float64{10, 0, 0, 1})
	obj := newTestQuadraticObjective(q, r, qf, []float64{1, 0})

	p, err := NewProblem(sys, obj)
	require.NoError(t, err)
	p.SetHorizon(5)
	p.SetTimestep(0.1)
	p.SetInitialState([]float64{0, 0})
	require.NoError(t, p.AddPathConstraint("accel_bound", box.NewControlUpperBound(1, []int{0}, []float64{2})))
	return p
}

// TestInitializeConstraintTrajectoriesFloorsSlackAtScale checks spec.md §9's
// resolution of the warm-start slack init predicate: required_slack must
// floor at options.IPDDP.SlackVarInitScale, not a tiny numerical constant,
// per original_source's initializeDualSlackVariables().
func TestInitializeConstraintTrajectoriesFloorsSlackAtScale(t *testing.T) {
	p := newTestConstrainedProblem(t)
	require.NoError(t, p.initializeIfNecessary())

	scaleS := p.options.IPDDP.SlackVarInitScale
	require.Equal(t, 1.0, scaleS)

	for stage := 0; stage < p.horizon; stage++ {
		require.GreaterOrEqual(t, p.pathTraces["accel_bound"].S[stage][0], scaleS-1e-12)
	}
}

// TestInitializeConstraintTrajectoriesWarmStartPreserveThreshold checks the
// preserve predicate uses the corrected required_slack floor: a stale slack
// that would have been preserved under a 1e-8 floor (but not under the
// scaleS floor) must be reset.
func TestInitializeConstraintTrajectoriesWarmStartPreserveThreshold(t *testing.T) {
	p := newTestConstrainedProblem(t)
	require.NoError(t, p.initializeIfNecessary())
	p.options.WarmStart = true

	// Residual g = u - upper = 0 - 2 = -2, so -g = 2 > scaleS: required =
	// max(scaleS, 2) = 2 either way, no behavioral difference here. Use a
	// tighter case instead: drive u close to the bound so -g < scaleS.
	p.traj.U[0][0] = 1.7 // g = 1.7-2 = -0.3, -g = 0.3 < scaleS = 1.0
	p.pathTraces["accel_bound"].S[0][0] = 0.05

	p.initializeConstraintTrajectories(true)

	// required = max(scaleS, 0.3) = 1.0, preserve threshold = 0.1*1.0 = 0.1.
	// 0.05 < 0.1, so the stale slack must be reset to required = 1.0, not
	// preserved (which the old 1e-8-floored required = 0.3, threshold 0.03,
	// would have allowed since 0.05 >= 0.03).
	require.InDelta(t, 1.0, p.pathTraces["accel_bound"].S[0][0], 1e-12)
}
