package ipddp

import (
	"testing"

	"github.com/gocddp/ipddp/system/doubleintegrator"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestLQR(t *testing.T) *Problem {
	t.Helper()
	sys := doubleintegrator.New(1, 0.1)
	q := mat.NewDense(2, 2, []float64{1, 0, 0, 0.1})
	r := mat.NewDense(1, 1, []float64{0.01})
	qf := mat.NewDense(2, 2, []float64{10, 0, 0, 1})
	obj := newTestQuadraticObjective(q, r, qf, []float64{1, 0})

	p, err := NewProblem(sys, obj)
	require.NoError(t, err)
	p.SetHorizon(10)
	p.SetTimestep(0.1)
	p.SetInitialState([]float64{0, 0})
	require.NoError(t, p.initializeIfNecessary())
	p.workspace.ensure(p.system.StateDim(), p.system.ControlDim(), p.dualDim)
	return p
}

func TestBackwardPassUnconstrainedProducesGains(t *testing.T) {
	p := newTestLQR(t)
	cache, err := p.computeDerivatives(p.traj)
	require.NoError(t, err)

	bw, info := p.backwardPass(cache)
	require.True(t, info.ok())
	require.Len(t, bw.Ku, p.horizon)
	require.Len(t, bw.KU, p.horizon)
	for stage := 0; stage < p.horizon; stage++ {
		require.Len(t, bw.Ku[stage], p.system.ControlDim())
		r, c := bw.KU[stage].Dims()
		require.Equal(t, p.system.ControlDim(), r)
		require.Equal(t, p.system.StateDim(), c)
	}
}

func TestBackwardPassDVIsNonPositiveDirectionOfDescent(t *testing.T) {
	p := newTestLQR(t)
	cache, err := p.computeDerivatives(p.traj)
	require.NoError(t, err)

	bw, info := p.backwardPass(cache)
	require.True(t, info.ok())
	require.LessOrEqual(t, bw.DV0, 0.0)
	require.GreaterOrEqual(t, bw.DV1, 0.0)
}
