package ipddp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalingFactorFloorsAtSMax(t *testing.T) {
	f := scalingFactor([]float64{0.1, 0.2}, []float64{0.1, 0.2}, 4, 100)
	require.Equal(t, 1.0, f)
}

func TestScalingFactorGrowsWithLargeDuals(t *testing.T) {
	duals := make([]float64, 10)
	for i := range duals {
		duals[i] = 1000
	}
	f := scalingFactor(duals, nil, 0, 100)
	require.Greater(t, f, 1.0)
}

func TestCheckTerminationOptimal(t *testing.T) {
	p := &Problem{options: DefaultOptions()}
	p.scalar.Rho = p.options.Regularization.InitialValue
	status, done := p.checkTermination(convergenceMetrics{kktError: 1e-10}, 1, 0)
	require.True(t, done)
	require.Equal(t, OptimalSolutionFound, status)
}

// TestCheckTerminationAcceptableBySmallStep exercises spec.md §4.6's second
// acceptable-solution disjunct: a small step norm and small primal
// infeasibility after at least one iteration.
func TestCheckTerminationAcceptableBySmallStep(t *testing.T) {
	p := &Problem{options: DefaultOptions()}
	p.scalar.Rho = p.options.Regularization.InitialValue
	p.scalar.StepNorm = p.options.Tolerance // < 10*tolerance
	status, done := p.checkTermination(convergenceMetrics{kktError: 1, infPr: 1e-5}, 1, 0)
	require.True(t, done)
	require.Equal(t, AcceptableSolutionFound, status)
}

// TestCheckTerminationAcceptableBySmallChange exercises the first disjunct:
// a small cost change after enough iterations with small primal/complementary
// infeasibility.
func TestCheckTerminationAcceptableBySmallChange(t *testing.T) {
	p := &Problem{options: DefaultOptions()}
	p.scalar.Rho = p.options.Regularization.InitialValue
	p.scalar.StepNorm = 1 // keep the small-step disjunct from firing instead
	m := convergenceMetrics{kktError: 1, infPr: 1e-4, infComp: 1e-4}
	status, done := p.checkTermination(m, 11, p.options.AcceptableTolerance/10)
	require.True(t, done)
	require.Equal(t, AcceptableSolutionFound, status)
}

func TestCheckTerminationRegularizationLimit(t *testing.T) {
	p := &Problem{options: DefaultOptions()}
	p.scalar.Rho = p.options.Regularization.MaxValue
	status, done := p.checkTermination(convergenceMetrics{kktError: 1, infPr: 1, infComp: 1}, 1, 1)
	require.True(t, done)
	require.Equal(t, RegularizationLimitReachedNotConverged, status)
}

func TestCheckTerminationNotDoneYet(t *testing.T) {
	p := &Problem{options: DefaultOptions()}
	p.scalar.Rho = p.options.Regularization.InitialValue
	p.scalar.StepNorm = 1
	_, done := p.checkTermination(convergenceMetrics{kktError: 1, infPr: 1, infComp: 1}, 1, 1)
	require.False(t, done)
}
