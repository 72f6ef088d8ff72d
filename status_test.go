package ipddp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvergedStatuses(t *testing.T) {
	require.True(t, OptimalSolutionFound.Converged())
	require.True(t, AcceptableSolutionFound.Converged())
	require.False(t, RegularizationLimitReachedNotConverged.Converged())
	require.False(t, MaxIterationsReached.Converged())
	require.False(t, UnknownSolver.Converged())
}

func TestStatusStrings(t *testing.T) {
	require.Equal(t, "OptimalSolutionFound", OptimalSolutionFound.String())
	require.Equal(t, "UnknownSolver", UnknownSolver.String())
}
