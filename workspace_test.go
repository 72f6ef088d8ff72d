package ipddp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkspaceEnsureGrowsMonotonically(t *testing.T) {
	w := newWorkspace()
	w.ensure(2, 1, 3)
	require.Equal(t, 2, w.n)
	require.Equal(t, 1, w.m)
	require.Equal(t, 3, w.dMax)

	quuBefore := w.quu
	w.ensure(1, 1, 1)
	require.Same(t, quuBefore, w.quu, "shrinking a request must not reallocate")

	w.ensure(5, 5, 5)
	require.NotSame(t, quuBefore, w.quu, "growing a request must reallocate")
	require.Equal(t, 5, w.n)
}

func TestWorkspaceResetStacksReusesCapacity(t *testing.T) {
	w := newWorkspace()
	w.ensure(2, 1, 4)

	g, s, y := w.resetStacks()
	require.Len(t, g, 0)
	require.Len(t, s, 0)
	require.Len(t, y, 0)
	require.Equal(t, 4, cap(g))

	g = append(g, 1.0, 2.0)
	before := &g[0]

	g2, _, _ := w.resetStacks()
	require.Len(t, g2, 0)
	g2 = append(g2, 9.0)
	require.Same(t, before, &g2[0], "resetStacks must reuse the same backing array across calls")
}
