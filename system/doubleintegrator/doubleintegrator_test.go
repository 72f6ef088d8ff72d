package doubleintegrator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDynamicsIntegratesVelocity checks plain explicit Euler: position
// advances from the *current* velocity, not the updated one, matching
// A=[[1,dt],[0,1]], B=[[0],[dt]] (spec.md §8 scenario 1).
func TestDynamicsIntegratesVelocity(t *testing.T) {
	sys := New(1, 0.1)
	x1 := sys.DiscreteDynamics([]float64{0, 0}, []float64{1}, 0)
	require.InDelta(t, 0.0, x1[0], 1e-9)
	require.InDelta(t, 0.1, x1[1], 1e-9)

	x2 := sys.DiscreteDynamics([]float64{0, 1}, []float64{0}, 0)
	require.InDelta(t, 0.1, x2[0], 1e-9)
	require.InDelta(t, 1.0, x2[1], 1e-9)
}

func TestJacobiansAreConstant(t *testing.T) {
	sys := New(2, 0.05)
	fx1, fu1 := sys.Jacobians([]float64{0, 0, 0, 0}, []float64{0, 0}, 0)
	fx2, fu2 := sys.Jacobians([]float64{5, -3, 1, 2}, []float64{9, -9}, 1)
	require.True(t, mattEqual(fx1, fx2))
	require.True(t, mattEqual(fu1, fu2))
}

func mattEqual(a, b interface{ At(int, int) float64 }) bool {
	type dims interface{ Dims() (int, int) }
	da, db := a.(dims), b.(dims)
	ra, ca := da.Dims()
	rb, cb := db.Dims()
	if ra != rb || ca != cb {
		return false
	}
	for i := 0; i < ra; i++ {
		for j := 0; j < ca; j++ {
			if a.At(i, j) != b.At(i, j) {
				return false
			}
		}
	}
	return true
}

func TestHessiansAreZero(t *testing.T) {
	sys := New(1, 0.1)
	fxx, fuu, fux := sys.Hessians([]float64{0, 0}, []float64{0}, 0)
	require.Len(t, fxx, 2)
	require.Len(t, fuu, 2)
	require.Len(t, fux, 2)
	for i := range fxx {
		r, c := fxx[i].Dims()
		for a := 0; a < r; a++ {
			for b := 0; b < c; b++ {
				require.Zero(t, fxx[i].At(a, b))
			}
		}
	}
}
