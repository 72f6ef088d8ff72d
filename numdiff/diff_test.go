package numdiff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// dyn is a small nonlinear two-state, one-control system with a
// closed-form Jacobian/Hessian, used to check the finite-difference
// estimates against, in the spirit of system/car's bicycle model.
func dyn(x, u, out []float64) {
	out[0] = x[0]*math.Sin(x[1]) + u[0]*x[0]
	out[1] = x[1]*math.Cos(x[0]) - u[0]*u[0]
}

func analyticJacobian(x, u []float64) (fx, fu [2][]float64) {
	fx[0] = []float64{math.Sin(x[1]) + u[0], x[0] * math.Cos(x[1])}
	fx[1] = []float64{-x[1] * math.Sin(x[0]), math.Cos(x[0])}
	fu[0] = []float64{x[0]}
	fu[1] = []float64{-2 * u[0]}
	return
}

func TestJacobianMatchesAnalytic(t *testing.T) {
	x := []float64{0.7, -0.3}
	u := []float64{0.2}
	fx, fu := Jacobian(2, 1, dyn, x, u)
	wantFx, wantFu := analyticJacobian(x, u)

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			require.InDelta(t, wantFx[i][j], fx.At(i, j), 1e-5)
		}
		require.InDelta(t, wantFu[i][0], fu.At(i, 0), 1e-5)
	}
}

func TestJacobianMatchesAnalyticLinearSystem(t *testing.T) {
	linear := func(x, u, out []float64) {
		out[0] = 2*x[0] + 3*u[0]
		out[1] = -x[1] + u[0]
	}
	x := []float64{1, 1}
	u := []float64{0.5}
	fx, fu := Jacobian(2, 1, linear, x, u)
	require.InDelta(t, 2.0, fx.At(0, 0), 1e-6)
	require.InDelta(t, 0.0, fx.At(0, 1), 1e-6)
	require.InDelta(t, 0.0, fx.At(1, 0), 1e-6)
	require.InDelta(t, -1.0, fx.At(1, 1), 1e-6)
	require.InDelta(t, 3.0, fu.At(0, 0), 1e-6)
	require.InDelta(t, 1.0, fu.At(1, 0), 1e-6)
}

func TestHessianShapesAndCrossTerm(t *testing.T) {
	x := []float64{0.7, -0.3}
	u := []float64{0.2}
	fxx, fuu, fux := Hessian(2, 1, dyn, x, u)
	require.Len(t, fxx, 2)
	require.Len(t, fuu, 2)
	require.Len(t, fux, 2)

	rx, cx := fxx[0].Dims()
	require.Equal(t, 2, rx)
	require.Equal(t, 2, cx)
	ru, cu := fuu[0].Dims()
	require.Equal(t, 1, ru)
	require.Equal(t, 1, cu)
	rf, cf := fux[0].Dims()
	require.Equal(t, 1, rf)
	require.Equal(t, 2, cf)

	// out[0] = x0*sin(x1) + u0*x0, so d^2(out0)/(du0 dx0) = 1.
	require.InDelta(t, 1.0, fux[0].At(0, 0), 1e-3)
	// out[1] = x1*cos(x0) - u0^2, so d^2(out1)/du0^2 = -2.
	require.InDelta(t, -2.0, fuu[1].At(0, 0), 1e-3)
}

func TestHessianZeroForLinearSystem(t *testing.T) {
	linear := func(x, u, out []float64) {
		out[0] = 2*x[0] + 3*u[0]
		out[1] = -x[1] + u[0]
	}
	x := []float64{1, 1}
	u := []float64{0.5}
	fxx, fuu, fux := Hessian(2, 1, linear, x, u)
	for row := 0; row < 2; row++ {
		r, c := fxx[row].Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				require.InDelta(t, 0.0, fxx[row].At(i, j), 1e-3)
			}
		}
		r, c = fuu[row].Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				require.InDelta(t, 0.0, fuu[row].At(i, j), 1e-3)
			}
		}
		r, c = fux[row].Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				require.InDelta(t, 0.0, fux[row].At(i, j), 1e-3)
			}
		}
	}
}
