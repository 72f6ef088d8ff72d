package car

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscreteDynamicsMovesForward(t *testing.T) {
	sys := New(2.5, 0.1)
	x1 := sys.DiscreteDynamics([]float64{0, 0, 0, 1}, []float64{0, 0}, 0)
	require.InDelta(t, 0.1, x1[0], 1e-9)
	require.InDelta(t, 0, x1[1], 1e-9)
}

func TestJacobiansMatchAnalyticAtZeroSteer(t *testing.T) {
	sys := New(2.5, 0.1)
	x := []float64{0, 0, 0, 2}
	u := []float64{0, 0}
	fx, fu := sys.Jacobians(x, u, 0)

	// d(xdot)/d(heading) at heading=0, speed=2 is -speed*sin(0) = 0;
	// d(xdot)/d(speed) is cos(0) = 1.
	require.InDelta(t, 0, fx.At(0, 2), 1e-4)
	require.InDelta(t, 1, fx.At(0, 3), 1e-4)
	// d(ydot)/d(speed) is sin(0) = 0.
	require.InDelta(t, 0, fx.At(1, 3), 1e-4)
	// d(accel term)/d(accel control) is 1.
	require.InDelta(t, 1, fu.At(3, 0), 1e-4)
}

func TestHeadingRateDependsOnWheelbase(t *testing.T) {
	sys := New(2.0, 0.1)
	x := []float64{0, 0, 0, 3}
	dx := sys.continuous(x, []float64{0, 0.2})
	want := 3 * math.Tan(0.2) / 2.0
	require.InDelta(t, want, dx[2], 1e-9)
}
