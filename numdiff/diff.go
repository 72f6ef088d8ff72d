// Package numdiff estimates a dynamics system's Jacobians and Hessians by
// central finite differences, for System implementations (system/car) that
// have no closed-form derivative and instead satisfy spec.md §4.2's
// System.Jacobians / System.Hessians contract numerically.
package numdiff

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// cubeEps is the cube root of machine epsilon, the standard central
// difference step scale: it balances truncation error (which shrinks with
// h^2) against floating point cancellation error (which grows as 1/h).
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, 1.0/3.0)

// Dynamics evaluates a system's dynamics f(x,u) into out, whose length is
// the state dimension nx.
type Dynamics func(x, u, out []float64)

// step picks the central-difference perturbation for a component currently
// at value v, scaled by the component's own magnitude so relative
// precision holds across state/control variables of very different size.
func step(v float64) float64 {
	return cubeEps * math.Max(1.0, math.Abs(v))
}

// Jacobian estimates Fx (nx x nx) and Fu (nx x nu), the partial derivatives
// of f at (x, u) with respect to state and control, one central difference
// per column.
func Jacobian(nx, nu int, f Dynamics, x, u []float64) (fx, fu *mat.Dense) {
	fp := make([]float64, nx)
	fm := make([]float64, nx)

	fx = mat.NewDense(nx, nx, nil)
	xw := append([]float64{}, x...)
	for j := 0; j < nx; j++ {
		orig := xw[j]
		h := step(orig)
		xw[j] = orig + h
		f(xw, u, fp)
		xw[j] = orig - h
		f(xw, u, fm)
		xw[j] = orig
		d := 1 / (2 * h)
		for i := 0; i < nx; i++ {
			fx.Set(i, j, (fp[i]-fm[i])*d)
		}
	}

	fu = mat.NewDense(nx, nu, nil)
	uw := append([]float64{}, u...)
	for j := 0; j < nu; j++ {
		orig := uw[j]
		h := step(orig)
		uw[j] = orig + h
		f(x, uw, fp)
		uw[j] = orig - h
		f(x, uw, fm)
		uw[j] = orig
		d := 1 / (2 * h)
		for i := 0; i < nx; i++ {
			fu.Set(i, j, (fp[i]-fm[i])*d)
		}
	}
	return fx, fu
}

// Hessian estimates, for each of the nx dynamics output components, the
// (nx+nu) x (nx+nu) second-derivative block of that component with respect
// to (x, u), split into Fxx[row] (nx x nx), Fuu[row] (nu x nu) and
// Fux[row] (nu x nx) — the per-row tensors that tensorContractVx (linalg.go)
// contracts against V_x when assembling the backward pass's Q_xx/Q_uu/Q_ux
// second-order terms (spec.md §4.3 step 2). It differences the Jacobian's
// row gradient a second time, so cost is O((nx+nu)^2) dynamics evaluations
// per output row.
func Hessian(nx, nu int, f Dynamics, x, u []float64) (fxx, fuu, fux []*mat.Dense) {
	n := nx + nu

	rowGradient := func(v []float64, row int) []float64 {
		jfx, jfu := Jacobian(nx, nu, f, v[:nx], v[nx:])
		g := make([]float64, n)
		for j := 0; j < nx; j++ {
			g[j] = jfx.At(row, j)
		}
		for j := 0; j < nu; j++ {
			g[nx+j] = jfu.At(row, j)
		}
		return g
	}

	fxx = make([]*mat.Dense, nx)
	fuu = make([]*mat.Dense, nx)
	fux = make([]*mat.Dense, nx)

	v := append(append([]float64{}, x...), u...)
	for row := 0; row < nx; row++ {
		full := mat.NewDense(n, n, nil)
		vw := append([]float64{}, v...)
		for j := 0; j < n; j++ {
			orig := vw[j]
			h := step(orig)
			vw[j] = orig + h
			gp := rowGradient(vw, row)
			vw[j] = orig - h
			gm := rowGradient(vw, row)
			vw[j] = orig
			d := 1 / (2 * h)
			for i := 0; i < n; i++ {
				full.Set(i, j, (gp[i]-gm[i])*d)
			}
		}
		fxx[row] = mat.NewDense(nx, nx, nil)
		fuu[row] = mat.NewDense(nu, nu, nil)
		fux[row] = mat.NewDense(nu, nx, nil)
		fxx[row].Copy(full.Slice(0, nx, 0, nx))
		fuu[row].Copy(full.Slice(nx, n, nx, n))
		fux[row].Copy(full.Slice(nx, n, 0, nx))
	}
	return fxx, fuu, fux
}
