package ipddp

import "gonum.org/v1/gonum/mat"

// symmetrize returns 0.5*(A+A^T), the operation spec.md §4.3 requires after
// every Q_xx/Q_uu/V_xx assembly.
func symmetrize(a *mat.Dense) *mat.Dense {
	r, _ := a.Dims()
	out := mat.NewDense(r, r, nil)
	out.Add(a, a.T())
	out.Scale(0.5, out)
	return out
}

// addScaledIdentity adds rho*I to a square matrix in place.
func addScaledIdentity(a *mat.Dense, rho float64) {
	r, _ := a.Dims()
	for i := 0; i < r; i++ {
		a.Set(i, i, a.At(i, i)+rho)
	}
}

// infNorm returns the infinity norm (max absolute component) of v.
func infNorm(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := abs(x); a > m {
			m = a
		}
	}
	return m
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func l1Norm(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += abs(x)
	}
	return s
}

// withinTolerance reports whether a and b agree componentwise within tol
// (spec.md §7's fatal reference-state consistency check). Different
// lengths are always inconsistent.
func withinTolerance(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

// hadamard returns a⊙b, an element-wise product.
func hadamard(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out
}

func addVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func subVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func scaleVec(a []float64, s float64) []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		out[i] = v * s
	}
	return out
}

func divVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] / b[i]
	}
	return out
}

// stackRows vertically stacks a list of matrices that share the same
// number of columns into one *mat.Dense, used to assemble
// Q_yx / Q_yu from the per-constraint Jacobians (spec.md §4.3). The blocks
// must hold at least one row in total; an empty result panics in
// mat.NewDense.
func stackRows(cols int, blocks ...*mat.Dense) *mat.Dense {
	rows := 0
	for _, b := range blocks {
		r, _ := b.Dims()
		rows += r
	}
	out := mat.NewDense(rows, cols, nil)
	off := 0
	for _, b := range blocks {
		r, c := b.Dims()
		if r == 0 {
			continue
		}
		sub := out.Slice(off, off+r, 0, c).(*mat.Dense)
		sub.Copy(b)
		off += r
	}
	return out
}

// matVec computes A*v as a plain []float64.
func matVec(a *mat.Dense, v []float64) []float64 {
	r, _ := a.Dims()
	out := mat.NewVecDense(r, nil)
	out.MulVec(a, mat.NewVecDense(len(v), v))
	res := make([]float64, r)
	for i := 0; i < r; i++ {
		res[i] = out.AtVec(i)
	}
	return res
}

// tensorContractVx computes sum_i Vx[i] * T[i] where T is a length-n slice
// of n x n (or m x m / m x n) matrices — the dynamics-Hessian contraction
// spec.md §4.3 step 2 and §9 "Dynamics-Hessian tensor" describe.
func tensorContractVx(vx []float64, tensors []*mat.Dense) *mat.Dense {
	if len(tensors) == 0 {
		return nil
	}
	r, c := tensors[0].Dims()
	out := mat.NewDense(r, c, nil)
	for i, ti := range tensors {
		out.Add(out, scaledCopy(ti, vx[i]))
	}
	return out
}

func scaledCopy(a *mat.Dense, s float64) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	out.Scale(s, a)
	return out
}
