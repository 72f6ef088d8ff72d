package ipddp

import "gonum.org/v1/gonum/mat"

// backwardResult holds the control law and predicted-reduction output of
// one backward pass (spec.md §4.3). Per-constraint slack/dual gains are
// written directly into Problem.pathTraces[name].ks/Ks/ky/Ky.
type backwardResult struct {
	Ku  [][]float64  // k_u[t]
	KU  []*mat.Dense // K_u[t], m x n
	DV0 float64
	DV1 float64

	InfDu, InfPr, InfComp, StepNorm float64
}

func identityPlus(fx *mat.Dense, dt float64) *mat.Dense {
	n, _ := fx.Dims()
	out := mat.NewDense(n, n, nil)
	out.Scale(dt, fx)
	for i := 0; i < n; i++ {
		out.Set(i, i, out.At(i, i)+1)
	}
	return out
}

func transpose(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(c, r, nil)
	out.Copy(a.T())
	return out
}

func mul(a, b *mat.Dense) *mat.Dense {
	r, _ := a.Dims()
	_, c := b.Dims()
	out := mat.NewDense(r, c, nil)
	out.Mul(a, b)
	return out
}

func add(a, b *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	out.Add(a, b)
	return out
}

func negate(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	out.Scale(-1, a)
	return out
}

// scaleRows multiplies row i of a by s[i], used to apply the diagonal
// YS^-1 scaling without materializing a D x D matrix (spec.md §4.3
// "Scaling YS^-1 = diag(y_i/s_i)").
func scaleRows(a *mat.Dense, s []float64) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, a.At(i, j)*s[i])
		}
	}
	return out
}

func toSym(a *mat.Dense) *mat.SymDense {
	n, _ := a.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, a.At(i, j))
		}
	}
	return sym
}

// solveAugmented factors quu (symmetric, already regularized) with a
// Cholesky decomposition and solves quu * X = rhs in one shot, returning
// errNonPosDefQuu on factorization failure (spec.md §4.3 step 4: "Factor
// Q_uu via LDL^T; failure => return false").
func solveAugmented(quu *mat.Dense, rhs *mat.Dense) (*mat.Dense, errInfo) {
	sym := toSym(quu)
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, errNonPosDefQuu
	}
	var solved mat.Dense
	if err := chol.SolveTo(&solved, rhs); err != nil {
		return nil, errFactorizationFailed
	}
	return &solved, errOK
}

// backwardPass implements spec.md §4.3 in full: terminal seed, then the
// unconstrained or constrained per-stage recursion depending on whether
// the problem carries any path constraints.
func (p *Problem) backwardPass(cache *DerivativeCache) (*backwardResult, errInfo) {
	h := p.horizon
	n := p.system.StateDim()
	dt := p.timestep
	mu := p.scalar.Mu
	rho := p.scalar.Rho

	xH := p.traj.X[h]
	phix, phixx := p.objective.TerminalCostGradients(xH)
	Vx := cloneVec(phix)
	Vxx := symmetrize(phixx)

	res := &backwardResult{Ku: make([][]float64, h), KU: make([]*mat.Dense, h)}

	// Terminal constraints are the constrained branch's per-stage update
	// specialized to a stage with no control: Q_yu, k_u and K_u are all
	// zero, so k_s/K_s/k_y/K_y reduce to the raw primal/dual residual terms
	// below and the same closure terms fold directly into the value seed
	// (spec.md §4.3's per-stage formulas with the control-coupling terms
	// dropped).
	for _, name := range p.terminalOrder {
		c := p.terminalConstraints[name]
		tr := p.terminalTraces[name]
		gx := c.StateJacobian(xH, nil)
		gxT := transpose(gx)
		y, s := tr.Y[0], tr.S[0]
		ysinv := divVec(y, s)

		g := Residual(c, xH, nil)
		rp := addVec(g, s)
		rc := subVec(hadamard(y, s), scaleVec(onesLike(y), mu))
		rhat := subVec(hadamard(y, rp), rc)
		rhatOverS := divVec(rhat, s)

		tr.ks[0] = scaleVec(rp, -1)
		tr.Ks[0] = negate(gx)
		tr.ky[0] = rhatOverS
		tr.Ky[0] = scaleRows(gx, ysinv)

		Vx = addVec(Vx, matVec(gxT, y))
		Vx = addVec(Vx, matVec(gxT, rhatOverS))
		Vxx = add(Vxx, mul(gxT, scaleRows(gx, ysinv)))

		res.InfPr = maxf(res.InfPr, infNorm(rp))
		res.InfComp = maxf(res.InfComp, infNorm(rc))
	}

	for t := h - 1; t >= 0; t-- {
		x, u := p.traj.X[t], p.traj.U[t]
		tt := float64(t) * dt
		lx, lu, lxx, luu, lux := p.objective.RunningCostGradients(x, u, tt)

		sd := cache.stages[t]
		A := identityPlus(sd.Fx, dt)
		B := scaledCopy(sd.Fu, dt)
		AT, BT := transpose(A), transpose(B)

		Qxx := add(lxx, mul(AT, mul(Vxx, A)))
		Qux := add(lux, mul(BT, mul(Vxx, A)))
		Quu := add(luu, mul(BT, mul(Vxx, B)))

		if !p.options.UseILQR && sd.Fxx != nil {
			if hxx := tensorContractVx(Vx, sd.Fxx); hxx != nil {
				Qxx = add(Qxx, scaledCopy(hxx, dt))
			}
			if huu := tensorContractVx(Vx, sd.Fuu); huu != nil {
				Quu = add(Quu, scaledCopy(huu, dt))
			}
			if hux := tensorContractVx(Vx, sd.Fux); hux != nil {
				Qux = add(Qux, scaledCopy(hux, dt))
			}
		}
		Qxx = symmetrize(Qxx)

		Qx := addVec(lx, matVec(AT, Vx))
		Qu := addVec(lu, matVec(BT, Vx))

		if p.dualDim == 0 {
			QuuReg := p.workspace.quu
			QuuReg.Copy(symmetrize(Quu))
			addScaledIdentity(QuuReg, rho)

			rhs := p.workspace.rhs
			rhs.SetCol(0, Qu)
			rhs.Slice(0, len(u), 1, 1+n).(*mat.Dense).Copy(Qux)

			solved, info := solveAugmented(QuuReg, rhs)
			if !info.ok() {
				return nil, info
			}
			ku := negateVecCol(solved, 0)
			KU := negateBlock(solved, n)

			vx, vxx, dv0, dv1 := valueUpdate(Qx, Qu, Qxx, Qux, Quu, ku, KU)
			Vx, Vxx = vx, vxx
			res.DV0 += dv0
			res.DV1 += dv1
			res.InfDu = maxf(res.InfDu, infNorm(Qu))
			res.StepNorm = maxf(res.StepNorm, infNorm(ku))

			res.Ku[t] = ku
			res.KU[t] = KU
			continue
		}

		blocks := make([]*mat.Dense, 0, len(p.pathOrder))
		blocksU := make([]*mat.Dense, 0, len(p.pathOrder))
		g, s, y := p.workspace.resetStacks()
		for _, name := range p.pathOrder {
			c := p.pathConstraints[name]
			cd := cache.constraints[name]
			tr := p.pathTraces[name]

			gc := Residual(c, x, u)
			tr.G[t] = gc

			blocks = append(blocks, cd.Gx[t])
			blocksU = append(blocksU, cd.Gu[t])
			y = append(y, tr.Y[t]...)
			s = append(s, tr.S[t]...)
			g = append(g, gc...)
		}
		Qyx := stackRows(n, blocks...)
		Qyu := stackRows(len(u), blocksU...)
		QyxT, QyuT := transpose(Qyx), transpose(Qyu)

		rp := addVec(g, s)
		rc := subVec(hadamard(y, s), scaleVec(onesLike(y), mu))
		rhat := subVec(hadamard(y, rp), rc)
		ysinv := divVec(y, s)
		rhatOverS := divVec(rhat, s)

		Qx = addVec(Qx, matVec(QyxT, y))
		Qu = addVec(Qu, matVec(QyuT, y))

		QuuTilde := p.workspace.quu
		QuuTilde.Copy(symmetrize(Quu))
		QuuTilde.Add(QuuTilde, mul(QyuT, scaleRows(Qyu, ysinv)))
		addScaledIdentity(QuuTilde, rho)

		col0 := addVec(Qu, matVec(QyuT, rhatOverS))
		colsRest := p.workspace.qux
		colsRest.Copy(Qux)
		colsRest.Add(colsRest, mul(QyuT, scaleRows(Qyx, ysinv)))

		rhs := p.workspace.rhs
		rhs.SetCol(0, col0)
		rhs.Slice(0, len(u), 1, 1+n).(*mat.Dense).Copy(colsRest)

		solved, info := solveAugmented(QuuTilde, rhs)
		if !info.ok() {
			return nil, info
		}
		ku := negateVecCol(solved, 0)
		KU := negateBlock(solved, n)

		Qyuku := matVec(Qyu, ku)
		ks := subVec(scaleVec(rp, -1), Qyuku)
		Ks := add(negate(Qyx), negate(mul(Qyu, KU)))
		ky := divVec(addVec(rhat, hadamard(y, Qyuku)), s)
		Ky := scaleRows(add(Qyx, mul(Qyu, KU)), ysinv)

		off := 0
		for _, name := range p.pathOrder {
			tr := p.pathTraces[name]
			dc := p.pathConstraints[name].DualDim()
			tr.ks[t] = ks[off : off+dc]
			tr.ky[t] = ky[off : off+dc]
			tr.Ks[t] = Ks.Slice(off, off+dc, 0, n).(*mat.Dense)
			tr.Ky[t] = Ky.Slice(off, off+dc, 0, n).(*mat.Dense)
			off += dc
		}

		Qu = addVec(Qu, matVec(QyuT, rhatOverS))
		Qx = addVec(Qx, matVec(QyxT, rhatOverS))
		Qxx = add(Qxx, mul(QyxT, scaleRows(Qyx, ysinv)))
		Qux = add(Qux, mul(QyuT, scaleRows(Qyx, ysinv)))
		Quu = add(Quu, mul(QyuT, scaleRows(Qyu, ysinv)))

		vx, vxx, dv0, dv1 := valueUpdate(Qx, Qu, Qxx, Qux, Quu, ku, KU)
		Vx, Vxx = vx, vxx
		res.DV0 += dv0
		res.DV1 += dv1

		res.InfDu = maxf(res.InfDu, infNorm(Qu))
		res.InfPr = maxf(res.InfPr, infNorm(rp))
		res.InfComp = maxf(res.InfComp, infNorm(rc))
		res.StepNorm = maxf(res.StepNorm, infNorm(ku))

		res.Ku[t] = ku
		res.KU[t] = KU
	}

	return res, errOK
}

// valueUpdate implements spec.md §4.3 steps 6-7, shared by both branches.
func valueUpdate(Qx, Qu []float64, Qxx, Qux, Quu *mat.Dense, ku []float64, KU *mat.Dense) (vx []float64, vxx *mat.Dense, dv0, dv1 float64) {
	KUT := transpose(KU)
	QuxT := transpose(Qux)

	vx = addVec(Qx, matVec(KUT, Qu))
	vx = addVec(vx, matVec(QuxT, ku))
	vx = addVec(vx, matVec(KUT, matVec(Quu, ku)))

	vxx = add(Qxx, mul(KUT, Qux))
	vxx = add(vxx, mul(QuxT, KU))
	vxx = add(vxx, mul(KUT, mul(Quu, KU)))
	vxx = symmetrize(vxx)

	dv0 = dot(ku, Qu)
	dv1 = 0.5 * dot(ku, matVec(Quu, ku))
	return
}

func negateVecCol(a *mat.Dense, col int) []float64 {
	r, _ := a.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = -a.At(i, col)
	}
	return out
}

func negateBlock(a *mat.Dense, n int) *mat.Dense {
	r, _ := a.Dims()
	out := mat.NewDense(r, n, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, -a.At(i, 1+j))
		}
	}
	return out
}

func onesLike(v []float64) []float64 {
	out := make([]float64, len(v))
	for i := range out {
		out[i] = 1
	}
	return out
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func maxf(a, b float64) float64 {
	if b > a {
		return b
	}
	return a
}
