package ipddp

import "math"

// convergenceMetrics is one outer iteration's scaled KKT snapshot (spec.md
// §4.6).
type convergenceMetrics struct {
	scaledInfDu   float64
	infPr         float64
	infComp       float64
	kktError      float64
}

// scalingFactor implements spec.md §4.6's dual-infeasibility scaling
// s_d = max(s_max, (||y||_1+||s||_1)/(m_total+n_total)) / s_max, applied to
// InfDu before it is compared against tolerance. m_total is the total
// number of dual (equivalently slack) components summed across every
// stage they are held at; n_total = m*H is the control-count denominator
// term.
func scalingFactor(duals, slacks []float64, nTotal int, sMax float64) float64 {
	denom := float64(len(duals) + nTotal)
	if denom == 0 {
		return 1
	}
	sum := 0.0
	for _, y := range duals {
		sum += math.Abs(y)
	}
	for _, s := range slacks {
		sum += math.Abs(s)
	}
	return math.Max(sMax, sum/denom) / sMax
}

// allDuals gathers every path and terminal dual value currently held, used
// only to compute the scaling factor above.
func (p *Problem) allDuals() []float64 {
	var out []float64
	for _, name := range p.pathOrder {
		tr := p.pathTraces[name]
		for _, y := range tr.Y {
			out = append(out, y...)
		}
	}
	for _, name := range p.terminalOrder {
		out = append(out, p.terminalTraces[name].Y[0]...)
	}
	return out
}

// allSlacks mirrors allDuals for the slack trajectories.
func (p *Problem) allSlacks() []float64 {
	var out []float64
	for _, name := range p.pathOrder {
		tr := p.pathTraces[name]
		for _, s := range tr.S {
			out = append(out, s...)
		}
	}
	for _, name := range p.terminalOrder {
		out = append(out, p.terminalTraces[name].S[0]...)
	}
	return out
}

// evaluateConvergence computes the scaled KKT residual triple and the
// aggregate kktError used both for termination and for the ADAPTIVE barrier
// strategy's progress ratio (spec.md §4.6).
func (p *Problem) evaluateConvergence() convergenceMetrics {
	nTotal := p.system.ControlDim() * p.horizon
	sd := scalingFactor(p.allDuals(), p.allSlacks(), nTotal, p.options.TerminationScalingMaxFactor)
	m := convergenceMetrics{
		scaledInfDu: p.scalar.InfDu / sd,
		infPr:       p.scalar.InfPr,
		infComp:     p.scalar.InfComp,
	}
	m.kktError = math.Max(m.scaledInfDu, math.Max(m.infPr, m.infComp))
	return m
}

// checkTermination implements spec.md §4.6's termination rules, applied in
// priority order: optimal, then acceptable, then regularization-limit
// stall, leaving iteration/time-limit checks to the outer loop in
// solver.go which alone knows the elapsed wall clock and iteration count.
// iter is the completed iteration count and dJ the cost change of the step
// just taken; both are needed by the acceptable-solution disjunction.
func (p *Problem) checkTermination(m convergenceMetrics, iter int, dJ float64) (Status, bool) {
	o := p.options
	if m.kktError <= o.Tolerance {
		return OptimalSolutionFound, true
	}

	sqrtAcceptable := math.Sqrt(o.AcceptableTolerance)
	smallChange := math.Abs(dJ) < o.AcceptableTolerance && iter > 10 &&
		m.infPr < sqrtAcceptable && m.infComp < sqrtAcceptable
	smallStep := iter >= 1 && p.scalar.StepNorm < 10*o.Tolerance && m.infPr < 1e-4
	if smallChange || smallStep {
		return AcceptableSolutionFound, true
	}

	if p.regularizationLimitReached() {
		return RegularizationLimitReachedNotConverged, true
	}
	return 0, false
}
