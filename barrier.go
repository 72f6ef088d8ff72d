package ipddp

import "math"

// barrierUpdater advances the barrier parameter mu between outer iterations
// (spec.md §4.5). An implementation never returns more than the current mu,
// except that its result is never below its floor (MuMinValue,
// Tolerance/10 or Tolerance/100): a current mu already below that floor is
// raised to it.
type barrierUpdater interface {
	update(p *Problem, kktError float64) float64
}

func newBarrierUpdater(strategy BarrierStrategy) barrierUpdater {
	switch strategy {
	case BarrierIPOPT:
		return ipoptBarrier{}
	case BarrierAdaptive:
		return adaptiveBarrier{}
	default:
		return monotonicBarrier{}
	}
}

// monotonicBarrier reduces mu by a fixed factor every accepted iteration,
// regardless of progress (spec.md §4.5 "MONOTONIC").
type monotonicBarrier struct{}

func (monotonicBarrier) update(p *Problem, kktError float64) float64 {
	o := p.options.Barrier
	next := o.MuUpdateFactor * p.scalar.Mu
	return math.Max(next, o.MuMinValue)
}

// ipoptBarrier only reduces mu once the KKT error has dropped below a
// factor of the current barrier value, following the classical IPOPT
// mu-update test kappa_mu * mu (spec.md §4.5 "IPOPT").
type ipoptBarrier struct{}

func (ipoptBarrier) update(p *Problem, kktError float64) float64 {
	o := p.options.Barrier
	if kktError > 10*p.scalar.Mu {
		return p.scalar.Mu
	}
	candidate := math.Min(o.MuUpdateFactor*p.scalar.Mu, math.Pow(p.scalar.Mu, o.MuUpdatePower))
	return math.Max(candidate, p.options.Tolerance/10)
}

// adaptiveBarrier picks a reduction factor from tuned KKT-progress tiers
// (spec.md §4.5 "ADAPTIVE", DESIGN.md "Open Question decisions": tiers
// {0.01, 0.1, 0.5} of the current mu map to multipliers {0.1, 0.3, 0.6, 1.0}
// applied to the configured MuUpdateFactor).
type adaptiveBarrier struct{}

var adaptiveTiers = []float64{0.01, 0.1, 0.5}
var adaptiveMultipliers = []float64{0.1, 0.3, 0.6, 1.0}

func (adaptiveBarrier) update(p *Problem, kktError float64) float64 {
	o := p.options.Barrier
	ratio := kktError / math.Max(p.scalar.Mu, 1e-16)

	mult := adaptiveMultipliers[len(adaptiveMultipliers)-1]
	for i, tier := range adaptiveTiers {
		if ratio <= tier {
			mult = adaptiveMultipliers[i]
			break
		}
	}
	next := math.Min(p.scalar.Mu*o.MuUpdateFactor*mult, math.Pow(p.scalar.Mu, o.MuUpdatePower))
	return math.Max(next, p.options.Tolerance/100)
}
