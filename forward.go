package ipddp

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// forwardCandidate is one alpha-ladder rollout's outcome (spec.md §4.4). A
// candidate is only ever returned as accepted once both phase 1 (primal/
// slack rollout + filter test) and phase 2 (independent dual scan) have
// succeeded for it; traces already carries the accepted dual step's Y.
type forwardCandidate struct {
	alpha     float64
	dualAlpha float64
	traj      Trajectory
	traces    map[string]*ConstraintTrace // path constraint trial S/Y/G
	terminal  map[string]*ConstraintTrace
	cost      float64
	theta     float64 // constraint violation sum ||g+s||_1 across path+terminal
	barrier   float64 // sum log(s) across path+terminal, at this candidate's slacks
	phi       float64 // merit = cost - mu * barrier
	accepted  bool
	failInfo  errInfo
}

// constraintSummary computes the l1-aggregated violation theta and the raw
// log-barrier sum (-Sigma log s is the barrier term itself; this returns the
// unsigned Sigma log s so callers apply their own -mu*barrier) for a
// trajectory and its per-constraint traces (spec.md §4.4, §4.5's "recompute
// merit / initial violation").
func (p *Problem) constraintSummary(x [][]float64, u [][]float64, traces, terminal map[string]*ConstraintTrace) (theta, barrier float64) {
	h := p.horizon
	for _, name := range p.pathOrder {
		c := p.pathConstraints[name]
		tr := traces[name]
		for t := 0; t < h; t++ {
			g := Residual(c, x[t], u[t])
			theta += l1Norm(addVec(g, tr.S[t]))
			barrier += l1LogSum(tr.S[t])
		}
	}
	for _, name := range p.terminalOrder {
		c := p.terminalConstraints[name]
		tr := terminal[name]
		g := Residual(c, x[h], nil)
		theta += l1Norm(addVec(g, tr.S[0]))
		barrier += l1LogSum(tr.S[0])
	}
	return theta, barrier
}

// rolloutAt performs one forward rollout at step size alpha, applying the
// control law u_t = ubar_t + alpha*k_u[t] + K_u[t]*(x_t-xbar_t) and, when
// the problem is constrained, the slack fraction-to-boundary update
// s_t = sbar_t + alpha*k_s[t] + K_s[t]*(x_t-xbar_t) (spec.md §4.4 step 1-2).
func (p *Problem) rolloutAt(bw *backwardResult, alpha float64) forwardCandidate {
	h := p.horizon
	dt := p.timestep
	cand := forwardCandidate{alpha: alpha}

	x := make([][]float64, h+1)
	u := make([][]float64, h)
	x[0] = cloneVec(p.traj.X[0])

	traces := make(map[string]*ConstraintTrace, len(p.pathOrder))
	for _, name := range p.pathOrder {
		traces[name] = newConstraintTrace(h, p.pathConstraints[name].DualDim())
	}

	tauMax := math.Max(p.options.Barrier.MinFractionToBoundary, 1-p.scalar.Mu)

	for t := 0; t < h; t++ {
		dx := subVec(x[t], p.traj.X[t])
		ut := addVec(p.traj.U[t], scaleVec(bw.Ku[t], alpha))
		ut = addVec(ut, matVec(bw.KU[t], dx))
		u[t] = ut

		for _, name := range p.pathOrder {
			old := p.pathTraces[name]
			ks, Ks := old.ks[t], old.Ks[t]
			s := addVec(old.S[t], scaleVec(ks, alpha))
			s = addVec(s, matVec(Ks, dx))
			for i, si := range s {
				lo := (1 - tauMax) * old.S[t][i]
				if si < lo {
					cand.failInfo = errFractionToBoundary
					return cand
				}
			}
			traces[name].S[t] = s
		}

		tt := float64(t) * dt
		x[t+1] = p.system.DiscreteDynamics(x[t], ut, tt)
	}

	cand.traj = Trajectory{X: x, U: u}

	terminal := make(map[string]*ConstraintTrace, len(p.terminalOrder))
	dxH := subVec(x[h], p.traj.X[h])
	for _, name := range p.terminalOrder {
		old := p.terminalTraces[name]
		ks, Ks := old.ks[0], old.Ks[0]
		s := addVec(old.S[0], scaleVec(ks, alpha))
		s = addVec(s, matVec(Ks, dxH))
		for i, si := range s {
			lo := (1 - tauMax) * old.S[0][i]
			if si < lo {
				cand.failInfo = errFractionToBoundary
				return cand
			}
		}
		tr := newConstraintTrace(1, p.terminalConstraints[name].DualDim())
		tr.S[0] = s
		terminal[name] = tr
	}
	cand.terminal = terminal

	for _, name := range p.pathOrder {
		c := p.pathConstraints[name]
		tr := traces[name]
		for t := 0; t < h; t++ {
			tr.G[t] = Residual(c, x[t], u[t])
		}
	}
	for _, name := range p.terminalOrder {
		c := p.terminalConstraints[name]
		tr := terminal[name]
		tr.G[0] = Residual(c, x[h], nil)
	}
	cand.traces = traces
	theta, barrier := p.constraintSummary(x, u, traces, terminal)
	cand.theta = theta
	cand.barrier = barrier

	cost := p.objective.Evaluate(cand.traj, dt)
	cand.cost = cost
	cand.phi = cost - p.scalar.Mu*barrier
	cand.failInfo = errOK
	return cand
}

func l1LogSum(s []float64) float64 {
	sum := 0.0
	for _, si := range s {
		sum += math.Log(si)
	}
	return sum
}

// acceptFilter implements the filter acceptance test of spec.md §4.4
// exactly: theta is the filter's current l1-aggregated violation baseline
// (p.scalar.Theta), dv0 is the backward pass's per-unit-alpha predicted
// linear reduction (bw.DV0), scaled here by the candidate's own alpha.
func (p *Problem) acceptFilter(cand forwardCandidate, dv0 float64) bool {
	f := p.options.Filter
	theta := p.scalar.Theta

	if cand.theta > f.MaxViolationThreshold {
		return cand.theta < (1-f.ViolationAcceptanceThreshold)*theta
	}

	expected := cand.alpha * dv0
	if math.Max(cand.theta, theta) < f.MinViolationForArmijoCheck && expected < 0 {
		return cand.phi < p.scalar.Phi+f.ArmijoConstant*expected
	}

	return cand.phi < p.scalar.Phi-f.MeritAcceptanceThreshold*cand.theta ||
		cand.theta < (1-f.ViolationAcceptanceThreshold)*theta
}

// acceptUnconstrained implements the unconstrained-problem acceptance rule
// spec.md §4.4 documents separately from the filter test: for D=0 (no path
// constraints) accept iff the
// ratio of actual to expected cost reduction exceeds 1e-6, matching
// original_source's forwardPass() `if (constraint_set.empty())` branch
// (dV_(0), dV_(1) are the backward pass's linear/quadratic value-change
// coefficients, bw.DV0/bw.DV1 here).
func (p *Problem) acceptUnconstrained(cand forwardCandidate, dv0, dv1 float64) bool {
	dJ := p.scalar.J - cand.cost
	expected := -cand.alpha * (dv0 + 0.5*cand.alpha*dv1)

	var ratio float64
	if expected > 0 {
		ratio = dJ / expected
	} else {
		ratio = math.Copysign(1.0, dJ)
	}
	return ratio > 1e-6
}

// accept dispatches to the acceptance rule spec.md §4.4 documents for the
// problem's constraint dimension: the unconstrained ratio test when
// p.dualDim == 0, the filter test otherwise. p.dualDim counts path
// constraints only, so a problem with terminal constraints and no path
// constraints also takes the ratio test, and its terminal violation does
// not enter the acceptance decision.
func (p *Problem) accept(cand forwardCandidate, bw *backwardResult) bool {
	if p.dualDim == 0 {
		return p.acceptUnconstrained(cand, bw.DV0, bw.DV1)
	}
	return p.acceptFilter(cand, bw.DV0)
}

// forwardPass implements spec.md §4.4 in full: scans the primal alpha
// ladder, serially (first-accepted-wins) unless Options.EnableParallel is
// set and the ladder is long enough to be worth chunking, in which case all
// rungs are evaluated concurrently and the lowest-merit accepted candidate
// wins (spec.md §5 "Parallel regions"). A primal alpha only counts as
// accepted once phase 2's independent dual scan also finds a feasible
// alpha_y for it (spec.md §4.4 phase 2, "if none found, reject" rejects the
// whole trial, not just the dual step) — nothing is committed to p.traj/
// p.pathTraces/p.terminalTraces here or by the caller until both phases
// have succeeded for the same candidate.
func (p *Problem) forwardPass(bw *backwardResult) (forwardCandidate, errInfo) {
	ladder := p.alphaLadder()
	xbar := p.traj

	if !p.options.EnableParallel || len(ladder) < 4 {
		for _, alpha := range ladder {
			cand := p.rolloutAt(bw, alpha)
			if !cand.failInfo.ok() || !p.accept(cand, bw) {
				continue
			}
			if !p.commitDualScan(xbar, &cand) {
				continue
			}
			cand.accepted = true
			return cand, errOK
		}
		return forwardCandidate{}, errNoAcceptedStep
	}

	results := make([]forwardCandidate, len(ladder))
	g, _ := errgroup.WithContext(context.Background())
	numThreads := p.options.NumThreads
	if numThreads <= 0 {
		numThreads = 1
	}
	g.SetLimit(numThreads)
	for i, alpha := range ladder {
		i, alpha := i, alpha
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &WorkerError{Stage: i, Cause: r}
				}
			}()
			results[i] = p.rolloutAt(bw, alpha)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return forwardCandidate{}, errNoAcceptedStep
	}

	best := -1
	for i := range results {
		cand := &results[i]
		if !cand.failInfo.ok() || !p.accept(*cand, bw) {
			continue
		}
		if !p.commitDualScan(xbar, cand) {
			continue
		}
		if best == -1 || cand.phi < results[best].phi {
			best = i
		}
	}
	if best == -1 {
		return forwardCandidate{}, errNoAcceptedStep
	}
	results[best].accepted = true
	return results[best], errOK
}

// dualScan implements spec.md §4.4 phase 2: scan the alpha ladder from the
// top for the largest alpha_y whose dual step keeps every y within its
// fraction-to-boundary bound, independent of cand's own (primal) alpha —
// exactly as original_source's forwardPass() iterates context.alphas_ from
// the top regardless of alpha_pr. xbar is the nominal trajectory the
// backward pass linearized about (p.traj, unmutated at this point);
// cand.traj is the trial primal rollout phase 1 already accepted. p.traj
// and p.pathTraces/p.terminalTraces are read only, never mutated here.
func (p *Problem) dualScan(xbar Trajectory, cand forwardCandidate) (dualY map[string][][]float64, terminalDualY map[string][]float64, dualAlpha float64, ok bool) {
	h := p.horizon
	tauMax := math.Max(p.options.Barrier.MinFractionToBoundary, 1-p.scalar.Mu)

	for _, alpha := range p.alphaLadder() {
		trialY := make(map[string][][]float64, len(p.pathOrder))
		feasible := true

		for _, name := range p.pathOrder {
			old := p.pathTraces[name]
			ys := make([][]float64, h)
			for t := 0; t < h && feasible; t++ {
				dx := subVec(cand.traj.X[t], xbar.X[t])
				y := addVec(old.Y[t], scaleVec(old.ky[t], alpha))
				y = addVec(y, matVec(old.Ky[t], dx))
				for i, yi := range y {
					if yi < (1-tauMax)*old.Y[t][i] {
						feasible = false
						break
					}
				}
				ys[t] = y
			}
			trialY[name] = ys
			if !feasible {
				break
			}
		}

		var trialTerminalY map[string][]float64
		if feasible {
			trialTerminalY = make(map[string][]float64, len(p.terminalOrder))
			dxH := subVec(cand.traj.X[h], xbar.X[h])
			for _, name := range p.terminalOrder {
				old := p.terminalTraces[name]
				y := addVec(old.Y[0], scaleVec(old.ky[0], alpha))
				y = addVec(y, matVec(old.Ky[0], dxH))
				for i, yi := range y {
					if yi < (1-tauMax)*old.Y[0][i] {
						feasible = false
						break
					}
				}
				trialTerminalY[name] = y
			}
		}

		if feasible {
			return trialY, trialTerminalY, alpha, true
		}
	}
	return nil, nil, 0, false
}

// commitDualScan runs dualScan for cand and, on success, folds the accepted
// dual step's Y directly into cand.traces/cand.terminal so the caller commits
// primal and dual state together as a single trial (spec.md §4.4: "If none
// found, reject" rejects the trial, not just the dual step).
func (p *Problem) commitDualScan(xbar Trajectory, cand *forwardCandidate) bool {
	dualY, terminalDualY, dualAlpha, ok := p.dualScan(xbar, *cand)
	if !ok {
		return false
	}
	for name, y := range dualY {
		cand.traces[name].Y = y
	}
	for name, y := range terminalDualY {
		cand.terminal[name].Y[0] = y
	}
	cand.dualAlpha = dualAlpha
	return true
}
