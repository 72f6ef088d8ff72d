package ipddp

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// solverStrategy is the registered-solver interface behind Problem.Solve's
// solve(name) dispatch (spec.md §6 "Solver selection surface").
type solverStrategy interface {
	Solve(p *Problem) (*Result, error)
}

var registry = map[string]solverStrategy{}

// Register installs a named solver strategy, mirroring the teacher's
// package-init registration idiom (lbfgsb/slsqp registering themselves with
// a shared driver). Re-registering a name overwrites it.
func Register(name string, s solverStrategy) { registry[name] = s }

func lookupSolver(name string) (solverStrategy, bool) {
	s, ok := registry[name]
	return s, ok
}

func init() {
	Register("ipddp", &IPDDPSolver{})
}

// IPDDPSolver is the primary registered strategy implementing spec.md §2's
// dataflow: Derivative Cache -> Backward Pass -> Forward Pass ->
// Barrier & Filter Controller -> Convergence & Regularization Manager,
// repeated until termination.
type IPDDPSolver struct{}

func (s *IPDDPSolver) Solve(p *Problem) (*Result, error) {
	start := time.Now()
	o := p.options
	logger := p.logger

	if o.PrintSolverHeader {
		logger.header("ipddp", p.system.StateDim(), p.system.ControlDim(), p.horizon)
	}

	p.workspace.ensure(p.system.StateDim(), p.system.ControlDim(), p.dualDim)

	p.scalar.J = p.objective.Evaluate(p.traj, p.timestep)
	theta0, barrier0 := p.constraintSummary(p.traj.X, p.traj.U, p.pathTraces, p.terminalTraces)
	p.scalar.Theta = theta0
	p.scalar.Phi = p.scalar.J - p.scalar.Mu*barrier0

	var history *IterationHistory
	if o.ReturnIterationInfo {
		history = &IterationHistory{}
	}

	updater := newBarrierUpdater(o.Barrier.Strategy)

	var lastKU []*mat.Dense
	status := StatusRunning
	iter := 0
	for ; iter < o.MaxIterations; iter++ {
		if o.MaxCPUTimeSeconds > 0 && time.Since(start).Seconds() > o.MaxCPUTimeSeconds {
			status = MaxCpuTimeReached
			break
		}

		cache, err := p.computeDerivatives(p.traj)
		if err != nil {
			return nil, err
		}

		bw, info := p.backwardPass(cache)
		for !info.ok() {
			p.increaseRegularization()
			if p.regularizationLimitReached() {
				status = RegularizationLimitReachedNotConverged
				break
			}
			bw, info = p.backwardPass(cache)
		}
		if status != StatusRunning {
			break
		}

		p.scalar.InfDu = bw.InfDu
		p.scalar.InfPr = bw.InfPr
		p.scalar.InfComp = bw.InfComp
		p.scalar.StepNorm = bw.StepNorm
		p.scalar.DV0 = bw.DV0
		p.scalar.DV1 = bw.DV1
		lastKU = bw.KU

		cand, fpInfo := p.forwardPass(bw)
		if !fpInfo.ok() {
			p.increaseRegularization()
			if p.regularizationLimitReached() {
				status = RegularizationLimitReachedNotConverged
				break
			}
			logger.iteration(iter, p.scalar)
			history.record(p.scalar)
			continue
		}

		// cand already carries a jointly-accepted primal/dual trial (spec.md
		// §4.4: forwardPass folds the dual scan into candidate acceptance),
		// so committing it is a single, always-consistent assignment.
		p.traj = cand.traj
		for name, tr := range cand.traces {
			p.pathTraces[name] = tr
		}
		for name, tr := range cand.terminal {
			p.terminalTraces[name] = tr
		}

		prevJ := p.scalar.J
		p.scalar.J = cand.cost
		p.scalar.Phi = cand.phi
		p.scalar.Theta = cand.theta
		p.scalar.StepLen = cand.alpha

		p.decreaseRegularization()

		// Barrier & Filter Controller, then Convergence Manager, in that
		// order per spec.md §2's dataflow.
		m := p.evaluateConvergence()
		prevMu := p.scalar.Mu
		p.scalar.Mu = updater.update(p, m.kktError)
		if p.scalar.Mu != prevMu {
			// filter reset (spec.md §4.5): merit depends on mu, re-derive it
			// against the barrier term of the trajectory just accepted.
			p.scalar.Phi = cand.cost - p.scalar.Mu*cand.barrier
		}

		logger.iteration(iter, p.scalar)
		history.record(p.scalar)

		if st, done := p.checkTermination(m, iter+1, cand.cost-prevJ); done {
			status = st
			break
		}
	}

	if status == StatusRunning {
		status = MaxIterationsReached
	}
	logger.exit(status, iter)

	res := &Result{
		SolverName:                      "ipddp",
		StatusMessage:                   fmt.Sprintf("%s after %d iterations", status.String(), iter),
		Status:                          status,
		IterationsCompleted:             iter,
		SolveTimeMs:                     float64(time.Since(start).Microseconds()) / 1000,
		FinalObjective:                  p.scalar.J,
		FinalStepLength:                 p.scalar.StepLen,
		FinalRegularization:             p.scalar.Rho,
		FinalBarrierParameterMu:         p.scalar.Mu,
		FinalPrimalInfeasibility:        p.scalar.InfPr,
		FinalDualInfeasibility:          p.scalar.InfDu,
		FinalComplementaryInfeasibility: p.scalar.InfComp,
		StateTrajectory:                 p.traj.X,
		ControlTrajectory:               p.traj.U,
		ControlFeedbackGainsK:           lastKU,
		History:                         history,
	}
	res.TimePoints = make([]float64, p.horizon+1)
	for t := range res.TimePoints {
		res.TimePoints[t] = float64(t) * p.timestep
	}
	return res, nil
}
