package ipddp

import "gonum.org/v1/gonum/mat"

// IterationHistory holds per-iteration histories of the scalars named in
// spec.md §6, populated only when Options.ReturnIterationInfo is true.
type IterationHistory struct {
	Objective              []float64
	StepLength             []float64
	Regularization         []float64
	BarrierParameter       []float64
	PrimalInfeasibility    []float64
	DualInfeasibility      []float64
	ComplementaryInfeasibility []float64
}

func (h *IterationHistory) record(s ScalarState) {
	if h == nil {
		return
	}
	h.Objective = append(h.Objective, s.J)
	h.StepLength = append(h.StepLength, s.StepLen)
	h.Regularization = append(h.Regularization, s.Rho)
	h.BarrierParameter = append(h.BarrierParameter, s.Mu)
	h.PrimalInfeasibility = append(h.PrimalInfeasibility, s.InfPr)
	h.DualInfeasibility = append(h.DualInfeasibility, s.InfDu)
	h.ComplementaryInfeasibility = append(h.ComplementaryInfeasibility, s.InfComp)
}

// Result is the tagged-variant result record spec.md §6 asks for in place
// of a dynamically-typed map (see spec.md §9 "Result record as
// heterogeneous map").
type Result struct {
	SolverName    string
	StatusMessage string
	Status        Status

	IterationsCompleted int
	SolveTimeMs         float64

	FinalObjective              float64
	FinalStepLength             float64
	FinalRegularization         float64
	FinalBarrierParameterMu     float64
	FinalPrimalInfeasibility    float64
	FinalDualInfeasibility      float64
	FinalComplementaryInfeasibility float64

	TimePoints        []float64
	StateTrajectory   [][]float64
	ControlTrajectory [][]float64

	// ControlFeedbackGainsK holds K_u[t] for every stage of the last
	// backward pass, for callers that want to re-run the closed loop.
	ControlFeedbackGainsK []*mat.Dense

	// History is nil unless Options.ReturnIterationInfo was set.
	History *IterationHistory
}
