package ipddp

// BarrierStrategy selects how the Barrier & Filter Controller schedules mu
// (spec.md §4.5).
type BarrierStrategy int

const (
	// BarrierMonotonic reduces mu by a fixed factor after every accepted
	// iteration.
	BarrierMonotonic BarrierStrategy = iota
	// BarrierIPOPT reduces mu only once the current KKT error is within a
	// factor of mu itself.
	BarrierIPOPT
	// BarrierAdaptive picks a reduction factor from the current
	// KKT-progress ratio. Default strategy.
	BarrierAdaptive
)

// LineSearchOptions groups the alpha-ladder parameters (spec.md §4.1
// "Alpha ladder", §6 "line_search").
type LineSearchOptions struct {
	InitialStepSize     float64 // alpha_0
	MinStepSize         float64 // alpha_min, always the ladder's last entry
	StepReductionFactor float64 // geometric factor between rungs
	MaxIterations       int     // cap on ladder length
}

// RegularizationOptions groups the Levenberg-Marquardt-style regularization
// parameters (spec.md §4.1 "Regularization control").
type RegularizationOptions struct {
	InitialValue float64 // rho_0
	UpdateFactor float64 // multiplicative step
	MinValue     float64 // rho_min
	MaxValue     float64 // rho_max
}

// FilterOptions groups the filter-acceptance thresholds (spec.md §4.4).
type FilterOptions struct {
	MeritAcceptanceThreshold     float64 // merit_thr
	ViolationAcceptanceThreshold float64 // theta_thr
	MaxViolationThreshold        float64 // theta_max_thr
	MinViolationForArmijoCheck   float64 // theta_armijo_thr
	ArmijoConstant               float64 // armijo_const
}

// BarrierOptions groups the mu-schedule parameters (spec.md §6 "ipddp.barrier").
type BarrierOptions struct {
	Strategy               BarrierStrategy
	MuInitial              float64
	MuMinValue             float64
	MuUpdateFactor         float64 // mu_factor
	MuUpdatePower          float64 // mu_power
	MinFractionToBoundary  float64 // min_frac in tau = max(min_frac, 1-mu)
}

// IPDDPOptions groups the slack/dual initialization scales (spec.md §6 "ipddp").
type IPDDPOptions struct {
	DualVarInitScale  float64
	SlackVarInitScale float64
}

// Options is the full set of recognized solver options (spec.md §6
// "Options"). Unrecognized keys have no representation here by design:
// the contract only names these keys.
type Options struct {
	MaxIterations         int
	MaxCPUTimeSeconds     float64 // <=0 disables the wall-clock check
	Tolerance             float64
	AcceptableTolerance   float64
	Verbose               bool
	Debug                 bool
	UseILQR               bool
	EnableParallel        bool
	NumThreads            int
	WarmStart             bool
	ReturnIterationInfo   bool
	PrintSolverHeader     bool
	PrintSolverOptions    bool

	LineSearch     LineSearchOptions
	Regularization RegularizationOptions
	Filter         FilterOptions
	Barrier        BarrierOptions
	IPDDP          IPDDPOptions

	// TerminationScalingMaxFactor is s_max in the scaled dual-infeasibility
	// formula of spec.md §4.6 (default 100).
	TerminationScalingMaxFactor float64
}

// DefaultOptions returns the option set used when a Problem is constructed
// without an explicit call to SetOptions, tuned to the values implied by
// spec.md's worked scenarios (§8).
func DefaultOptions() Options {
	return Options{
		MaxIterations:       100,
		MaxCPUTimeSeconds:   0,
		Tolerance:           1e-8,
		AcceptableTolerance: 1e-6,
		UseILQR:             false,
		EnableParallel:      false,
		NumThreads:          4,
		WarmStart:           false,
		ReturnIterationInfo: false,
		PrintSolverHeader:   true,

		LineSearch: LineSearchOptions{
			InitialStepSize:     1.0,
			MinStepSize:         1e-8,
			StepReductionFactor: 0.5,
			MaxIterations:       20,
		},
		Regularization: RegularizationOptions{
			InitialValue: 1e-6,
			UpdateFactor: 10,
			MinValue:     1e-10,
			MaxValue:     1e10,
		},
		Filter: FilterOptions{
			MeritAcceptanceThreshold:     1e-4,
			ViolationAcceptanceThreshold: 1e-4,
			MaxViolationThreshold:        1e4,
			MinViolationForArmijoCheck:   1e-4,
			ArmijoConstant:               1e-4,
		},
		Barrier: BarrierOptions{
			Strategy:              BarrierAdaptive,
			MuInitial:             1.0,
			MuMinValue:            1e-9,
			MuUpdateFactor:        0.2,
			MuUpdatePower:         1.5,
			MinFractionToBoundary: 0.99,
		},
		IPDDP: IPDDPOptions{
			DualVarInitScale:  1.0,
			SlackVarInitScale: 1.0,
		},
		TerminationScalingMaxFactor: 100,
	}
}

// alphaLadder builds the finite non-increasing step-size sequence described
// in spec.md §4.1: geometric from InitialStepSize by StepReductionFactor,
// capped at MaxIterations entries, always ending with MinStepSize.
func alphaLadder(o LineSearchOptions) []float64 {
	n := o.MaxIterations
	if n <= 0 {
		n = 1
	}
	ladder := make([]float64, 0, n)
	alpha := o.InitialStepSize
	for i := 0; i < n-1; i++ {
		if alpha <= o.MinStepSize {
			break
		}
		ladder = append(ladder, alpha)
		alpha *= o.StepReductionFactor
	}
	ladder = append(ladder, o.MinStepSize)
	return ladder
}
