package ipddp

import (
	"fmt"
	"math"
)

// Problem is the Problem Context of spec.md §4.1: it owns the horizon,
// timestep, initial/reference state, system, objective, constraint set,
// trajectories, regularization scalars, and convergence metrics, and
// dispatches Solve to a named solver strategy.
type Problem struct {
	system    System
	objective Objective

	initialState   []float64
	referenceState []float64

	horizon  int
	timestep float64
	options  Options

	pathConstraints     map[string]Constraint
	pathOrder           []string
	terminalConstraints map[string]Constraint
	terminalOrder       []string
	dualDim             int // D = sum of d_c over path constraints
	terminalDualDim     int // sum of d_c over terminal constraints

	traj Trajectory

	pathTraces     map[string]*ConstraintTrace
	terminalTraces map[string]*ConstraintTrace // length-1 traces (the single stage H)

	scalar ScalarState

	initialized bool

	logger    *Logger
	workspace *workspace
}

// NewProblem constructs a Problem Context. A nil system or objective is a
// ConfigurationError raised immediately (spec.md §7).
func NewProblem(sys System, obj Objective) (*Problem, error) {
	if sys == nil {
		return nil, &ConfigError{Msg: "system must not be nil"}
	}
	if obj == nil {
		return nil, &ConfigError{Msg: "objective must not be nil"}
	}
	p := &Problem{
		system:              sys,
		objective:           obj,
		options:             DefaultOptions(),
		pathConstraints:     make(map[string]Constraint),
		terminalConstraints: make(map[string]Constraint),
		pathTraces:          make(map[string]*ConstraintTrace),
		terminalTraces:      make(map[string]*ConstraintTrace),
		workspace:           newWorkspace(),
	}
	p.logger = newDefaultLogger(p.options.Verbose, p.options.Debug)
	return p, nil
}

// SetInitialState sets x_0. Any dimension change marks the context
// uninitialized (spec.md §4.1).
func (p *Problem) SetInitialState(x0 []float64) {
	p.initialState = cloneVec(x0)
	p.initialized = false
}

// SetReferenceState forwards the reference state to the objective and
// records it for the DimensionError consistency check spec.md §7 requires
// ("reference state is inconsistent with the objective's reference").
func (p *Problem) SetReferenceState(s []float64) {
	p.referenceState = cloneVec(s)
	p.objective.SetReferenceState(s)
	p.initialized = false
}

// SetReferenceStates sets a per-stage reference trajectory.
func (p *Problem) SetReferenceStates(s [][]float64) {
	p.objective.SetReferenceStates(s)
	p.initialized = false
}

// SetHorizon sets H, the number of control stages.
func (p *Problem) SetHorizon(h int) {
	p.horizon = h
	p.initialized = false
}

// SetTimestep sets Delta.
func (p *Problem) SetTimestep(dt float64) {
	p.timestep = dt
}

// SetOptions replaces the option set wholesale.
func (p *Problem) SetOptions(o Options) {
	p.options = o
	p.logger = newDefaultLogger(o.Verbose, o.Debug)
	p.initialized = false
}

// SetSystem swaps the dynamical system collaborator.
func (p *Problem) SetSystem(sys System) {
	p.system = sys
	p.initialized = false
}

// SetObjective swaps the objective collaborator.
func (p *Problem) SetObjective(obj Objective) {
	p.objective = obj
	p.initialized = false
}

// SetInitialTrajectory preserves a warm-start guess for X, U. It does not
// itself mark the context uninitialized: whether it is honored as a warm
// start depends on Options.WarmStart at Solve time (spec.md §4.1
// "warm-start path: preserve sizes and only resize lazily").
func (p *Problem) SetInitialTrajectory(x [][]float64, u [][]float64) {
	p.traj = Trajectory{X: cloneMat(x), U: cloneMat(u)}
}

// AddPathConstraint inserts a stage-wise inequality constraint. Fails if c
// has zero dual dimension (spec.md §4.1 "fails if c is empty").
func (p *Problem) AddPathConstraint(name string, c Constraint) error {
	return addConstraint(p.pathConstraints, &p.pathOrder, &p.dualDim, name, c)
}

// AddTerminalConstraint inserts a terminal-stage inequality constraint.
func (p *Problem) AddTerminalConstraint(name string, c Constraint) error {
	return addConstraint(p.terminalConstraints, &p.terminalOrder, &p.terminalDualDim, name, c)
}

func addConstraint(m map[string]Constraint, order *[]string, dualDim *int, name string, c Constraint) error {
	if c == nil || c.DualDim() <= 0 {
		return &ConfigError{Msg: fmt.Sprintf("constraint %q is empty", name)}
	}
	if _, exists := m[name]; !exists {
		*order = append(*order, name)
	} else {
		*dualDim -= m[name].DualDim()
	}
	m[name] = c
	*dualDim += c.DualDim()
	return nil
}

// RemovePathConstraint removes a path constraint by name, returning whether
// it was present.
func (p *Problem) RemovePathConstraint(name string) bool {
	return removeConstraint(p.pathConstraints, &p.pathOrder, &p.dualDim, name)
}

// RemoveTerminalConstraint removes a terminal constraint by name.
func (p *Problem) RemoveTerminalConstraint(name string) bool {
	return removeConstraint(p.terminalConstraints, &p.terminalOrder, &p.terminalDualDim, name)
}

func removeConstraint(m map[string]Constraint, order *[]string, dualDim *int, name string) bool {
	c, ok := m[name]
	if !ok {
		return false
	}
	*dualDim -= c.DualDim()
	delete(m, name)
	for i, n := range *order {
		if n == name {
			*order = append((*order)[:i], (*order)[i+1:]...)
			break
		}
	}
	return true
}

// DualDim returns D, the total path-constraint dual dimension.
func (p *Problem) DualDim() int { return p.dualDim }

// Horizon, Timestep, InitialState, Options, Trajectory are read-only
// accessors over the live configuration and state (spec.md §4.1
// "Accessors for all config and live state").
func (p *Problem) Horizon() int             { return p.horizon }
func (p *Problem) Timestep() float64        { return p.timestep }
func (p *Problem) InitialState() []float64  { return cloneVec(p.initialState) }
func (p *Problem) OptionsSnapshot() Options { return p.options }
func (p *Problem) Trajectory() Trajectory   { return p.traj.Clone() }
func (p *Problem) Scalar() ScalarState      { return p.scalar }

// increaseRegularization implements spec.md §4.1 "increase":
// rho <- min(rho*update_factor, rho_max).
func (p *Problem) increaseRegularization() {
	o := p.options.Regularization
	p.scalar.Rho = math.Min(p.scalar.Rho*o.UpdateFactor, o.MaxValue)
}

// decreaseRegularization implements spec.md §4.1 "decrease":
// rho <- max(rho/update_factor, rho_min).
func (p *Problem) decreaseRegularization() {
	o := p.options.Regularization
	p.scalar.Rho = math.Max(p.scalar.Rho/o.UpdateFactor, o.MinValue)
}

// regularizationLimitReached implements spec.md §4.1: rho >= rho_max.
func (p *Problem) regularizationLimitReached() bool {
	return p.scalar.Rho >= p.options.Regularization.MaxValue
}

// alphaLadder returns the current alpha ladder (spec.md §4.1).
func (p *Problem) alphaLadder() []float64 {
	return alphaLadder(p.options.LineSearch)
}

// initializeIfNecessary implements spec.md §4.1 "initialize_if_necessary":
// resize/zero-fill trajectories, overwrite x_0, reset scalar bookkeeping,
// and initialize the constraint slack/dual trajectories.
func (p *Problem) initializeIfNecessary() error {
	if p.initialized {
		return nil
	}
	if p.system == nil || p.objective == nil {
		return &ConfigError{Msg: "system and objective are required before solving"}
	}
	if len(p.initialState) != p.system.StateDim() {
		return &DimensionError{Msg: fmt.Sprintf("initial state has dim %d, want %d", len(p.initialState), p.system.StateDim())}
	}
	if p.referenceState != nil {
		if ref := p.objective.Reference(); !withinTolerance(p.referenceState, ref, 1e-6) {
			return &DimensionError{Msg: fmt.Sprintf("reference state %v is inconsistent with the objective's reference %v", p.referenceState, ref)}
		}
	}
	if ts, ok := p.objective.(interface{ SetTimestep(float64) }); ok {
		ts.SetTimestep(p.timestep)
	}

	n, m, h := p.system.StateDim(), p.system.ControlDim(), p.horizon

	warm := p.options.WarmStart && len(p.traj.X) == h+1 && len(p.traj.U) == h &&
		dimsMatch(p.traj.X, n) && dimsMatch(p.traj.U, m)

	if !warm {
		x := make([][]float64, h+1)
		u := make([][]float64, h)
		for t := range x {
			x[t] = make([]float64, n)
		}
		for t := range u {
			u[t] = make([]float64, m)
		}
		p.traj = Trajectory{X: x, U: u}
	}
	copy(p.traj.X[0], p.initialState)

	p.scalar = ScalarState{
		J: math.Inf(1), Phi: math.Inf(1),
		InfPr: math.Inf(1), InfDu: math.Inf(1), InfComp: math.Inf(1),
		Rho: p.options.Regularization.InitialValue,
		Mu:  p.options.Barrier.MuInitial,
	}

	p.initializeConstraintTrajectories(warm)

	p.initialized = true
	return nil
}

func dimsMatch(vs [][]float64, want int) bool {
	for _, v := range vs {
		if len(v) != want {
			return false
		}
	}
	return true
}

// dualInit resolves the y-from-s combining formula spec.md leaves open, per
// _examples/original_source/src/cddp_core/ipddp_solver.cpp's
// initializeDualSlackVariables(): y = mu/s (or mu/1e-12 when s is
// numerically zero), clamped to [0.01*scaleY, 100*scaleY] so the initial
// (y,s) pair starts close to the y*s = mu centrality target instead of at a
// flat constant.
func dualInit(sInit, mu, scaleY float64) float64 {
	denom := sInit
	if denom < 1e-12 {
		denom = 1e-12
	}
	y := mu / denom
	return math.Min(math.Max(y, 0.01*scaleY), 100*scaleY)
}

// initializeConstraintTrajectories implements spec.md §9's Open Question:
// on cold start every slack component is set to required(i) =
// max(SlackVarInitScale, -g(i)) and every dual from dualInit; on warm start,
// existing slack is preserved
// component-wise only when it is not badly infeasible relative to the
// freshly evaluated residual, per the documented predicate
// s_current(i) >= 0.1 * required(i) (DESIGN.md §"Open Question decisions").
func (p *Problem) initializeConstraintTrajectories(warm bool) {
	h := p.horizon
	scaleS := p.options.IPDDP.SlackVarInitScale
	scaleY := p.options.IPDDP.DualVarInitScale
	mu := p.scalar.Mu

	for name, c := range p.pathConstraints {
		dc := c.DualDim()
		trace, existed := p.pathTraces[name]
		if !existed || len(trace.G) != h {
			trace = newConstraintTrace(h, dc)
			p.pathTraces[name] = trace
		}
		for t := 0; t < h; t++ {
			g := Residual(c, p.traj.X[t], p.traj.U[t])
			trace.G[t] = g
			required := make([]float64, dc)
			for i, gi := range g {
				required[i] = math.Max(scaleS, -gi)
			}
			for i := 0; i < dc; i++ {
				preserve := warm && existed && trace.S[t][i] >= 0.1*required[i]
				if !preserve {
					trace.S[t][i] = required[i]
					trace.Y[t][i] = dualInit(trace.S[t][i], mu, scaleY)
				}
			}
		}
	}
	// prune stale traces for removed constraints
	for name := range p.pathTraces {
		if _, ok := p.pathConstraints[name]; !ok {
			delete(p.pathTraces, name)
		}
	}

	for name, c := range p.terminalConstraints {
		dc := c.DualDim()
		trace, existed := p.terminalTraces[name]
		if !existed || len(trace.G) != 1 {
			trace = newConstraintTrace(1, dc)
			p.terminalTraces[name] = trace
		}
		g := Residual(c, p.traj.X[h], nil)
		trace.G[0] = g
		for i, gi := range g {
			required := math.Max(scaleS, -gi)
			preserve := warm && existed && trace.S[0][i] >= 0.1*required
			if !preserve {
				trace.S[0][i] = required
				trace.Y[0][i] = dualInit(trace.S[0][i], mu, scaleY)
			}
		}
	}
	for name := range p.terminalTraces {
		if _, ok := p.terminalConstraints[name]; !ok {
			delete(p.terminalTraces, name)
		}
	}
}

// Solve dispatches to the named solver strategy (spec.md §6 "Solver
// selection surface"). Unknown names return a Result with status
// UnknownSolver rather than an error (spec.md §7).
func (p *Problem) Solve(name string) (*Result, error) {
	solver, ok := lookupSolver(name)
	if !ok {
		return &Result{
			SolverName:    name,
			StatusMessage: fmt.Sprintf("UnknownSolver - %q is not registered", name),
			Status:        UnknownSolver,
		}, nil
	}
	if err := p.initializeIfNecessary(); err != nil {
		return nil, err
	}
	return solver.Solve(p)
}
