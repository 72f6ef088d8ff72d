package ipddp

import "fmt"

// errInfo is the internal recoverable-failure code produced inside the
// backward/forward pass hot loop, mirrored on the teacher's errInfo
// (lbfgsb/minpack.go): a control-flow signal consumed by the same loop
// that produced it, not surfaced across an API boundary.
type errInfo int

const (
	errOK errInfo = iota
	errNonPosDefQuu
	errFactorizationFailed
	errFractionToBoundary
	errNoAcceptedStep
)

func (e errInfo) ok() bool { return e == errOK }

// ConfigError reports a construction-time misconfiguration (spec.md §7
// "ConfigurationError"): missing system/objective, or an empty constraint.
// Raised immediately, never recovered.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "ipddp: configuration error: " + e.Msg }

// DimensionError reports a fatal dimension mismatch (spec.md §7): either the
// provided initial state's length disagrees with the system's own
// StateDim, or Problem.referenceState (last value passed to
// SetReferenceState) disagrees with the objective's own tracked reference
// beyond a 1e-6 tolerance (problem.go's initializeIfNecessary). Non-fatal
// dimension mismatches are resolved silently by resizing (see problem.go)
// and never become errors.
type DimensionError struct {
	Msg string
}

func (e *DimensionError) Error() string { return "ipddp: dimension mismatch: " + e.Msg }

// WorkerError wraps a panic recovered from a parallel derivative-cache or
// forward-pass worker (spec.md §7 "WorkerException"). A derivative-cache
// WorkerError aborts the solve and is returned as Solve's error. A
// forward-pass WorkerError does not abort the solve: forwardPass discards it
// and reports the alpha scan as having found no acceptable step, which the
// outer loop handles like any other forward-pass failure.
type WorkerError struct {
	Stage int
	Cause any
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("ipddp: worker panic at stage %d: %v", e.Stage, e.Cause)
}
