package ipddp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForwardPassAcceptsAStepOnFirstIteration(t *testing.T) {
	p := newTestLQR(t)
	cache, err := p.computeDerivatives(p.traj)
	require.NoError(t, err)
	bw, info := p.backwardPass(cache)
	require.True(t, info.ok())

	p.scalar.InfDu, p.scalar.InfPr, p.scalar.InfComp = bw.InfDu, bw.InfPr, bw.InfComp

	cand, fpInfo := p.forwardPass(bw)
	require.True(t, fpInfo.ok())
	require.True(t, cand.accepted)
	require.Greater(t, cand.alpha, 0.0)
	require.LessOrEqual(t, cand.cost, p.scalar.Phi+1e-6)
}

// TestAcceptFilterRejectsExcessiveViolation checks scenario 6: a trial
// whose violation exceeds MaxViolationThreshold and does not sufficiently
// reduce violation relative to the incumbent must be rejected outright.
func TestAcceptFilterRejectsExcessiveViolation(t *testing.T) {
	p := newTestLQR(t)
	p.scalar.Phi = 10
	p.scalar.Theta = 1.0

	cand := forwardCandidate{phi: 5, theta: p.options.Filter.MaxViolationThreshold + 1}
	require.False(t, p.acceptFilter(cand, -1))
}

// TestAcceptFilterAcceptsSufficientViolationReduction checks the other half
// of the hard-violation branch: even above MaxViolationThreshold, a trial
// that cuts violation enough is still accepted.
func TestAcceptFilterAcceptsSufficientViolationReduction(t *testing.T) {
	p := newTestLQR(t)
	p.scalar.Phi = 10
	p.scalar.Theta = 2 * p.options.Filter.MaxViolationThreshold

	cand := forwardCandidate{phi: 20, theta: p.options.Filter.MaxViolationThreshold + 1}
	require.True(t, p.acceptFilter(cand, -1))
}

// TestAcceptUnconstrainedUsesReductionRatioNotFilter checks spec.md §4.4's
// documented split: for D=0 problems, acceptance is the ratio of actual to
// expected cost reduction exceeding 1e-6, not the filter test (which would
// vacuously accept any theta=0 candidate through its Armijo branch).
func TestAcceptUnconstrainedUsesReductionRatioNotFilter(t *testing.T) {
	p := newTestLQR(t)
	p.scalar.J = 10

	// dJ = 10 - 9 = 1, expected = -1*(dv0 + 0.5*dv1) = -(-2 + 0.5) = 1.5,
	// ratio = 1/1.5 > 1e-6: accept.
	accepted := forwardCandidate{alpha: 1, cost: 9}
	require.True(t, p.acceptUnconstrained(accepted, -2, 1))

	// dJ = 10 - 10.5 = -0.5, expected still 1.5, ratio < 0: reject.
	rejected := forwardCandidate{alpha: 1, cost: 10.5}
	require.False(t, p.acceptUnconstrained(rejected, -2, 1))
}

// TestAcceptDispatchesOnDualDim checks the p.dualDim==0 branch routes to
// acceptUnconstrained rather than acceptFilter.
func TestAcceptDispatchesOnDualDim(t *testing.T) {
	p := newTestLQR(t)
	require.Equal(t, 0, p.dualDim)
	p.scalar.J = 10
	// acceptFilter would reject this candidate: its merit 0 is not below
	// Phi + armijo*alpha*DV0 = -1.0002.
	p.scalar.Phi = -1

	cand := forwardCandidate{alpha: 1, cost: 9, theta: 0}
	bw := &backwardResult{DV0: -2, DV1: 1}
	require.True(t, p.accept(cand, bw))
}

func TestRolloutAtZeroAlphaReproducesNominalTrajectory(t *testing.T) {
	p := newTestLQR(t)
	cache, err := p.computeDerivatives(p.traj)
	require.NoError(t, err)
	bw, info := p.backwardPass(cache)
	require.True(t, info.ok())

	cand := p.rolloutAt(bw, 0)
	require.True(t, cand.failInfo.ok())
	for tt := range cand.traj.U {
		require.InDeltaSlice(t, p.traj.U[tt], cand.traj.U[tt], 1e-9)
	}
}
