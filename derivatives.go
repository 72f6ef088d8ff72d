package ipddp

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// parallelDerivativeThreshold is the horizon length at or above which the
// derivative cache computation is worth chunking across goroutines
// (spec.md §4.2: "when horizon >= 50 and parallelism is enabled").
const parallelDerivativeThreshold = 50

// stageDerivatives holds the per-stage dynamics linearization and, when not
// running iLQR, the dynamics Hessians (spec.md §4.2).
type stageDerivatives struct {
	Fx, Fu        *mat.Dense
	Fxx, Fuu, Fux []*mat.Dense
}

// constraintDerivatives holds one named constraint's per-stage Jacobians.
type constraintDerivatives struct {
	Gx, Gu []*mat.Dense // indexed by stage
}

// DerivativeCache precomputes and stores the per-stage dynamics and
// constraint derivatives consumed by one backward pass (spec.md §4.2).
type DerivativeCache struct {
	stages      []stageDerivatives
	constraints map[string]*constraintDerivatives
}

func newDerivativeCache(horizon int) *DerivativeCache {
	return &DerivativeCache{
		stages:      make([]stageDerivatives, horizon),
		constraints: make(map[string]*constraintDerivatives),
	}
}

// computeDerivatives fills the cache for the current trajectory. Stage
// computations may run in parallel goroutines (chunked static partition by
// stage index, spec.md §5 "Parallel regions") when the horizon is large
// enough and Options.EnableParallel is set; a panic inside any worker is
// recovered and surfaced as a *WorkerError, aborting the whole computation
// (spec.md §7 "WorkerException").
func (p *Problem) computeDerivatives(traj Trajectory) (*DerivativeCache, error) {
	horizon := traj.Horizon()
	cache := newDerivativeCache(horizon)

	pathNames := make([]string, 0, len(p.pathConstraints))
	for name := range p.pathConstraints {
		pathNames = append(pathNames, name)
		cache.constraints[name] = &constraintDerivatives{
			Gx: make([]*mat.Dense, horizon),
			Gu: make([]*mat.Dense, horizon),
		}
	}

	compute := func(t int) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &WorkerError{Stage: t, Cause: r}
			}
		}()
		x, u := traj.X[t], traj.U[t]
		tt := float64(t) * p.timestep

		fx, fu := p.system.Jacobians(x, u, tt)
		sd := stageDerivatives{Fx: fx, Fu: fu}
		if !p.options.UseILQR {
			sd.Fxx, sd.Fuu, sd.Fux = p.system.Hessians(x, u, tt)
		}
		cache.stages[t] = sd

		for _, name := range pathNames {
			c := p.pathConstraints[name]
			cd := cache.constraints[name]
			cd.Gx[t] = c.StateJacobian(x, u)
			cd.Gu[t] = c.ControlJacobian(x, u)
		}
		return nil
	}

	if p.options.EnableParallel && horizon >= parallelDerivativeThreshold {
		g, _ := errgroup.WithContext(context.Background())
		numThreads := p.options.NumThreads
		if numThreads <= 0 {
			numThreads = 1
		}
		g.SetLimit(numThreads)
		chunk := (horizon + numThreads - 1) / numThreads
		for lo := 0; lo < horizon; lo += chunk {
			start, end := lo, lo+chunk
			if end > horizon {
				end = horizon
			}
			g.Go(func() error {
				for t := start; t < end; t++ {
					if err := compute(t); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("derivative cache: %w", err)
		}
	} else {
		for t := 0; t < horizon; t++ {
			if err := compute(t); err != nil {
				return nil, fmt.Errorf("derivative cache: %w", err)
			}
		}
	}

	return cache, nil
}
