// Command ipddp-run solves a box-constrained double-integrator scenario
// from a YAML options file and prints the resulting trajectory summary.
package main

import (
	"fmt"
	"os"

	"github.com/gocddp/ipddp"
	"github.com/gocddp/ipddp/constraint/box"
	"github.com/gocddp/ipddp/objective/quadratic"
	"github.com/gocddp/ipddp/system/doubleintegrator"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// fileOptions holds the scenario settings (horizon, timestep, acceleration
// bound) and the subset of ipddp.Options a user may override from a YAML
// file, grounded on costela-golpa's flat option-struct + yaml.v3
// convention.
type fileOptions struct {
	Horizon      int     `yaml:"horizon"`
	Timestep     float64 `yaml:"timestep"`
	MaxIterations int    `yaml:"max_iterations"`
	Tolerance    float64 `yaml:"tolerance"`
	MaxAccel     float64 `yaml:"max_accel"`
	Verbose      bool    `yaml:"verbose"`
}

func defaultFileOptions() fileOptions {
	return fileOptions{Horizon: 50, Timestep: 0.1, MaxIterations: 100, Tolerance: 1e-6, MaxAccel: 1.0}
}

func loadOptions(path string) (fileOptions, error) {
	o := defaultFileOptions()
	if path == "" {
		return o, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return o, err
	}
	if err := yaml.Unmarshal(data, &o); err != nil {
		return o, err
	}
	return o, nil
}

func run(optionsPath string) error {
	fo, err := loadOptions(optionsPath)
	if err != nil {
		return err
	}

	sys := doubleintegrator.New(1, fo.Timestep)
	q := mat.NewDense(2, 2, []float64{1, 0, 0, 0.1})
	r := mat.NewDense(1, 1, []float64{0.01})
	qf := mat.NewDense(2, 2, []float64{10, 0, 0, 1})
	obj := quadratic.New(q, r, qf, []float64{1, 0})

	p, err := ipddp.NewProblem(sys, obj)
	if err != nil {
		return err
	}
	p.SetHorizon(fo.Horizon)
	p.SetTimestep(fo.Timestep)
	p.SetInitialState([]float64{0, 0})

	if err := p.AddPathConstraint("accel_bound", box.NewControlUpperBound(1, []int{0}, []float64{fo.MaxAccel})); err != nil {
		return err
	}

	opts := ipddp.DefaultOptions()
	opts.MaxIterations = fo.MaxIterations
	opts.Tolerance = fo.Tolerance
	opts.Verbose = fo.Verbose
	p.SetOptions(opts)

	result, err := p.Solve("ipddp")
	if err != nil {
		return err
	}

	fmt.Printf("status: %s\n", result.Status)
	fmt.Printf("iterations: %d\n", result.IterationsCompleted)
	fmt.Printf("final objective: %.6f\n", result.FinalObjective)
	fmt.Printf("final state: %v\n", result.StateTrajectory[len(result.StateTrajectory)-1])
	return nil
}

func main() {
	var optionsPath string

	root := &cobra.Command{
		Use:   "ipddp-run",
		Short: "Run the IPDDP solver on a box-constrained double-integrator scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(optionsPath)
		},
	}
	root.Flags().StringVarP(&optionsPath, "options", "o", "", "path to a YAML options file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
