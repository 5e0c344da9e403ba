package models

import (
	"github.com/san-kum/imdp/internal/abstraction"
	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/imdp"
	"github.com/san-kum/imdp/internal/noise"
)

// RandomWalk is the controlled 1-D walk x' = x + u + w on [-2, 2], to be
// steered into [1.5, 2] while avoiding [-2, -1.5].
type RandomWalk struct {
	Sigma float64
	Step  float64
	// Disturbance adds two drift modes of +-Disturbance combined as an
	// unknown disturbance when positive.
	Disturbance float64
}

func NewRandomWalk() *RandomWalk {
	return &RandomWalk{
		Sigma: 0.3,
		Step:  0.25,
	}
}

func (r *RandomWalk) Name() string { return "randomwalk" }

func (r *RandomWalk) drift(d float64) dynamo.Dynamics {
	return dynamo.DynamicsFunc(func(x dynamo.State, u dynamo.Input) dynamo.State {
		return dynamo.State{x[0] + u[0] + d}
	})
}

func (r *RandomWalk) Problem() (*Problem, error) {
	g, err := noise.NewGaussian([]float64{r.Sigma})
	if err != nil {
		return nil, err
	}

	sys := abstraction.Single(r.drift(0), g)
	if r.Disturbance > 0 {
		sys = abstraction.System{
			Modes: []abstraction.Mode{
				{Name: "down", Dynamics: r.drift(-r.Disturbance), Noise: g},
				{Name: "up", Dynamics: r.drift(r.Disturbance), Noise: g},
			},
			Combine: imdp.CombineHull,
		}
	}

	return &Problem{
		Name:   r.Name(),
		States: square(-2, 2, r.Step, 1),
		Inputs: square(-0.5, 0.5, 0.5, 1),
		System: sys,
		Target: dynamo.Box([]float64{1.5}, []float64{2}),
		Avoid:  dynamo.Box([]float64{-2}, []float64{-1.5}),
	}, nil
}

func (r *RandomWalk) GetParams() map[string]float64 {
	return map[string]float64{
		"sigma":       r.Sigma,
		"step":        r.Step,
		"disturbance": r.Disturbance,
	}
}

func (r *RandomWalk) SetParam(name string, value float64) {
	switch name {
	case "sigma":
		r.Sigma = value
	case "step":
		r.Step = value
	case "disturbance":
		r.Disturbance = value
	}
}
