package models

import (
	"math"

	"github.com/san-kum/imdp/internal/abstraction"
	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/noise"
)

// VanDerPol is the Euler discretization of the Van der Pol oscillator with
// an additive input on the velocity.
//
//	x1' = x1 + x2*tau
//	x2' = x2 + (mu*(1 - x1^2)*x2 - x1)*tau + u
type VanDerPol struct {
	Mu    float64
	Tau   float64
	Sigma float64
	// Step is the grid resolution of both state dimensions.
	Step float64
}

func NewVanDerPol() *VanDerPol {
	return &VanDerPol{
		Mu:    1.0,
		Tau:   0.1,
		Sigma: math.Sqrt(0.2),
		Step:  0.16,
	}
}

func (v *VanDerPol) Name() string { return "vanderpol" }

func (v *VanDerPol) Next(x dynamo.State, u dynamo.Input) dynamo.State {
	x1, x2 := x[0], x[1]
	return dynamo.State{
		x1 + x2*v.Tau,
		x2 + (v.Mu*(1-x1*x1)*x2-x1)*v.Tau + u[0],
	}
}

func (v *VanDerPol) Problem() (*Problem, error) {
	g, err := noise.NewGaussian([]float64{v.Sigma, v.Sigma})
	if err != nil {
		return nil, err
	}
	return &Problem{
		Name:   v.Name(),
		States: square(-3.92, 3.92, v.Step, 2),
		Inputs: square(-1, 1, 0.2, 1),
		System: abstraction.Single(v, g),
		Target: dynamo.Box([]float64{-1.32, -2.82}, []float64{-0.78, -2.08}),
	}, nil
}

func (v *VanDerPol) GetParams() map[string]float64 {
	return map[string]float64{
		"mu":    v.Mu,
		"tau":   v.Tau,
		"sigma": v.Sigma,
		"step":  v.Step,
	}
}

func (v *VanDerPol) SetParam(name string, value float64) {
	switch name {
	case "mu":
		v.Mu = value
	case "tau":
		v.Tau = value
	case "sigma":
		v.Sigma = value
	case "step":
		v.Step = value
	}
}
