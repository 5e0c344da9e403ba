package models

import (
	"fmt"

	"github.com/san-kum/imdp/internal/abstraction"
	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/grid"
)

// Problem is a reach-avoid problem over a discretized stochastic system.
type Problem struct {
	Name   string
	States []grid.Bounds
	// Inputs is nil for autonomous systems.
	Inputs []grid.Bounds
	System abstraction.System
	Target dynamo.Predicate
	Avoid  dynamo.Predicate
}

// Model builds a Problem from its current parameters.
type Model interface {
	dynamo.Configurable
	Name() string
	Problem() (*Problem, error)
}

// Grids builds the state and input grids of p.
func (p *Problem) Grids() (states, inputs *grid.Grid, err error) {
	states, err = grid.New("state", p.States)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	if len(p.Inputs) == 0 {
		return states, nil, nil
	}
	inputs, err = grid.New("input", p.Inputs)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	return states, inputs, nil
}

func square(lo, hi, step float64, dim int) []grid.Bounds {
	b := make([]grid.Bounds, dim)
	for i := range b {
		b[i] = grid.Bounds{Lower: lo, Upper: hi, Step: step}
	}
	return b
}
