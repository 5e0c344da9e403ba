package abstraction

import (
	"fmt"

	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/imdp"
	"github.com/san-kum/imdp/internal/noise"
)

// Mode is one stochastic dynamics law. Exactly one of Noise and Density is
// set; Noise selects the closed-form path.
type Mode struct {
	Name     string
	Weight   float64
	Dynamics dynamo.Dynamics
	Noise    *noise.Gaussian
	Density  dynamo.Density
}

type System struct {
	Modes   []Mode
	Combine imdp.Combine
}

// Single wraps one Gaussian mode.
func Single(dyn dynamo.Dynamics, g *noise.Gaussian) System {
	return System{
		Modes:   []Mode{{Name: "default", Weight: 1, Dynamics: dyn, Noise: g}},
		Combine: imdp.CombineWeighted,
	}
}

// SingleDensity wraps one mode with an arbitrary density.
func SingleDensity(dyn dynamo.Dynamics, density dynamo.Density) System {
	return System{
		Modes:   []Mode{{Name: "default", Weight: 1, Dynamics: dyn, Density: density}},
		Combine: imdp.CombineWeighted,
	}
}

func (s System) weights() []float64 {
	w := make([]float64, len(s.Modes))
	for i, m := range s.Modes {
		if s.Combine == imdp.CombineHull {
			w[i] = 1 / float64(len(s.Modes))
		} else {
			w[i] = m.Weight
		}
	}
	return w
}

func (s System) validate(stateDim int) error {
	if len(s.Modes) == 0 {
		return fmt.Errorf("abstraction: system has no modes")
	}
	switch s.Combine {
	case imdp.CombineWeighted, imdp.CombineHull:
	default:
		return fmt.Errorf("abstraction: unknown combine rule %q", s.Combine)
	}
	for i, m := range s.Modes {
		if m.Dynamics == nil {
			return fmt.Errorf("abstraction: mode %d has no dynamics", i)
		}
		switch {
		case m.Noise != nil && m.Density != nil:
			return fmt.Errorf("abstraction: mode %d sets both a Gaussian and a density", i)
		case m.Noise != nil:
			if m.Noise.Dim() != stateDim {
				return fmt.Errorf("abstraction: mode %d noise has dimension %d, state space %d: %w",
					i, m.Noise.Dim(), stateDim, dynamo.ErrDimensionMismatch)
			}
		case m.Density == nil:
			return fmt.Errorf("abstraction: mode %d has no noise model", i)
		}
	}
	return nil
}
