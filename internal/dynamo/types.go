package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// MaxAbs returns the infinity norm of s.
func (s State) MaxAbs() float64 {
	m := 0.0
	for _, v := range s {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

type Input []float64

// Dynamics maps a state and an input to the mean of the next state.
type Dynamics interface {
	Next(x State, u Input) State
}

type DynamicsFunc func(x State, u Input) State

func (f DynamicsFunc) Next(x State, u Input) State { return f(x, u) }

// Density evaluates the probability density of landing at z when the
// noise-free successor is mean.
type Density interface {
	Eval(z, mean State) float64
}

type DensityFunc func(z, mean State) float64

func (f DensityFunc) Eval(z, mean State) float64 { return f(z, mean) }

type Predicate interface {
	Contains(x State) bool
}

type PredicateFunc func(x State) bool

func (f PredicateFunc) Contains(x State) bool { return f(x) }

// Box returns a predicate that holds on the closed axis-aligned box [lo, hi].
func Box(lo, hi []float64) Predicate {
	return PredicateFunc(func(x State) bool {
		for i := range lo {
			if x[i] < lo[i] || x[i] > hi[i] {
				return false
			}
		}
		return true
	})
}

// Never is the predicate of the empty region.
var Never Predicate = PredicateFunc(func(State) bool { return false })

// Configurable exposes named scalar parameters for runtime adjustment.
// SetParam ignores names not listed by GetParams.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64)
}
