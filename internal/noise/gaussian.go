// Package noise provides the additive noise models of the abstraction:
// a diagonal Gaussian with closed-form box probabilities and a Monte Carlo
// integrator for arbitrary densities.
package noise

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/imdp/internal/dynamo"
)

type Type string

const (
	Normal Type = "normal"
	Custom Type = "custom"
)

// Gaussian is zero-mean noise with independent components.
type Gaussian struct {
	sigma []float64
}

func NewGaussian(sigma []float64) (*Gaussian, error) {
	if len(sigma) == 0 {
		return nil, fmt.Errorf("noise: empty standard deviation: %w", dynamo.ErrDimensionMismatch)
	}
	for i, s := range sigma {
		if !(s > 0) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("noise: standard deviation %d must be positive and finite, got %g", i, s)
		}
	}
	return &Gaussian{sigma: append([]float64(nil), sigma...)}, nil
}

func (g *Gaussian) Dim() int { return len(g.sigma) }

func (g *Gaussian) Sigma() []float64 {
	return append([]float64(nil), g.sigma...)
}

// AxisMass is the probability that y + w lands in [a, b] along axis i.
func (g *Gaussian) AxisMass(i int, a, b, y float64) float64 {
	s := g.sigma[i]
	za := (a - y) / s
	zb := (b - y) / s
	// use the upper tail when both ends sit above the mean to keep precision
	if za > 0 {
		return math.Max(0, distuv.UnitNormal.Survival(za)-distuv.UnitNormal.Survival(zb))
	}
	return math.Max(0, distuv.UnitNormal.CDF(zb)-distuv.UnitNormal.CDF(za))
}

// AxisRange bounds AxisMass over all means y in [ylo, yhi]. The mass is
// unimodal in y with its peak at the interval midpoint, so the maximum sits
// at the clamped midpoint and the minimum at one of the ends.
func (g *Gaussian) AxisRange(i int, a, b, ylo, yhi float64) (lo, hi float64) {
	c := (a + b) / 2
	peak := math.Min(math.Max(c, ylo), yhi)
	hi = g.AxisMass(i, a, b, peak)
	lo = math.Min(g.AxisMass(i, a, b, ylo), g.AxisMass(i, a, b, yhi))
	return lo, hi
}

// BoxBounds bounds the probability of landing in the box [lo, hi] over all
// means in the box [meanLo, meanHi].
func (g *Gaussian) BoxBounds(lo, hi, meanLo, meanHi []float64) (min, max float64) {
	min, max = 1, 1
	for i := range g.sigma {
		l, h := g.AxisRange(i, lo[i], hi[i], meanLo[i], meanHi[i])
		min *= l
		max *= h
	}
	return min, max
}

// Eval implements dynamo.Density.
func (g *Gaussian) Eval(z, mean dynamo.State) float64 {
	p := 1.0
	for i, s := range g.sigma {
		p *= distuv.Normal{Mu: mean[i], Sigma: s}.Prob(z[i])
	}
	return p
}

// Widen returns a copy with every standard deviation multiplied by factor.
func (g *Gaussian) Widen(factor float64) *Gaussian {
	s := make([]float64, len(g.sigma))
	for i := range s {
		s[i] = g.sigma[i] * factor
	}
	return &Gaussian{sigma: s}
}
