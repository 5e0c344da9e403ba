package abstraction

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/grid"
	"github.com/san-kum/imdp/internal/imdp"
	"github.com/san-kum/imdp/internal/noise"
)

// sourcePoints returns the cell center followed by uniform draws.
func (c *Computer) sourcePoints(state int, rng *rand.Rand) []dynamo.State {
	cell := c.states.Cell(state)
	points := make([]dynamo.State, 0, c.opts.SourceSamples)
	points = append(points, cell.Center.Clone())
	for len(points) < c.opts.SourceSamples {
		x := make(dynamo.State, len(cell.Center))
		for i := range x {
			x[i] = cell.Center[i] + (2*rng.Float64()-1)*cell.HalfWidth[i]
		}
		points = append(points, x)
	}
	return points
}

// negligible reports whether the density is below floor on the whole probe
// lattice of the cell once scaled by its volume.
func (c *Computer) negligible(density dynamo.Density, cell grid.Cell, mean dynamo.State) bool {
	vol := 1.0
	for _, hw := range cell.HalfWidth {
		vol *= 2 * hw
	}
	for _, z := range grid.Lattice(cell, 3) {
		if vol*density.Eval(z, mean) >= c.opts.Floor {
			return false
		}
	}
	return true
}

func (c *Computer) monteCarloRow(dyn dynamo.Dynamics, mc *noise.MonteCarlo, state int, u dynamo.Input, rng *rand.Rand) (imdp.Row, error) {
	n := c.states.Len()
	lo := make([]float64, n)
	hi := make([]float64, n)
	for j := range lo {
		lo[j] = math.Inf(1)
	}
	targetLo, avoidLo := math.Inf(1), math.Inf(1)
	targetHi, avoidHi := 0.0, 0.0

	check := func(est noise.Estimate) error {
		if !est.Converged {
			return &dynamo.IntegrationError{Iterations: est.Iterations, StdErr: est.StdErr}
		}
		return nil
	}

	cells := c.states.Cells()
	for _, x := range c.sourcePoints(state, rng) {
		mean := dynamo.State(dyn.Next(x, u))
		if len(mean) != c.states.Dim() {
			return imdp.Row{}, fmt.Errorf("dynamics at %v returned dimension %d: %w", x, len(mean), dynamo.ErrDimensionMismatch)
		}
		if !mean.IsValid() {
			return imdp.Row{}, fmt.Errorf("dynamics at %v: %w", x, dynamo.ErrInvalidState)
		}

		// the mass kept inside the domain is the sum over its cells
		var agg aggregate
		inLo, inHi := 0.0, 0.0
		for j, cell := range cells {
			var cl, ch float64
			if !c.negligible(mc.Density(), cell, mean) {
				est := mc.Mass(rng, mean, cell.Lower(), cell.Upper())
				if err := check(est); err != nil {
					return imdp.Row{}, err
				}
				cl, ch = est.Lower(), est.Upper()
			}
			inLo += cl
			inHi += ch

			switch {
			case c.labels.IsNormal(j):
				lo[j] = math.Min(lo[j], cl)
				hi[j] = math.Max(hi[j], ch)
			default:
				var scratch imdp.Row
				c.add(&scratch, &agg, j, cl, ch)
			}
		}

		var point imdp.Row
		agg.finish(&point, clamp01(inLo), clamp01(inHi))
		targetLo = math.Min(targetLo, point.Target.Lower)
		targetHi = math.Max(targetHi, point.Target.Upper)
		avoidLo = math.Min(avoidLo, point.Avoid.Lower)
		avoidHi = math.Max(avoidHi, point.Avoid.Upper)
	}

	var row imdp.Row
	for j := 0; j < n; j++ {
		if c.labels.IsNormal(j) && hi[j] > 0 {
			row.Append(j, lo[j], hi[j])
		}
	}
	row.Target = imdp.Interval{Lower: targetLo, Upper: targetHi}
	row.Avoid = imdp.Interval{Lower: avoidLo, Upper: avoidHi}
	return row, nil
}
