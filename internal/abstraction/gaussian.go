package abstraction

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/grid"
	"github.com/san-kum/imdp/internal/imdp"
	"github.com/san-kum/imdp/internal/noise"
)

// imageBox encloses f(x, u) over the source cell. The enclosure starts
// from the sample lattice, is widened by a local search for interior
// extrema of every coordinate and finally by the configured margin.
func (c *Computer) imageBox(dyn dynamo.Dynamics, state int, u dynamo.Input, k int) (lo, hi []float64, err error) {
	d := c.states.Dim()
	lo = make([]float64, d)
	hi = make([]float64, d)
	for i := range lo {
		lo[i] = math.Inf(1)
		hi[i] = math.Inf(-1)
	}
	widen := func(y dynamo.State) {
		for i, v := range y {
			lo[i] = math.Min(lo[i], v)
			hi[i] = math.Max(hi[i], v)
		}
	}

	lattice := c.states.Lattice(state, k)
	images := make([]dynamo.State, len(lattice))
	for j, x := range lattice {
		y := dynamo.State(dyn.Next(x, u))
		if len(y) != d {
			return nil, nil, fmt.Errorf("dynamics at %v returned dimension %d: %w", x, len(y), dynamo.ErrDimensionMismatch)
		}
		if !y.IsValid() {
			return nil, nil, fmt.Errorf("dynamics at %v: %w", x, dynamo.ErrInvalidState)
		}
		images[j] = y
		widen(y)
	}

	if c.opts.ImageSearch > 0 {
		cell := c.states.Cell(state)
		for i := 0; i < d; i++ {
			for _, sign := range []float64{1, -1} {
				if y, ok := c.searchExtremum(dyn, cell, u, lattice, images, i, sign); ok {
					widen(y)
				}
			}
		}
	}

	for i := range lo {
		lo[i] -= c.opts.ImageMargin
		hi[i] += c.opts.ImageMargin
	}
	return lo, hi, nil
}

// searchExtremum minimizes sign*f_i over the cell and returns the image of
// the point it ends at. Points are projected onto the cell, so the result
// is always a true image.
func (c *Computer) searchExtremum(dyn dynamo.Dynamics, cell grid.Cell, u dynamo.Input, lattice, images []dynamo.State, i int, sign float64) (dynamo.State, bool) {
	cellLo, cellHi := cell.Lower(), cell.Upper()
	project := func(x []float64) dynamo.State {
		p := make(dynamo.State, len(x))
		for j, v := range x {
			p[j] = math.Min(math.Max(v, cellLo[j]), cellHi[j])
		}
		return p
	}

	start := 0
	for j := range images {
		if sign*images[j][i] < sign*images[start][i] {
			start = j
		}
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			y := dyn.Next(project(x), u)
			if len(y) <= i || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
				return math.Inf(1)
			}
			return sign * y[i]
		},
	}
	size := math.Inf(1)
	for _, hw := range cell.HalfWidth {
		size = math.Min(size, hw/2)
	}
	settings := &optimize.Settings{FuncEvaluations: c.opts.ImageSearch}
	method := &optimize.NelderMead{SimplexSize: size}

	// hitting the evaluation budget still leaves a usable point
	res, _ := optimize.Minimize(problem, lattice[start].Clone(), settings, method)
	if res == nil {
		return nil, false
	}
	y := dynamo.State(dyn.Next(project(res.X), u))
	if len(y) != len(images[start]) || !y.IsValid() {
		return nil, false
	}
	return y, true
}

// axisFactors holds, along one axis, the cell positions that can carry at
// least floor mass and their per-axis mass bounds.
type axisFactors struct {
	pos []int
	lo  []float64
	hi  []float64
}

func (c *Computer) gaussianRow(dyn dynamo.Dynamics, g *noise.Gaussian, state int, u dynamo.Input) (imdp.Row, error) {
	meanLo, meanHi, err := c.imageBox(dyn, state, u, c.opts.ImageSamples)
	if err != nil {
		return imdp.Row{}, err
	}

	d := c.states.Dim()
	counts := c.states.Counts()
	bounds := c.states.Bounds()

	// a product of factors in [0, 1] never exceeds its smallest factor, so
	// positions whose factor stays below the floor cannot contribute
	axes := make([]axisFactors, d)
	inLo, inHi := 1.0, 1.0
	for i := 0; i < d; i++ {
		for k := 0; k < counts[i]; k++ {
			a := c.states.AxisLower(i, k)
			lo, hi := g.AxisRange(i, a, a+bounds[i].Step, meanLo[i], meanHi[i])
			if hi < c.opts.Floor || hi == 0 {
				continue
			}
			axes[i].pos = append(axes[i].pos, k)
			axes[i].lo = append(axes[i].lo, lo)
			axes[i].hi = append(axes[i].hi, hi)
		}

		lo, hi := g.AxisRange(i, c.domainLo[i], c.domainHi[i], meanLo[i], meanHi[i])
		inLo *= lo
		inHi *= hi
	}

	var (
		row imdp.Row
		agg aggregate
	)
	for i := range axes {
		if len(axes[i].pos) == 0 {
			agg.finish(&row, inLo, inHi)
			return row, nil
		}
	}

	// walk the Cartesian product in lexicographic order, which is ascending
	// flat index order
	sel := make([]int, d)
	multi := make([]int, d)
	for {
		lo, hi := 1.0, 1.0
		for i := 0; i < d; i++ {
			multi[i] = axes[i].pos[sel[i]]
			lo *= axes[i].lo[sel[i]]
			hi *= axes[i].hi[sel[i]]
		}
		if hi >= c.opts.Floor && hi > 0 {
			c.add(&row, &agg, c.states.Index(multi), lo, hi)
		}

		i := d - 1
		for ; i >= 0; i-- {
			sel[i]++
			if sel[i] < len(axes[i].pos) {
				break
			}
			sel[i] = 0
		}
		if i < 0 {
			break
		}
	}

	agg.finish(&row, inLo, inHi)
	return row, nil
}
