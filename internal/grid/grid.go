// Package grid partitions an axis-aligned box into uniform hyper-rectangular
// cells. Cells are enumerated in lexicographic order with the last dimension
// varying fastest, so flat and per-dimension indices convert in O(d).
package grid

import (
	"fmt"
	"math"

	"github.com/san-kum/imdp/internal/dynamo"
)

// divisibility tolerance relative to the step
const stepTolerance = 1e-9

type Bounds struct {
	Lower float64 `yaml:"lower" json:"lower"`
	Upper float64 `yaml:"upper" json:"upper"`
	Step  float64 `yaml:"step" json:"step"`
}

// Uniform builds per-dimension bounds from parallel lower/upper/step slices.
func Uniform(lower, upper, step []float64) ([]Bounds, error) {
	if len(lower) != len(upper) || len(lower) != len(step) {
		return nil, fmt.Errorf("grid: %d lower, %d upper, %d step values: %w",
			len(lower), len(upper), len(step), dynamo.ErrDimensionMismatch)
	}
	b := make([]Bounds, len(lower))
	for i := range lower {
		b[i] = Bounds{Lower: lower[i], Upper: upper[i], Step: step[i]}
	}
	return b, nil
}

type Cell struct {
	Index     int
	Center    dynamo.State
	HalfWidth []float64
}

// Lower returns the lower corner of the cell.
func (c Cell) Lower() []float64 {
	lo := make([]float64, len(c.Center))
	for i := range lo {
		lo[i] = c.Center[i] - c.HalfWidth[i]
	}
	return lo
}

func (c Cell) Upper() []float64 {
	hi := make([]float64, len(c.Center))
	for i := range hi {
		hi[i] = c.Center[i] + c.HalfWidth[i]
	}
	return hi
}

// Grid is immutable once built and safe for concurrent reads.
type Grid struct {
	space   string
	bounds  []Bounds
	counts  []int
	strides []int
	size    int
}

func New(space string, bounds []Bounds) (*Grid, error) {
	if len(bounds) == 0 {
		return nil, &dynamo.InvalidBoundsError{Space: space, Dim: 0, Reason: "no dimensions"}
	}

	g := &Grid{
		space:   space,
		bounds:  append([]Bounds(nil), bounds...),
		counts:  make([]int, len(bounds)),
		strides: make([]int, len(bounds)),
	}

	for i, b := range bounds {
		if err := validate(space, i, b); err != nil {
			return nil, err
		}
		ratio := (b.Upper - b.Lower) / b.Step
		g.counts[i] = int(math.Round(ratio))
	}

	g.size = 1
	for i := len(bounds) - 1; i >= 0; i-- {
		g.strides[i] = g.size
		g.size *= g.counts[i]
	}

	return g, nil
}

func validate(space string, dim int, b Bounds) error {
	fail := func(reason string) error {
		return &dynamo.InvalidBoundsError{
			Space: space, Dim: dim, Lower: b.Lower, Upper: b.Upper, Step: b.Step, Reason: reason,
		}
	}

	if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) || math.IsNaN(b.Step) ||
		math.IsInf(b.Lower, 0) || math.IsInf(b.Upper, 0) || math.IsInf(b.Step, 0) {
		return fail("non-finite value")
	}
	if b.Lower >= b.Upper {
		return fail("lower must be below upper")
	}
	if b.Step <= 0 {
		return fail("step must be positive")
	}

	ratio := (b.Upper - b.Lower) / b.Step
	n := math.Round(ratio)
	if n < 1 || math.Abs(ratio-n) > stepTolerance*math.Max(1, n) {
		return fail("range is not a multiple of step")
	}
	return nil
}

func (g *Grid) Space() string { return g.space }
func (g *Grid) Len() int      { return g.size }
func (g *Grid) Dim() int      { return len(g.bounds) }

func (g *Grid) Bounds() []Bounds {
	return append([]Bounds(nil), g.bounds...)
}

// Counts returns the number of cells along each dimension.
func (g *Grid) Counts() []int {
	return append([]int(nil), g.counts...)
}

// Domain returns the lower and upper corners of the bounding box.
func (g *Grid) Domain() (lo, hi []float64) {
	lo = make([]float64, len(g.bounds))
	hi = make([]float64, len(g.bounds))
	for i, b := range g.bounds {
		lo[i] = b.Lower
		hi[i] = b.Upper
	}
	return lo, hi
}

// MultiIndex converts a flat index into per-dimension indices.
func (g *Grid) MultiIndex(idx int) []int {
	m := make([]int, len(g.counts))
	g.fillMultiIndex(idx, m)
	return m
}

func (g *Grid) fillMultiIndex(idx int, m []int) {
	for i, s := range g.strides {
		m[i] = idx / s
		idx -= m[i] * s
	}
}

// Index converts per-dimension indices into a flat index. It returns -1 when
// any component is out of range.
func (g *Grid) Index(m []int) int {
	if len(m) != len(g.counts) {
		return -1
	}
	idx := 0
	for i, k := range m {
		if k < 0 || k >= g.counts[i] {
			return -1
		}
		idx += k * g.strides[i]
	}
	return idx
}

// AxisLower returns the lower edge of the k-th cell along dimension dim.
func (g *Grid) AxisLower(dim, k int) float64 {
	b := g.bounds[dim]
	return b.Lower + float64(k)*b.Step
}

func (g *Grid) AxisCenter(dim, k int) float64 {
	b := g.bounds[dim]
	return b.Lower + (float64(k)+0.5)*b.Step
}

func (g *Grid) Center(idx int) dynamo.State {
	c := make(dynamo.State, len(g.bounds))
	for i, s := range g.strides {
		k := idx / s
		idx -= k * s
		c[i] = g.AxisCenter(i, k)
	}
	return c
}

func (g *Grid) Cell(idx int) Cell {
	hw := make([]float64, len(g.bounds))
	for i, b := range g.bounds {
		hw[i] = b.Step / 2
	}
	return Cell{Index: idx, Center: g.Center(idx), HalfWidth: hw}
}

// Cells returns every cell in flat index order.
func (g *Grid) Cells() []Cell {
	cells := make([]Cell, g.size)
	for i := range cells {
		cells[i] = g.Cell(i)
	}
	return cells
}

// Locate returns the index of the cell containing x. Points on an interior
// face belong to the upper cell; points on the upper domain face belong to
// the last cell.
func (g *Grid) Locate(x dynamo.State) (int, bool) {
	if len(x) != len(g.bounds) {
		return -1, false
	}
	idx := 0
	for i, b := range g.bounds {
		if x[i] < b.Lower || x[i] > b.Upper {
			return -1, false
		}
		k := int(math.Floor((x[i] - b.Lower) / b.Step))
		if k >= g.counts[i] {
			k = g.counts[i] - 1
		}
		idx += k * g.strides[i]
	}
	return idx, true
}

// Lattice returns k points per dimension spread evenly over the closed cell,
// endpoints included. k = 1 yields the center only.
func (g *Grid) Lattice(idx, k int) []dynamo.State {
	return Lattice(g.Cell(idx), k)
}

func Lattice(c Cell, k int) []dynamo.State {
	d := len(c.Center)
	if k <= 1 {
		return []dynamo.State{c.Center.Clone()}
	}

	total := 1
	for i := 0; i < d; i++ {
		total *= k
	}

	points := make([]dynamo.State, 0, total)
	m := make([]int, d)
	for n := 0; n < total; n++ {
		rem := n
		for i := d - 1; i >= 0; i-- {
			m[i] = rem % k
			rem /= k
		}
		p := make(dynamo.State, d)
		for i := 0; i < d; i++ {
			frac := float64(m[i]) / float64(k-1)
			p[i] = c.Center[i] - c.HalfWidth[i] + 2*c.HalfWidth[i]*frac
		}
		points = append(points, p)
	}
	return points
}
