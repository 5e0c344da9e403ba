// Package label marks state cells as target, avoid or normal.
//
// Under the default [Containment] policy a cell joins a region only when the
// predicate holds on every point of a sample lattice covering the closed
// cell (corners included), so partially covered cells stay normal and no
// probability mass is overclaimed. [Center] evaluates the cell center only.
package label

import (
	"fmt"

	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/grid"
)

type Label uint8

const (
	Normal Label = iota
	Target
	Avoid
)

func (l Label) String() string {
	switch l {
	case Target:
		return "target"
	case Avoid:
		return "avoid"
	default:
		return "normal"
	}
}

type Policy string

const (
	Containment Policy = "containment"
	Center      Policy = "center"
)

type Options struct {
	Policy Policy
	// Samples is the number of lattice points per dimension used by
	// Containment; values below 2 are raised to 2 (the corners).
	Samples int
}

func DefaultOptions() Options {
	return Options{Policy: Containment, Samples: 3}
}

type Labeler struct {
	opts Options
}

func New(opts Options) *Labeler {
	if opts.Policy == "" {
		opts.Policy = Containment
	}
	if opts.Samples < 2 {
		opts.Samples = 2
	}
	return &Labeler{opts: opts}
}

// Labeling is the immutable result of Apply.
type Labeling struct {
	labels    []Label
	normal    []int
	target    []int
	avoid     []int
	normalPos []int
}

// Apply labels every cell of g. A nil predicate is the empty region. Cells
// satisfying both predicates are labeled avoid.
func (l *Labeler) Apply(g *grid.Grid, target, avoid dynamo.Predicate) (*Labeling, error) {
	if target == nil {
		target = dynamo.Never
	}
	if avoid == nil {
		avoid = dynamo.Never
	}

	switch l.opts.Policy {
	case Containment, Center:
	default:
		return nil, fmt.Errorf("label: unknown policy %q", l.opts.Policy)
	}

	lab := &Labeling{
		labels:    make([]Label, g.Len()),
		normalPos: make([]int, g.Len()),
	}

	for i := 0; i < g.Len(); i++ {
		points := l.points(g, i)
		switch {
		case all(avoid, points):
			lab.labels[i] = Avoid
		case all(target, points):
			lab.labels[i] = Target
		default:
			lab.labels[i] = Normal
		}
	}

	lab.index()
	return lab, nil
}

func (l *Labeler) points(g *grid.Grid, idx int) []dynamo.State {
	if l.opts.Policy == Center {
		return []dynamo.State{g.Center(idx)}
	}
	return g.Lattice(idx, l.opts.Samples)
}

func all(p dynamo.Predicate, points []dynamo.State) bool {
	for _, x := range points {
		if !p.Contains(x) {
			return false
		}
	}
	return true
}

// FromLabels builds a labeling from explicit per-cell labels.
func FromLabels(labels []Label) *Labeling {
	lab := &Labeling{
		labels:    append([]Label(nil), labels...),
		normalPos: make([]int, len(labels)),
	}
	lab.index()
	return lab
}

func (lab *Labeling) index() {
	lab.normal = lab.normal[:0]
	lab.target = lab.target[:0]
	lab.avoid = lab.avoid[:0]
	for i, l := range lab.labels {
		lab.normalPos[i] = -1
		switch l {
		case Target:
			lab.target = append(lab.target, i)
		case Avoid:
			lab.avoid = append(lab.avoid, i)
		default:
			lab.normalPos[i] = len(lab.normal)
			lab.normal = append(lab.normal, i)
		}
	}
}

func (lab *Labeling) Len() int            { return len(lab.labels) }
func (lab *Labeling) Of(idx int) Label    { return lab.labels[idx] }
func (lab *Labeling) Normal() []int       { return lab.normal }
func (lab *Labeling) Target() []int       { return lab.target }
func (lab *Labeling) Avoid() []int        { return lab.avoid }
func (lab *Labeling) IsNormal(i int) bool { return lab.labels[i] == Normal }

// NormalPos returns the position of cell idx among the normal cells, or -1.
func (lab *Labeling) NormalPos(idx int) int { return lab.normalPos[idx] }

func (lab *Labeling) Labels() []Label {
	return append([]Label(nil), lab.labels...)
}

// Equal reports whether both labelings assign the same label to every cell.
func (lab *Labeling) Equal(other *Labeling) bool {
	if len(lab.labels) != len(other.labels) {
		return false
	}
	for i := range lab.labels {
		if lab.labels[i] != other.labels[i] {
			return false
		}
	}
	return true
}
