// Package imdp holds the interval transition data of an abstraction and
// assembles it into an Interval Markov Decision Process.
//
// A [Row] is the sparse interval distribution out of one normal state cell
// under one input (and, inside a [Table], one mode). Destinations are the
// normal cells listed in Dest plus two aggregates: Target, the union of the
// target cells, and Avoid, the union of the avoid cells and everything
// outside the state-space box. Cells not listed carry the interval [0, 0].
package imdp

import (
	"math"

	"github.com/san-kum/imdp/internal/dynamo"
)

type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

func (iv Interval) Width() float64 { return iv.Upper - iv.Lower }

type Row struct {
	Dest   []int
	Lower  []float64
	Upper  []float64
	Target Interval
	Avoid  Interval
}

// VacuousRow admits every distribution over the target and avoid
// aggregates. It is sound under both resolutions.
func VacuousRow() Row {
	return Row{
		Target: Interval{Lower: 0, Upper: 1},
		Avoid:  Interval{Lower: 0, Upper: 1},
	}
}

func (r *Row) Len() int { return len(r.Dest) }

// Append adds a cell destination. Cells must be appended in ascending order.
func (r *Row) Append(dest int, lower, upper float64) {
	r.Dest = append(r.Dest, dest)
	r.Lower = append(r.Lower, lower)
	r.Upper = append(r.Upper, upper)
}

// Sums returns the totals of the lower and upper bounds over every
// destination, aggregates included.
func (r *Row) Sums() (lower, upper float64) {
	lower = r.Target.Lower + r.Avoid.Lower
	upper = r.Target.Upper + r.Avoid.Upper
	for i := range r.Dest {
		lower += r.Lower[i]
		upper += r.Upper[i]
	}
	return lower, upper
}

// Find returns the interval of cell dest, [0, 0] when it is not listed.
func (r *Row) Find(dest int) Interval {
	lo, hi := 0, len(r.Dest)
	for lo < hi {
		mid := (lo + hi) / 2
		if r.Dest[mid] < dest {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(r.Dest) && r.Dest[lo] == dest {
		return Interval{Lower: r.Lower[lo], Upper: r.Upper[lo]}
	}
	return Interval{}
}

// Floor zeroes bounds below floor and drops cells whose upper bound
// becomes zero.
func (r *Row) Floor(floor float64) {
	if floor <= 0 {
		return
	}
	n := 0
	for i := range r.Dest {
		lo, hi := r.Lower[i], r.Upper[i]
		if hi < floor {
			continue
		}
		if lo < floor {
			lo = 0
		}
		r.Dest[n], r.Lower[n], r.Upper[n] = r.Dest[i], lo, hi
		n++
	}
	r.Dest, r.Lower, r.Upper = r.Dest[:n], r.Lower[:n], r.Upper[:n]
	r.Target = floorInterval(r.Target, floor)
	r.Avoid = floorInterval(r.Avoid, floor)
}

func floorInterval(iv Interval, floor float64) Interval {
	if iv.Upper < floor {
		return Interval{}
	}
	if iv.Lower < floor {
		iv.Lower = 0
	}
	return iv
}

// CheckRow validates 0 <= lower <= upper <= 1 for every entry and that some
// probability vector within the bounds sums to one, up to tol. The returned
// error has State, Input and Mode unset.
func CheckRow(r *Row, tol float64) *dynamo.InconsistentIntervalError {
	bad := func(iv Interval) bool {
		return math.IsNaN(iv.Lower) || math.IsNaN(iv.Upper) ||
			iv.Lower < -tol || iv.Upper > 1+tol || iv.Lower > iv.Upper+tol
	}

	for i, d := range r.Dest {
		if bad(Interval{Lower: r.Lower[i], Upper: r.Upper[i]}) {
			return &dynamo.InconsistentIntervalError{Dest: d}
		}
		if i > 0 && r.Dest[i-1] >= d {
			return &dynamo.InconsistentIntervalError{Dest: d}
		}
	}
	if bad(r.Target) {
		return &dynamo.InconsistentIntervalError{Dest: dynamo.DestTarget}
	}
	if bad(r.Avoid) {
		return &dynamo.InconsistentIntervalError{Dest: dynamo.DestAvoid}
	}

	lo, hi := r.Sums()
	if lo > 1+tol || hi < 1-tol {
		return &dynamo.InconsistentIntervalError{Dest: dynamo.DestRow, LowerSum: lo, UpperSum: hi}
	}
	return nil
}
