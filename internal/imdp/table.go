package imdp

import (
	"fmt"
	"math"

	"github.com/san-kum/imdp/internal/label"
)

// Combine selects how per-mode rows merge into one row per (state, input).
type Combine string

const (
	// CombineWeighted mixes modes with fixed selection probabilities.
	CombineWeighted Combine = "weighted"
	// CombineHull takes the interval hull over modes, for a mode chosen by
	// an unknown disturbance.
	CombineHull Combine = "hull"
)

// Failure records a unit whose row was replaced by the vacuous row.
type Failure struct {
	State int
	Input int
	Mode  int
	Err   error
}

// Table is the interval transition table written by the abstraction: one
// row per (normal state, input, mode), laid out with mode fastest.
type Table struct {
	Labels   *label.Labeling
	Inputs   int
	Modes    int
	Weights  []float64
	Combine  Combine
	Rows     []Row
	Failures []Failure
}

// NewTable preallocates rows for every normal state of labels.
func NewTable(labels *label.Labeling, inputs int, weights []float64, combine Combine) *Table {
	modes := len(weights)
	return &Table{
		Labels:  labels,
		Inputs:  inputs,
		Modes:   modes,
		Weights: append([]float64(nil), weights...),
		Combine: combine,
		Rows:    make([]Row, len(labels.Normal())*inputs*modes),
	}
}

// Index returns the row position of (normal position p, input a, mode m).
func (t *Table) Index(p, a, m int) int {
	return (p*t.Inputs+a)*t.Modes + m
}

// Unit inverts Index into the state grid index, input and mode.
func (t *Table) Unit(i int) (state, input, mode int) {
	mode = i % t.Modes
	i /= t.Modes
	input = i % t.Inputs
	return t.Labels.Normal()[i/t.Inputs], input, mode
}

func (t *Table) Row(state, input, mode int) (*Row, bool) {
	p := t.Labels.NormalPos(state)
	if p < 0 || input < 0 || input >= t.Inputs || mode < 0 || mode >= t.Modes {
		return nil, false
	}
	return &t.Rows[t.Index(p, input, mode)], true
}

func (t *Table) validate(tol float64) error {
	if t.Labels == nil {
		return fmt.Errorf("imdp: table has no labeling")
	}
	if t.Inputs < 1 || t.Modes < 1 {
		return fmt.Errorf("imdp: table needs at least one input and one mode, got %d and %d", t.Inputs, t.Modes)
	}
	if want := len(t.Labels.Normal()) * t.Inputs * t.Modes; len(t.Rows) != want {
		return fmt.Errorf("imdp: table has %d rows, want %d", len(t.Rows), want)
	}

	switch t.Combine {
	case CombineWeighted:
		sum := 0.0
		for _, w := range t.Weights {
			if w < 0 || math.IsNaN(w) {
				return fmt.Errorf("imdp: negative mode weight %g", w)
			}
			sum += w
		}
		if math.Abs(sum-1) > tol {
			return fmt.Errorf("imdp: mode weights sum to %g, want 1", sum)
		}
	case CombineHull:
	default:
		return fmt.Errorf("imdp: unknown combine rule %q", t.Combine)
	}
	return nil
}

// mix merges the mode rows of one (state, input) into a single row.
func mix(rows []Row, weights []float64, combine Combine) Row {
	if len(rows) == 1 && (combine == CombineHull || weights[0] == 1) {
		return rows[0]
	}

	var out Row
	cursor := make([]int, len(rows))
	for {
		next := -1
		for m := range rows {
			if cursor[m] < len(rows[m].Dest) {
				d := rows[m].Dest[cursor[m]]
				if next < 0 || d < next {
					next = d
				}
			}
		}
		if next < 0 {
			break
		}

		ivs := make([]Interval, len(rows))
		for m := range rows {
			if cursor[m] < len(rows[m].Dest) && rows[m].Dest[cursor[m]] == next {
				ivs[m] = Interval{Lower: rows[m].Lower[cursor[m]], Upper: rows[m].Upper[cursor[m]]}
				cursor[m]++
			}
		}
		iv := combineIntervals(ivs, weights, combine)
		out.Append(next, iv.Lower, iv.Upper)
	}

	targets := make([]Interval, len(rows))
	avoids := make([]Interval, len(rows))
	for m := range rows {
		targets[m] = rows[m].Target
		avoids[m] = rows[m].Avoid
	}
	out.Target = combineIntervals(targets, weights, combine)
	out.Avoid = combineIntervals(avoids, weights, combine)
	return out
}

func combineIntervals(ivs []Interval, weights []float64, combine Combine) Interval {
	if combine == CombineHull {
		out := Interval{Lower: math.Inf(1), Upper: math.Inf(-1)}
		for _, iv := range ivs {
			out.Lower = math.Min(out.Lower, iv.Lower)
			out.Upper = math.Max(out.Upper, iv.Upper)
		}
		return out
	}

	var out Interval
	for m, iv := range ivs {
		out.Lower += weights[m] * iv.Lower
		out.Upper += weights[m] * iv.Upper
	}
	out.Upper = math.Min(out.Upper, 1)
	return out
}
