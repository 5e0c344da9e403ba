package synthesis

import (
	"slices"

	"github.com/san-kum/imdp/internal/imdp"
)

type Resolution int

const (
	// Pessimistic resolves interval uncertainty against the controller.
	Pessimistic Resolution = iota
	Optimistic
)

func (r Resolution) String() string {
	switch r {
	case Pessimistic:
		return "pessimistic"
	case Optimistic:
		return "optimistic"
	default:
		return "unknown"
	}
}

func (r Resolution) Opposite() Resolution {
	if r == Pessimistic {
		return Optimistic
	}
	return Pessimistic
}

type entry struct {
	idx   int
	pos   int
	value float64
	p     float64
	lower float64
	upper float64
}

// Scratch is reusable working memory for Expect. The zero value is ready to
// use; a Scratch must not be shared between goroutines.
type Scratch struct {
	entries []entry
}

// Expect returns the extremal expected value of values over every
// distribution admitted by row. values is indexed by grid state; the target
// aggregate is worth 1 and the avoid aggregate 0.
//
// Every destination starts at its lower bound. The remaining mass is then
// handed out up to each upper bound in order of increasing value for
// Pessimistic and decreasing value for Optimistic. Equal values are ordered
// by state index, with the target aggregate at len(values) and the avoid
// aggregate at len(values)+1.
func Expect(row *imdp.Row, values []float64, res Resolution, scratch *Scratch) float64 {
	if scratch == nil {
		scratch = &Scratch{}
	}
	sum := 0.0
	for _, e := range scratch.resolve(row, values, res) {
		sum += e.p * e.value
	}
	return sum
}

// Distribution returns the probabilities Expect assigns to the cells of row
// (in row order) and to the aggregates.
func Distribution(row *imdp.Row, values []float64, res Resolution) (cells []float64, target, avoid float64) {
	var scratch Scratch
	n := len(values)
	cells = make([]float64, len(row.Dest))
	for _, e := range scratch.resolve(row, values, res) {
		switch e.idx {
		case n:
			target = e.p
		case n + 1:
			avoid = e.p
		default:
			cells[e.pos] = e.p
		}
	}
	return cells, target, avoid
}

func (s *Scratch) resolve(row *imdp.Row, values []float64, res Resolution) []entry {
	n := len(values)
	es := s.entries[:0]
	for i, d := range row.Dest {
		es = append(es, entry{idx: d, pos: i, value: values[d], lower: row.Lower[i], upper: row.Upper[i]})
	}
	es = append(es,
		entry{idx: n, value: 1, lower: row.Target.Lower, upper: row.Target.Upper},
		entry{idx: n + 1, value: 0, lower: row.Avoid.Lower, upper: row.Avoid.Upper},
	)
	s.entries = es

	slices.SortFunc(es, func(a, b entry) int {
		switch {
		case a.value < b.value:
			if res == Optimistic {
				return 1
			}
			return -1
		case a.value > b.value:
			if res == Optimistic {
				return -1
			}
			return 1
		}
		return a.idx - b.idx
	})

	remaining := 1.0
	for _, e := range es {
		remaining -= e.lower
	}
	for i := range es {
		es[i].p = es[i].lower
		if remaining > 0 {
			extra := min(es[i].upper-es[i].lower, remaining)
			es[i].p += extra
			remaining -= extra
		}
	}
	return es
}
