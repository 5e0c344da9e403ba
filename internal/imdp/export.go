package imdp

import (
	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/grid"
)

type CellExport struct {
	Index  int       `json:"index"`
	Center []float64 `json:"center"`
	Lower  []float64 `json:"lower"`
	Upper  []float64 `json:"upper"`
	Label  string    `json:"label,omitempty"`
}

// TransitionEntry is one sparse interval. Dest is a cell index or
// dynamo.DestTarget / dynamo.DestAvoid; Mode is -1 for mixed rows.
type TransitionEntry struct {
	State int     `json:"state"`
	Input int     `json:"input"`
	Mode  int     `json:"mode"`
	Dest  int     `json:"dest"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ExportGrid lists the cells of g in index order. labels may be nil.
func ExportGrid(g *grid.Grid, labels func(int) string) []CellExport {
	out := make([]CellExport, g.Len())
	for i := range out {
		c := g.Cell(i)
		out[i] = CellExport{Index: i, Center: c.Center, Lower: c.Lower(), Upper: c.Upper()}
		if labels != nil {
			out[i].Label = labels(i)
		}
	}
	return out
}

func appendRow(out []TransitionEntry, r *Row, s, a, mode int) []TransitionEntry {
	for i, d := range r.Dest {
		out = append(out, TransitionEntry{State: s, Input: a, Mode: mode, Dest: d, Lower: r.Lower[i], Upper: r.Upper[i]})
	}
	out = append(out,
		TransitionEntry{State: s, Input: a, Mode: mode, Dest: dynamo.DestTarget, Lower: r.Target.Lower, Upper: r.Target.Upper},
		TransitionEntry{State: s, Input: a, Mode: mode, Dest: dynamo.DestAvoid, Lower: r.Avoid.Lower, Upper: r.Avoid.Upper},
	)
	return out
}

// Export flattens the per-mode rows of the table.
func (t *Table) Export() []TransitionEntry {
	var out []TransitionEntry
	for i := range t.Rows {
		s, a, mode := t.Unit(i)
		out = appendRow(out, &t.Rows[i], s, a, mode)
	}
	return out
}

// ExportTransitions flattens the mixed rows.
func (m *IMDP) ExportTransitions() []TransitionEntry {
	var out []TransitionEntry
	for p, s := range m.labels.Normal() {
		for a := 0; a < m.inputs; a++ {
			out = appendRow(out, m.RowAt(p, a), s, a, -1)
		}
	}
	return out
}
