package imdp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/san-kum/imdp/internal/label"
)

type AssembleOptions struct {
	// Tolerance absorbs rounding and floor clamping in the row checks.
	Tolerance float64
	Logger    *slog.Logger
}

func DefaultAssembleOptions() AssembleOptions {
	return AssembleOptions{Tolerance: 1e-6}
}

// IMDP maps every (normal state, input) pair to an interval distribution.
// Target and avoid states are absorbing and have no rows.
type IMDP struct {
	labels   *label.Labeling
	inputs   int
	rows     []Row
	failures []Failure
}

// Assemble validates every per-mode row, mixes the modes and validates the
// mixed rows. The first violation aborts assembly with an
// *dynamo.InconsistentIntervalError; an unsound model is never returned.
func Assemble(t *Table, opts AssembleOptions) (*IMDP, error) {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultAssembleOptions().Tolerance
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := t.validate(opts.Tolerance); err != nil {
		return nil, err
	}

	normal := t.Labels.Normal()
	m := &IMDP{
		labels:   t.Labels,
		inputs:   t.Inputs,
		rows:     make([]Row, len(normal)*t.Inputs),
		failures: append([]Failure(nil), t.Failures...),
	}

	for p, s := range normal {
		for a := 0; a < t.Inputs; a++ {
			base := t.Index(p, a, 0)
			modeRows := t.Rows[base : base+t.Modes]

			for mode := range modeRows {
				if err := CheckRow(&modeRows[mode], opts.Tolerance); err != nil {
					err.State, err.Input, err.Mode = s, a, mode
					return nil, err
				}
			}

			row := mix(modeRows, t.Weights, t.Combine)
			if err := CheckRow(&row, opts.Tolerance); err != nil {
				err.State, err.Input, err.Mode = s, a, -1
				return nil, err
			}
			m.rows[p*t.Inputs+a] = row
		}
	}

	log.Debug("imdp assembled",
		"states", t.Labels.Len(),
		"normal", len(normal),
		"inputs", t.Inputs,
		"modes", t.Modes,
		"entries", m.Entries(),
		"failures", len(m.failures),
	)
	return m, nil
}

// FromRows builds an IMDP directly from mixed rows laid out as
// rows[p*inputs+a] for normal position p, validating each row.
func FromRows(labels *label.Labeling, inputs int, rows []Row, tol float64) (*IMDP, error) {
	if inputs < 1 {
		return nil, fmt.Errorf("imdp: need at least one input, got %d", inputs)
	}
	normal := labels.Normal()
	if len(rows) != len(normal)*inputs {
		return nil, fmt.Errorf("imdp: %d rows for %d normal states and %d inputs", len(rows), len(normal), inputs)
	}
	if tol <= 0 {
		tol = DefaultAssembleOptions().Tolerance
	}

	var errs []error
	for i := range rows {
		if err := CheckRow(&rows[i], tol); err != nil {
			err.State, err.Input, err.Mode = normal[i/inputs], i%inputs, -1
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &IMDP{labels: labels, inputs: inputs, rows: rows}, nil
}

func (m *IMDP) Labels() *label.Labeling { return m.labels }
func (m *IMDP) States() int             { return m.labels.Len() }
func (m *IMDP) Inputs() int             { return m.inputs }
func (m *IMDP) Failures() []Failure     { return m.failures }

// Row returns the row of grid state s under input a; ok is false for
// target and avoid states.
func (m *IMDP) Row(s, a int) (*Row, bool) {
	p := m.labels.NormalPos(s)
	if p < 0 || a < 0 || a >= m.inputs {
		return nil, false
	}
	return &m.rows[p*m.inputs+a], true
}

// RowAt addresses rows by normal position.
func (m *IMDP) RowAt(p, a int) *Row {
	return &m.rows[p*m.inputs+a]
}

// Entries counts the stored cell intervals.
func (m *IMDP) Entries() int {
	n := 0
	for i := range m.rows {
		n += len(m.rows[i].Dest)
	}
	return n
}

// Check re-validates every row; useful after rows were edited in place.
func (m *IMDP) Check(tol float64) error {
	normal := m.labels.Normal()
	for i := range m.rows {
		if err := CheckRow(&m.rows[i], tol); err != nil {
			err.State, err.Input, err.Mode = normal[i/m.inputs], i%m.inputs, -1
			return err
		}
	}
	return nil
}
