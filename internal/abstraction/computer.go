package abstraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/san-kum/imdp/internal/compute"
	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/grid"
	"github.com/san-kum/imdp/internal/imdp"
	"github.com/san-kum/imdp/internal/label"
	"github.com/san-kum/imdp/internal/noise"
)

type Computer struct {
	sys     System
	states  *grid.Grid
	inputs  *grid.Grid
	labels  *label.Labeling
	opts    Options
	weights []float64
	mc      []*noise.MonteCarlo
	log     *slog.Logger

	domainLo []float64
	domainHi []float64
}

// New prepares a computer. inputs may be nil for an autonomous system, in
// which case a single empty input is used.
func New(sys System, states, inputs *grid.Grid, labels *label.Labeling, opts Options) (*Computer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := sys.validate(states.Dim()); err != nil {
		return nil, err
	}
	if labels.Len() != states.Len() {
		return nil, fmt.Errorf("abstraction: %d labels for %d cells: %w",
			labels.Len(), states.Len(), dynamo.ErrDimensionMismatch)
	}

	c := &Computer{
		sys:     sys,
		states:  states,
		inputs:  inputs,
		labels:  labels,
		opts:    opts,
		weights: sys.weights(),
		mc:      make([]*noise.MonteCarlo, len(sys.Modes)),
		log:     opts.Logger,
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.opts.Backend == nil {
		c.opts.Backend = compute.NewCPUBackend(0)
	}
	c.domainLo, c.domainHi = states.Domain()

	for i, m := range sys.Modes {
		density := m.Density
		if density == nil && opts.ForceMonteCarlo {
			density = m.Noise
		}
		if density == nil {
			continue
		}
		mc, err := noise.NewMonteCarlo(density, opts.MC)
		if err != nil {
			return nil, fmt.Errorf("abstraction: mode %d: %w", i, err)
		}
		c.mc[i] = mc
	}

	// probe the dynamics once for its output dimension
	y := sys.Modes[0].Dynamics.Next(states.Center(0), c.input(0))
	if len(y) != states.Dim() {
		return nil, fmt.Errorf("abstraction: dynamics returned dimension %d, state space %d: %w",
			len(y), states.Dim(), dynamo.ErrDimensionMismatch)
	}

	return c, nil
}

func (c *Computer) numInputs() int {
	if c.inputs == nil {
		return 1
	}
	return c.inputs.Len()
}

func (c *Computer) input(a int) dynamo.Input {
	if c.inputs == nil {
		return dynamo.Input{}
	}
	return dynamo.Input(c.inputs.Center(a))
}

// Compute fills the transition table. It stops early only when ctx is
// canceled; unit failures are joined into one error unless BestEffort is
// set.
func (c *Computer) Compute(ctx context.Context) (*imdp.Table, error) {
	table := imdp.NewTable(c.labels, c.numInputs(), c.weights, c.sys.Combine)
	total := len(table.Rows)
	errs := make([]error, total)

	start := time.Now()
	c.log.Info("abstraction started",
		"normal", len(c.labels.Normal()),
		"inputs", table.Inputs,
		"modes", table.Modes,
		"units", total,
		"backend", c.opts.Backend.Name(),
	)

	var done atomic.Int64
	c.opts.Backend.Range(total, func(worker, lo, hi int) {
		for i := lo; i < hi; i++ {
			if ctx.Err() != nil {
				return
			}
			s, a, m := table.Unit(i)
			table.Rows[i], errs[i] = c.unit(s, a, m, i)

			n := int(done.Add(1))
			if c.opts.Progress != nil {
				c.opts.Progress(n, total)
			}
		}
	})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("abstraction canceled after %d of %d units: %w", done.Load(), total, err)
	}

	var failed []error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if c.opts.BestEffort {
			s, a, m := table.Unit(i)
			table.Rows[i] = imdp.VacuousRow()
			table.Failures = append(table.Failures, imdp.Failure{State: s, Input: a, Mode: m, Err: err})
			c.log.Warn("unit replaced by vacuous row", "state", s, "input", a, "mode", m, "err", err)
			continue
		}
		failed = append(failed, err)
	}
	if len(failed) > 0 {
		return nil, fmt.Errorf("abstraction: %d of %d units failed: %w", len(failed), total, errors.Join(failed...))
	}

	c.log.Info("abstraction finished",
		"units", total,
		"failures", len(table.Failures),
		"elapsed", time.Since(start),
	)
	return table, nil
}

// Unit computes the row of one (state, input, mode) triple. The source cell
// may carry any label.
func (c *Computer) Unit(state, input, mode int) (imdp.Row, error) {
	if state < 0 || state >= c.states.Len() || input < 0 || input >= c.numInputs() || mode < 0 || mode >= len(c.sys.Modes) {
		return imdp.Row{}, fmt.Errorf("abstraction: unit (%d, %d, %d) out of range", state, input, mode)
	}
	seq := (state*c.numInputs()+input)*len(c.sys.Modes) + mode
	return c.unit(state, input, mode, seq)
}

func (c *Computer) unit(state, input, mode, seq int) (imdp.Row, error) {
	m := c.sys.Modes[mode]
	u := c.input(input)

	var (
		row imdp.Row
		err error
	)
	if c.mc[mode] != nil {
		rng := rand.New(rand.NewSource(c.opts.Seed + int64(seq)))
		row, err = c.monteCarloRow(m.Dynamics, c.mc[mode], state, u, rng)
		var ie *dynamo.IntegrationError
		if errors.As(err, &ie) {
			ie.State, ie.Input, ie.Mode = state, input, mode
		}
	} else {
		row, err = c.gaussianRow(m.Dynamics, m.Noise, state, u)
	}
	if err != nil {
		return imdp.Row{}, err
	}

	row.Floor(c.opts.Floor)
	return row, nil
}

// aggregate accumulates the interval mass of target and avoid cells.
type aggregate struct {
	targetLo, targetHi float64
	avoidLo, avoidHi   float64
}

// add routes a cell interval to the row or to an aggregate by label.
func (c *Computer) add(row *imdp.Row, agg *aggregate, cell int, lo, hi float64) {
	switch c.labels.Of(cell) {
	case label.Target:
		agg.targetLo += lo
		agg.targetHi += hi
	case label.Avoid:
		agg.avoidLo += lo
		agg.avoidHi += hi
	default:
		row.Append(cell, lo, hi)
	}
}

// finish combines the aggregates with the mass kept inside the domain,
// inLo <= P(inside) <= inHi.
func (agg *aggregate) finish(row *imdp.Row, inLo, inHi float64) {
	row.Target = imdp.Interval{
		Lower: clamp01(agg.targetLo),
		Upper: clamp01(agg.targetHi),
	}
	row.Avoid = imdp.Interval{
		Lower: clamp01(1 - inHi + agg.avoidLo),
		Upper: clamp01(1 - inLo + agg.avoidHi),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
