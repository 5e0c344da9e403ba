package experiment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/san-kum/imdp/internal/abstraction"
	"github.com/san-kum/imdp/internal/compute"
	"github.com/san-kum/imdp/internal/grid"
	"github.com/san-kum/imdp/internal/imdp"
	"github.com/san-kum/imdp/internal/label"
	"github.com/san-kum/imdp/internal/models"
	"github.com/san-kum/imdp/internal/synthesis"
)

type Config struct {
	Label       label.Options
	Abstraction abstraction.Options
	Assemble    imdp.AssembleOptions
	Synthesis   synthesis.Options
	// Horizon is the number of steps of a finite-horizon controller; zero
	// selects the infinite horizon.
	Horizon int
	// Workers sizes the backend shared by abstraction and synthesis when
	// neither sets its own; zero uses every CPU.
	Workers int
	Logger  *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Label:       label.DefaultOptions(),
		Abstraction: abstraction.DefaultOptions(),
		Assemble:    imdp.DefaultAssembleOptions(),
		Synthesis:   synthesis.DefaultOptions(),
		Horizon:     10,
	}
}

// Timings records the wall time of each pipeline phase.
type Timings struct {
	Label       time.Duration `json:"label"`
	Abstraction time.Duration `json:"abstraction"`
	Assemble    time.Duration `json:"assemble"`
	Synthesis   time.Duration `json:"synthesis"`
}

func (t Timings) Total() time.Duration {
	return t.Label + t.Abstraction + t.Assemble + t.Synthesis
}

// Run holds every artifact of one pipeline execution.
type Run struct {
	Problem *models.Problem
	States  *grid.Grid
	Inputs  *grid.Grid
	Labels  *label.Labeling
	Table   *imdp.Table
	IMDP    *imdp.IMDP
	Result  *synthesis.Result
	Timings Timings
}

type Experiment struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config) *Experiment {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	backend := compute.New(cfg.Workers)
	if cfg.Abstraction.Backend == nil {
		cfg.Abstraction.Backend = backend
	}
	if cfg.Synthesis.Backend == nil {
		cfg.Synthesis.Backend = backend
	}
	if cfg.Abstraction.Logger == nil {
		cfg.Abstraction.Logger = log
	}
	if cfg.Assemble.Logger == nil {
		cfg.Assemble.Logger = log
	}
	if cfg.Synthesis.Logger == nil {
		cfg.Synthesis.Logger = log
	}
	return &Experiment{cfg: cfg, log: log}
}

func (e *Experiment) Config() Config { return e.cfg }

// Run executes grid construction, labeling, abstraction, assembly and
// synthesis in order. A canceled synthesis still returns the run with its
// partial result alongside the error.
func (e *Experiment) Run(ctx context.Context, p *models.Problem) (*Run, error) {
	run := &Run{Problem: p}
	e.log.Info("experiment started", "problem", p.Name, "horizon", e.cfg.Horizon)

	var err error
	start := time.Now()
	run.States, run.Inputs, err = p.Grids()
	if err != nil {
		return nil, err
	}
	run.Labels, err = label.New(e.cfg.Label).Apply(run.States, p.Target, p.Avoid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	run.Timings.Label = time.Since(start)
	e.log.Info("state space labeled",
		"cells", run.States.Len(),
		"target", len(run.Labels.Target()),
		"avoid", len(run.Labels.Avoid()),
		"elapsed", run.Timings.Label,
	)

	start = time.Now()
	c, err := abstraction.New(p.System, run.States, run.Inputs, run.Labels, e.cfg.Abstraction)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	run.Table, err = c.Compute(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	run.Timings.Abstraction = time.Since(start)

	start = time.Now()
	run.IMDP, err = imdp.Assemble(run.Table, e.cfg.Assemble)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	run.Timings.Assemble = time.Since(start)

	start = time.Now()
	s, err := synthesis.New(run.IMDP, e.cfg.Synthesis)
	if err != nil {
		return nil, err
	}
	if e.cfg.Horizon > 0 {
		run.Result, err = s.FiniteHorizon(ctx, e.cfg.Horizon)
	} else {
		run.Result, err = s.InfiniteHorizon(ctx)
	}
	run.Timings.Synthesis = time.Since(start)
	if err != nil {
		return run, fmt.Errorf("%s: %w", p.Name, err)
	}
	if run.Result.Warning != nil {
		e.log.Warn("synthesis finished with warning", "warning", run.Result.Warning)
	}

	e.log.Info("experiment finished",
		"problem", p.Name,
		"status", run.Result.Status,
		"entries", run.IMDP.Entries(),
		"elapsed", run.Timings.Total(),
	)
	return run, nil
}

// Execute is a shorthand for New(cfg).Run(ctx, p).
func Execute(ctx context.Context, p *models.Problem, cfg Config) (*Run, error) {
	return New(cfg).Run(ctx, p)
}
