package synthesis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/san-kum/imdp/internal/compute"
	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/imdp"
)

// Observer is notified after every completed value-iteration step.
type Observer interface {
	OnIteration(step int, residual float64)
}

type ObserverFunc func(step int, residual float64)

func (f ObserverFunc) OnIteration(step int, residual float64) { f(step, residual) }

type Options struct {
	Pessimistic bool
	// Tolerance is the infinite-horizon stopping threshold on the largest
	// value change between consecutive steps.
	Tolerance     float64
	MaxIterations int
	Backend       compute.Backend
	Logger        *slog.Logger
	Observers     []Observer
}

func DefaultOptions() Options {
	return Options{
		Pessimistic:   true,
		Tolerance:     1e-6,
		MaxIterations: 10000,
	}
}

func (o Options) Resolution() Resolution {
	if o.Pessimistic {
		return Pessimistic
	}
	return Optimistic
}

func (o Options) validate() error {
	if !(o.Tolerance > 0) {
		return fmt.Errorf("synthesis: tolerance must be positive, got %g", o.Tolerance)
	}
	if o.MaxIterations < 1 {
		return fmt.Errorf("synthesis: max iterations must be positive, got %d", o.MaxIterations)
	}
	return nil
}

type Synthesizer struct {
	m       *imdp.IMDP
	opts    Options
	log     *slog.Logger
	scratch []Scratch
}

func New(m *imdp.IMDP, opts Options) (*Synthesizer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Backend == nil {
		opts.Backend = compute.NewCPUBackend(0)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Synthesizer{
		m:       m,
		opts:    opts,
		log:     log,
		scratch: make([]Scratch, opts.Backend.Workers()),
	}, nil
}

// initial returns the horizon-zero value: 1 on target cells, 0 elsewhere.
func (s *Synthesizer) initial() []float64 {
	labels := s.m.Labels()
	v := make([]float64, labels.Len())
	for _, t := range labels.Target() {
		v[t] = 1
	}
	return v
}

// bellman writes one optimal step from prev into next and the maximizing
// inputs into policy. Ties keep the lowest input index. When keep is not
// nil, a state keeps its input from keep unless another input beats it by
// more than the tolerance. It returns the largest absolute change.
func (s *Synthesizer) bellman(prev, next []float64, policy, keep []int, res Resolution) float64 {
	normal := s.m.Labels().Normal()
	inputs := s.m.Inputs()
	residuals := make([]float64, len(s.scratch))

	s.opts.Backend.Range(len(normal), func(worker, lo, hi int) {
		scratch := &s.scratch[worker]
		for p := lo; p < hi; p++ {
			st := normal[p]
			best, arg := math.Inf(-1), 0
			kept := math.Inf(-1)
			for a := 0; a < inputs; a++ {
				v := Expect(s.m.RowAt(p, a), prev, res, scratch)
				if v > best {
					best, arg = v, a
				}
				if keep != nil && keep[st] == a {
					kept = v
				}
			}
			if best-kept <= s.opts.Tolerance {
				arg = keep[st]
			}
			next[st] = best
			policy[st] = arg
			residuals[worker] = math.Max(residuals[worker], math.Abs(best-prev[st]))
		}
	})

	residual := 0.0
	for _, r := range residuals {
		residual = math.Max(residual, r)
	}
	return residual
}

// evaluate writes one step of the fixed policy from prev into next.
func (s *Synthesizer) evaluate(prev, next []float64, policy []int, res Resolution) float64 {
	normal := s.m.Labels().Normal()
	residuals := make([]float64, len(s.scratch))

	s.opts.Backend.Range(len(normal), func(worker, lo, hi int) {
		scratch := &s.scratch[worker]
		for p := lo; p < hi; p++ {
			st := normal[p]
			next[st] = Expect(s.m.RowAt(p, policy[st]), prev, res, scratch)
			residuals[worker] = math.Max(residuals[worker], math.Abs(next[st]-prev[st]))
		}
	})

	residual := 0.0
	for _, r := range residuals {
		residual = math.Max(residual, r)
	}
	return residual
}

func (s *Synthesizer) notify(step int, residual float64) {
	for _, o := range s.opts.Observers {
		o.OnIteration(step, residual)
	}
}

func (s *Synthesizer) newPolicy() []int {
	labels := s.m.Labels()
	policy := make([]int, labels.Len())
	for i := range policy {
		if !labels.IsNormal(i) {
			policy[i] = NoInput
		}
	}
	return policy
}

// FiniteHorizon runs exactly n backward steps. When ctx is canceled the
// result holds the controller of the last completed horizon together with
// ctx.Err().
func (s *Synthesizer) FiniteHorizon(ctx context.Context, n int) (*Result, error) {
	if n < 1 {
		return nil, fmt.Errorf("synthesis: horizon must be positive, got %d", n)
	}
	res := s.opts.Resolution()
	start := time.Now()
	s.log.Info("finite-horizon synthesis started", "horizon", n, "resolution", res, "states", s.m.States(), "inputs", s.m.Inputs())

	result := &Result{
		Resolution: res,
		Status:     Initialized,
		Values:     [][]float64{s.initial()},
	}

	// decisions[k] is the choice with k+1 steps to go
	decisions := make([][]int, 0, n)
	var err error
	for k := 0; k < n; k++ {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		default:
		}
		if err != nil {
			break
		}

		result.Status = Iterating
		prev := result.Values[len(result.Values)-1]
		next := append([]float64(nil), prev...)
		policy := s.newPolicy()
		result.Residual = s.bellman(prev, next, policy, nil, res)

		decisions = append(decisions, policy)
		result.Values = append(result.Values, next)
		result.Iterations = k + 1
		s.notify(k+1, result.Residual)
	}

	result.Horizon = len(decisions)
	result.Policy = make([][]int, len(decisions))
	for t := range result.Policy {
		result.Policy[t] = decisions[len(decisions)-1-t]
	}
	slices.Reverse(result.Values)

	if err != nil {
		result.Status = Canceled
		s.log.Warn("finite-horizon synthesis canceled", "completed", result.Horizon, "horizon", n)
		return result, err
	}
	result.Status = HorizonReached
	s.bound(result)

	s.log.Info("finite-horizon synthesis finished", "horizon", n, "elapsed", time.Since(start))
	return result, nil
}

// InfiniteHorizon iterates until the largest value change drops below the
// tolerance. Running out of iterations is not an error: the result carries
// a *dynamo.MaxIterationsExceededError in Warning.
func (s *Synthesizer) InfiniteHorizon(ctx context.Context) (*Result, error) {
	res := s.opts.Resolution()
	start := time.Now()
	s.log.Info("infinite-horizon synthesis started",
		"resolution", res, "tolerance", s.opts.Tolerance, "max_iterations", s.opts.MaxIterations,
		"states", s.m.States(), "inputs", s.m.Inputs())

	result := &Result{
		Resolution: res,
		Status:     Initialized,
	}
	prev := s.initial()
	next := append([]float64(nil), prev...)
	policy := s.newPolicy()

	for k := 0; ; k++ {
		if k == s.opts.MaxIterations {
			result.Status = MaxIterationsExceeded
			result.Warning = &dynamo.MaxIterationsExceededError{Iterations: k, Residual: result.Residual}
			s.log.Warn("infinite-horizon synthesis did not converge", "iterations", k, "residual", result.Residual)
			break
		}
		select {
		case <-ctx.Done():
			result.Status = Canceled
			result.Values = [][]float64{prev}
			result.Policy = [][]int{policy}
			s.log.Warn("infinite-horizon synthesis canceled", "iterations", k)
			return result, ctx.Err()
		default:
		}

		result.Status = Iterating
		// a state whose value has settled keeps its input, so a
		// self-loop that merely ties at the fixed point never displaces
		// the input that reaches the target
		cand := s.newPolicy()
		var keep []int
		if k > 0 {
			keep = policy
		}
		result.Residual = s.bellman(prev, next, cand, keep, res)
		policy = cand
		prev, next = next, prev
		result.Iterations = k + 1
		s.notify(k+1, result.Residual)

		if result.Residual < s.opts.Tolerance {
			result.Status = Converged
			break
		}
	}

	result.Values = [][]float64{prev}
	result.Policy = [][]int{policy}
	s.bound(result)

	s.log.Info("infinite-horizon synthesis finished",
		"status", result.Status, "iterations", result.Iterations, "residual", result.Residual,
		"elapsed", time.Since(start))
	return result, nil
}

// bound evaluates the synthesized policy under the opposite resolution and
// fills Lower and Upper for every time step.
func (s *Synthesizer) bound(result *Result) {
	other := result.Resolution.Opposite()

	// opposite[t] is the value of the policy from time t on
	opposite := make([][]float64, len(result.Values))
	if result.Horizon > 0 {
		opposite[result.Horizon] = s.initial()
		for t := result.Horizon - 1; t >= 0; t-- {
			opposite[t] = append([]float64(nil), opposite[t+1]...)
			s.evaluate(opposite[t+1], opposite[t], result.Policy[t], other)
		}
	} else {
		prev := s.initial()
		next := append([]float64(nil), prev...)
		for k := 0; k < s.opts.MaxIterations; k++ {
			r := s.evaluate(prev, next, result.Policy[0], other)
			prev, next = next, prev
			if r < s.opts.Tolerance {
				break
			}
		}
		opposite[0] = prev
	}

	result.Lower = make([][]float64, len(result.Values))
	result.Upper = make([][]float64, len(result.Values))
	for t, values := range result.Values {
		result.Lower[t] = make([]float64, len(values))
		result.Upper[t] = make([]float64, len(values))
		for i := range values {
			result.Lower[t][i] = math.Min(values[i], opposite[t][i])
			result.Upper[t][i] = math.Max(values[i], opposite[t][i])
		}
	}
}
