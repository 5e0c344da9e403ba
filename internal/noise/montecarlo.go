package noise

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/imdp/internal/dynamo"
)

type MCOptions struct {
	// Samples per batch.
	Samples int `yaml:"samples" json:"samples"`
	// MaxIterations is the batch budget before giving up.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`
	// Tolerance is the absolute standard error at which a mass estimate is accepted.
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`
	// Confidence sets the two-sided normal margin added around each estimate.
	Confidence float64 `yaml:"confidence" json:"confidence"`
}

func DefaultMCOptions() MCOptions {
	return MCOptions{
		Samples:       2000,
		MaxIterations: 20,
		Tolerance:     1e-3,
		Confidence:    0.95,
	}
}

func (o MCOptions) Validate() error {
	if o.Samples < 2 {
		return fmt.Errorf("monte carlo samples must be at least 2, got %d", o.Samples)
	}
	if o.MaxIterations < 1 {
		return fmt.Errorf("monte carlo max iterations must be positive, got %d", o.MaxIterations)
	}
	if !(o.Tolerance > 0) {
		return fmt.Errorf("monte carlo tolerance must be positive, got %g", o.Tolerance)
	}
	if !(o.Confidence > 0 && o.Confidence < 1) {
		return fmt.Errorf("confidence must be in (0, 1), got %g", o.Confidence)
	}
	return nil
}

type Estimate struct {
	Mass       float64
	StdErr     float64
	Margin     float64
	Samples    int
	Iterations int
	Converged  bool
}

// Lower and Upper are the estimate shifted by the confidence margin and
// clamped to [0, 1].
func (e Estimate) Lower() float64 { return clamp01(e.Mass - e.Margin) }
func (e Estimate) Upper() float64 { return clamp01(e.Mass + e.Margin) }

// MonteCarlo integrates a density over boxes by uniform sampling.
type MonteCarlo struct {
	density dynamo.Density
	opts    MCOptions
	z       float64
}

func NewMonteCarlo(density dynamo.Density, opts MCOptions) (*MonteCarlo, error) {
	if density == nil {
		return nil, fmt.Errorf("noise: nil density")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &MonteCarlo{
		density: density,
		opts:    opts,
		z:       distuv.UnitNormal.Quantile(0.5 + opts.Confidence/2),
	}, nil
}

func (mc *MonteCarlo) Options() MCOptions      { return mc.opts }
func (mc *MonteCarlo) Density() dynamo.Density { return mc.density }

// Mass estimates the probability of the box [lo, hi] under the density
// centered at mean. Batches are drawn until the standard error reaches the
// tolerance or the iteration budget runs out; the latter returns an
// estimate with Converged unset.
func (mc *MonteCarlo) Mass(rng *rand.Rand, mean dynamo.State, lo, hi []float64) Estimate {
	d := len(lo)
	vol := 1.0
	for i := 0; i < d; i++ {
		vol *= hi[i] - lo[i]
	}

	z := make(dynamo.State, d)
	var sum, sumSq float64
	n := 0
	est := Estimate{}

	for it := 1; it <= mc.opts.MaxIterations; it++ {
		for s := 0; s < mc.opts.Samples; s++ {
			for i := 0; i < d; i++ {
				z[i] = lo[i] + rng.Float64()*(hi[i]-lo[i])
			}
			v := vol * mc.density.Eval(z, mean)
			sum += v
			sumSq += v * v
		}
		n += mc.opts.Samples

		m := sum / float64(n)
		variance := math.Max(0, sumSq/float64(n)-m*m) * float64(n) / float64(n-1)
		est = Estimate{
			Mass:       m,
			StdErr:     math.Sqrt(variance / float64(n)),
			Samples:    n,
			Iterations: it,
		}
		if est.StdErr <= mc.opts.Tolerance {
			est.Converged = true
			break
		}
	}

	est.Margin = mc.z * est.StdErr
	return est
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
