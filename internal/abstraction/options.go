package abstraction

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/imdp/internal/compute"
	"github.com/san-kum/imdp/internal/noise"
)

type Options struct {
	// Floor clamps probabilities below it to zero.
	Floor float64
	// ImageSamples is the lattice resolution per dimension used to enclose
	// the image of a source cell under the dynamics.
	ImageSamples int
	// ImageSearch is the number of dynamics evaluations spent by a
	// Nelder-Mead search for each interior extremum of each mean
	// coordinate, started from the best lattice point. Zero keeps the
	// lattice enclosure.
	ImageSearch int
	// ImageMargin widens the enclosure of the image by this amount on
	// every side.
	ImageMargin float64
	// SourceSamples is the number of points drawn per source cell on the
	// Monte Carlo path, the center included.
	SourceSamples int
	MC            noise.MCOptions
	// ForceMonteCarlo integrates Gaussian modes by Monte Carlo as well.
	ForceMonteCarlo bool
	Seed            int64
	// BestEffort replaces failed units by the vacuous row instead of
	// failing the whole computation.
	BestEffort bool
	Backend    compute.Backend
	Logger     *slog.Logger
	// Progress is called from worker goroutines with the number of
	// finished units; it must be safe for concurrent use.
	Progress func(done, total int)
}

func DefaultOptions() Options {
	return Options{
		Floor:         1e-10,
		ImageSamples:  3,
		ImageSearch:   100,
		SourceSamples: 16,
		MC:            noise.DefaultMCOptions(),
		Seed:          1,
	}
}

func (o Options) validate() error {
	if o.Floor < 0 || o.Floor >= 1 {
		return fmt.Errorf("abstraction: floor must be in [0, 1), got %g", o.Floor)
	}
	if o.ImageSamples < 1 {
		return fmt.Errorf("abstraction: image samples must be positive, got %d", o.ImageSamples)
	}
	if o.ImageSearch < 0 {
		return fmt.Errorf("abstraction: image search must not be negative, got %d", o.ImageSearch)
	}
	if !(o.ImageMargin >= 0) {
		return fmt.Errorf("abstraction: image margin must not be negative, got %g", o.ImageMargin)
	}
	if o.SourceSamples < 1 {
		return fmt.Errorf("abstraction: source samples must be positive, got %d", o.SourceSamples)
	}
	return nil
}
