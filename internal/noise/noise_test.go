package noise

import (
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/imdp/internal/dynamo"
)

func phi(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func TestNewGaussianValidation(t *testing.T) {
	tests := []struct {
		name  string
		sigma []float64
	}{
		{"empty", nil},
		{"zero", []float64{0}},
		{"negative", []float64{1, -1}},
		{"inf", []float64{math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGaussian(tt.sigma); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestAxisMass(t *testing.T) {
	g, err := NewGaussian([]float64{1})
	if err != nil {
		t.Fatalf("NewGaussian failed: %v", err)
	}

	tests := []struct {
		a, b, y  float64
		expected float64
	}{
		{-1, 0, 0, phi(0) - phi(-1)},
		{0, 1, 0, phi(1) - phi(0)},
		{-1, 1, 0, phi(1) - phi(-1)},
		{5, 6, 0, phi(6) - phi(5)},
		{-1, 0, 3, phi(-3) - phi(-4)},
	}
	for _, tt := range tests {
		got := g.AxisMass(0, tt.a, tt.b, tt.y)
		if math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("AxisMass(%g, %g, %g) = %.15f, want %.15f", tt.a, tt.b, tt.y, got, tt.expected)
		}
	}
}

func TestAxisRangeBracketsPointMasses(t *testing.T) {
	g, err := NewGaussian([]float64{0.5})
	if err != nil {
		t.Fatalf("NewGaussian failed: %v", err)
	}

	a, b := 0.2, 0.6
	lo, hi := g.AxisRange(0, a, b, -0.3, 0.9)
	for y := -0.3; y <= 0.9; y += 0.01 {
		m := g.AxisMass(0, a, b, y)
		if m < lo-1e-15 || m > hi+1e-15 {
			t.Errorf("mass %g at mean %g outside [%g, %g]", m, y, lo, hi)
		}
	}
	if peak := g.AxisMass(0, a, b, 0.4); math.Abs(hi-peak) > 1e-15 {
		t.Errorf("max = %g, want peak %g", hi, peak)
	}
}

func TestBoxBoundsPointMean(t *testing.T) {
	g, err := NewGaussian([]float64{1, 2})
	if err != nil {
		t.Fatalf("NewGaussian failed: %v", err)
	}

	lo, hi := []float64{-1, 0}, []float64{0, 1}
	mean := []float64{0.1, -0.2}
	min, max := g.BoxBounds(lo, hi, mean, mean)

	expected := (phi((0-0.1)/1) - phi((-1-0.1)/1)) * (phi((1+0.2)/2) - phi((0+0.2)/2))
	if math.Abs(min-expected) > 1e-12 || math.Abs(max-expected) > 1e-12 {
		t.Errorf("BoxBounds = [%g, %g], want %g", min, max, expected)
	}
}

func TestWidenNeverTightensUpperBound(t *testing.T) {
	g, err := NewGaussian([]float64{0.3})
	if err != nil {
		t.Fatalf("NewGaussian failed: %v", err)
	}
	wide := g.Widen(2)

	// far cells gain mass under wider noise; the near cell loses it
	_, narrowFar := g.BoxBounds([]float64{2}, []float64{2.5}, []float64{0}, []float64{0.1})
	_, wideFar := wide.BoxBounds([]float64{2}, []float64{2.5}, []float64{0}, []float64{0.1})
	if narrowFar > wideFar {
		t.Errorf("narrow noise upper bound %g exceeds wide %g", narrowFar, wideFar)
	}
	if wide.Sigma()[0] != 0.6 {
		t.Errorf("Widen sigma = %v", wide.Sigma())
	}
}

func TestGaussianDensity(t *testing.T) {
	g, err := NewGaussian([]float64{1, 1})
	if err != nil {
		t.Fatalf("NewGaussian failed: %v", err)
	}
	got := g.Eval(dynamo.State{0, 0}, dynamo.State{0, 0})
	expected := 1 / (2 * math.Pi)
	if math.Abs(got-expected) > 1e-12 {
		t.Errorf("Eval = %g, want %g", got, expected)
	}
}

func TestMonteCarloMatchesClosedForm(t *testing.T) {
	g, err := NewGaussian([]float64{1})
	if err != nil {
		t.Fatalf("NewGaussian failed: %v", err)
	}
	mc, err := NewMonteCarlo(g, MCOptions{Samples: 5000, MaxIterations: 50, Tolerance: 5e-4, Confidence: 0.99})
	if err != nil {
		t.Fatalf("NewMonteCarlo failed: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	est := mc.Mass(rng, dynamo.State{0}, []float64{-1}, []float64{0})
	if !est.Converged {
		t.Fatalf("estimate did not converge: %+v", est)
	}

	expected := phi(0) - phi(-1)
	if math.Abs(est.Mass-expected) > 5*est.StdErr+1e-3 {
		t.Errorf("Mass = %g, want %g (stderr %g)", est.Mass, expected, est.StdErr)
	}
	if est.Lower() > expected+1e-3 || est.Upper() < expected-1e-3 {
		t.Errorf("interval [%g, %g] misses %g", est.Lower(), est.Upper(), expected)
	}
}

func TestMonteCarloReportsNonConvergence(t *testing.T) {
	g, err := NewGaussian([]float64{0.1})
	if err != nil {
		t.Fatalf("NewGaussian failed: %v", err)
	}
	mc, err := NewMonteCarlo(g, MCOptions{Samples: 10, MaxIterations: 2, Tolerance: 1e-9, Confidence: 0.95})
	if err != nil {
		t.Fatalf("NewMonteCarlo failed: %v", err)
	}

	est := mc.Mass(rand.New(rand.NewSource(1)), dynamo.State{0}, []float64{-5}, []float64{5})
	if est.Converged {
		t.Errorf("expected no convergence, got %+v", est)
	}
	if est.Iterations != 2 || est.Samples != 20 {
		t.Errorf("iterations = %d, samples = %d, want 2 and 20", est.Iterations, est.Samples)
	}
}

func TestMCOptionsValidate(t *testing.T) {
	if err := DefaultMCOptions().Validate(); err != nil {
		t.Errorf("default options invalid: %v", err)
	}
	bad := DefaultMCOptions()
	bad.Confidence = 1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for confidence 1")
	}
}
