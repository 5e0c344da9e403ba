package models

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/imdp/internal/abstraction"
	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/imdp"
	"github.com/san-kum/imdp/internal/noise"
)

// Linear is the autonomous map x' = A x.
type Linear struct {
	A *mat.Dense
}

func (l Linear) Next(x dynamo.State, _ dynamo.Input) dynamo.State {
	r, _ := l.A.Dims()
	var y mat.VecDense
	y.MulVec(l.A, mat.NewVecDense(len(x), x))
	out := make(dynamo.State, r)
	for i := range out {
		out[i] = y.AtVec(i)
	}
	return out
}

// SwitchedLinear is a two-mode stochastically switched linear system with
// additive Gaussian noise per mode. Mode 1 is selected with probability P1.
//
// With Custom set the system is abstracted as a single mixture density
// integrated by Monte Carlo; otherwise each mode is bounded in closed form
// and the modes are mixed by weight.
type SwitchedLinear struct {
	A1, A2         *mat.Dense
	Sigma1, Sigma2 []float64
	P1             float64
	Step           float64
	Custom         bool
}

func NewSwitchedLinear() *SwitchedLinear {
	return &SwitchedLinear{
		A1:     mat.NewDense(2, 2, []float64{0.1, 0.9, 0.8, 0.2}),
		A2:     mat.NewDense(2, 2, []float64{0.8, 0.2, 0.1, 0.9}),
		Sigma1: []float64{0.3, 0.2},
		Sigma2: []float64{0.2, 0.1},
		P1:     0.7,
		Step:   0.25,
	}
}

func (s *SwitchedLinear) Name() string {
	if s.Custom {
		return "switched-custom"
	}
	return "switched"
}

// Mixture is the density of the successor of mean under the random mode.
type Mixture struct {
	Modes   []Linear
	Noise   []*noise.Gaussian
	Weights []float64
}

func (m *Mixture) Eval(z, mean dynamo.State) float64 {
	p := 0.0
	for i, mode := range m.Modes {
		p += m.Weights[i] * m.Noise[i].Eval(z, mode.Next(mean, nil))
	}
	return p
}

func (s *SwitchedLinear) Problem() (*Problem, error) {
	g1, err := noise.NewGaussian(s.Sigma1)
	if err != nil {
		return nil, err
	}
	g2, err := noise.NewGaussian(s.Sigma2)
	if err != nil {
		return nil, err
	}

	p := &Problem{
		Name:   s.Name(),
		States: square(-1, 1, s.Step, 2),
		Target: dynamo.Box([]float64{-0.25, -0.25}, []float64{0.25, 0.25}),
		Avoid:  dynamo.Box([]float64{0.75, -1}, []float64{1, -0.75}),
	}

	if s.Custom {
		identity := dynamo.DynamicsFunc(func(x dynamo.State, _ dynamo.Input) dynamo.State { return x.Clone() })
		p.System = abstraction.SingleDensity(identity, &Mixture{
			Modes:   []Linear{{A: s.A1}, {A: s.A2}},
			Noise:   []*noise.Gaussian{g1, g2},
			Weights: []float64{s.P1, 1 - s.P1},
		})
		return p, nil
	}

	p.System = abstraction.System{
		Modes: []abstraction.Mode{
			{Name: "mode1", Weight: s.P1, Dynamics: Linear{A: s.A1}, Noise: g1},
			{Name: "mode2", Weight: 1 - s.P1, Dynamics: Linear{A: s.A2}, Noise: g2},
		},
		Combine: imdp.CombineWeighted,
	}
	return p, nil
}

func (s *SwitchedLinear) GetParams() map[string]float64 {
	return map[string]float64{
		"p1":   s.P1,
		"step": s.Step,
	}
}

func (s *SwitchedLinear) SetParam(name string, value float64) {
	switch name {
	case "p1":
		s.P1 = value
	case "step":
		s.Step = value
	}
}
