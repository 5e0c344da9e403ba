package synthesis_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/imdp/internal/compute"
	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/imdp"
	"github.com/san-kum/imdp/internal/label"
	"github.com/san-kum/imdp/internal/synthesis"
)

func options(pessimistic bool) synthesis.Options {
	opts := synthesis.DefaultOptions()
	opts.Pessimistic = pessimistic
	opts.Tolerance = 1e-10
	opts.Backend = compute.Serial{}
	return opts
}

func synthesizer(m *imdp.IMDP, opts synthesis.Options) *synthesis.Synthesizer {
	s, err := synthesis.New(m, opts)
	Expect(err).NotTo(HaveOccurred())
	return s
}

// oneStep has a single normal state with two inputs.
func oneStep() *imdp.IMDP {
	labels := label.FromLabels([]label.Label{label.Normal, label.Target, label.Avoid})
	rows := []imdp.Row{
		{Target: iv(0.3, 0.5), Avoid: iv(0.5, 0.7)},
		{Target: iv(0.4, 0.4), Avoid: iv(0.6, 0.6)},
	}
	m, err := imdp.FromRows(labels, 2, rows, 1e-9)
	Expect(err).NotTo(HaveOccurred())
	return m
}

// walk is the symmetric random walk on avoid, 1, 2, target. With widen > 0
// every probability becomes an interval of that half width.
func walk(widen float64) *imdp.IMDP {
	labels := label.FromLabels([]label.Label{label.Avoid, label.Normal, label.Normal, label.Target})
	w := func(p float64) imdp.Interval { return iv(max(0, p-widen), min(1, p+widen)) }

	from1 := imdp.Row{Avoid: w(0.5)}
	from1.Append(2, w(0.5).Lower, w(0.5).Upper)
	from2 := imdp.Row{Target: w(0.5)}
	from2.Append(1, w(0.5).Lower, w(0.5).Upper)

	m, err := imdp.FromRows(labels, 1, []imdp.Row{from1, from2}, 1e-9)
	Expect(err).NotTo(HaveOccurred())
	return m
}

var _ = Describe("Synthesizer", func() {
	ctx := context.Background()

	Context("with a one-step horizon", func() {
		It("should pick the input with the best pessimistic probability", func() {
			res, err := synthesizer(oneStep(), options(true)).FiniteHorizon(ctx, 1)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Status).To(Equal(synthesis.HorizonReached))
			Expect(res.Horizon).To(Equal(1))
			Expect(res.Value(0)).To(BeNumerically("~", 0.4, 1e-12))
			Expect(res.Action(0, 0)).To(Equal(1))
			Expect(res.Lower[0][0]).To(BeNumerically("~", 0.4, 1e-12))
			Expect(res.Upper[0][0]).To(BeNumerically("~", 0.4, 1e-12))
		})

		It("should pick the input with the best optimistic probability", func() {
			res, err := synthesizer(oneStep(), options(false)).FiniteHorizon(ctx, 1)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Value(0)).To(BeNumerically("~", 0.5, 1e-12))
			Expect(res.Action(0, 0)).To(Equal(0))
			Expect(res.Lower[0][0]).To(BeNumerically("~", 0.3, 1e-12))
			Expect(res.Upper[0][0]).To(BeNumerically("~", 0.5, 1e-12))
		})

		It("should mark target and avoid states without an input", func() {
			res, err := synthesizer(oneStep(), options(true)).FiniteHorizon(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Action(1, 0)).To(Equal(synthesis.NoInput))
			Expect(res.Action(2, 0)).To(Equal(synthesis.NoInput))
		})
	})

	Context("with the random walk", func() {
		It("should converge to the absorption probabilities", func() {
			res, err := synthesizer(walk(0), options(true)).InfiniteHorizon(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Status).To(Equal(synthesis.Converged))
			Expect(res.Warning).To(BeNil())
			Expect(res.Stationary()).To(BeTrue())
			Expect(res.Iterations).To(BeNumerically("<", 100))
			Expect(res.Value(1)).To(BeNumerically("~", 1.0/3, 1e-8))
			Expect(res.Value(2)).To(BeNumerically("~", 2.0/3, 1e-8))
			Expect(res.Lower[0][1]).To(BeNumerically("~", res.Upper[0][1], 1e-8))
		})

		It("should keep target at one and avoid at zero at every step", func() {
			res, err := synthesizer(walk(0.1), options(true)).FiniteHorizon(ctx, 10)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Values).To(HaveLen(11))
			Expect(res.Policy).To(HaveLen(10))
			for t := range res.Values {
				Expect(res.Values[t][0]).To(BeZero())
				Expect(res.Values[t][3]).To(Equal(1.0))
				Expect(res.Lower[t][3]).To(Equal(1.0))
				Expect(res.Upper[t][0]).To(BeZero())
			}
		})

		It("should grow values with the remaining horizon", func() {
			res, err := synthesizer(walk(0), options(true)).FiniteHorizon(ctx, 6)
			Expect(err).NotTo(HaveOccurred())
			for t := 1; t < len(res.Values); t++ {
				Expect(res.Values[t-1][1]).To(BeNumerically(">=", res.Values[t][1]))
			}
			Expect(res.Values[5][2]).To(BeNumerically("~", 0.5, 1e-12))
		})

		It("should never rank pessimistic above optimistic", func() {
			for _, horizon := range []int{1, 3, 20} {
				pess, err := synthesizer(walk(0.15), options(true)).FiniteHorizon(ctx, horizon)
				Expect(err).NotTo(HaveOccurred())
				opt, err := synthesizer(walk(0.15), options(false)).FiniteHorizon(ctx, horizon)
				Expect(err).NotTo(HaveOccurred())

				for s := range pess.Values[0] {
					Expect(pess.Value(s)).To(BeNumerically("<=", opt.Value(s)+1e-12))
					Expect(pess.Lower[0][s]).To(BeNumerically("<=", pess.Upper[0][s]))
				}
			}
		})

		It("should match across backends", func() {
			serial, err := synthesizer(walk(0.1), options(true)).InfiniteHorizon(ctx)
			Expect(err).NotTo(HaveOccurred())

			opts := options(true)
			opts.Backend = compute.NewCPUBackend(4)
			parallel, err := synthesizer(walk(0.1), opts).InfiniteHorizon(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(parallel.Values).To(Equal(serial.Values))
			Expect(parallel.Policy).To(Equal(serial.Policy))
		})

		It("should warn when the iteration budget runs out", func() {
			opts := options(true)
			opts.MaxIterations = 3
			res, err := synthesizer(walk(0), opts).InfiniteHorizon(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Status).To(Equal(synthesis.MaxIterationsExceeded))
			Expect(res.Iterations).To(Equal(3))
			Expect(errors.Is(res.Warning, dynamo.ErrMaxIterations)).To(BeTrue())

			var me *dynamo.MaxIterationsExceededError
			Expect(errors.As(res.Warning, &me)).To(BeTrue())
			Expect(me.Iterations).To(Equal(3))
			Expect(me.Residual).To(BeNumerically(">", 0))
			Expect(res.Value(1)).To(BeNumerically("<=", 1.0/3))
		})

		It("should report every step to observers", func() {
			var steps []int
			opts := options(true)
			opts.Observers = []synthesis.Observer{synthesis.ObserverFunc(func(step int, residual float64) {
				steps = append(steps, step)
			})}

			_, err := synthesizer(walk(0), opts).FiniteHorizon(ctx, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(steps).To(Equal([]int{1, 2, 3, 4}))
		})
	})

	Context("with an input that only loops back", func() {
		// stay has input 0 loop on the state and input 1 enter the target
		stay := func() *imdp.IMDP {
			labels := label.FromLabels([]label.Label{label.Normal, label.Target})
			loop := imdp.Row{}
			loop.Append(0, 1, 1)
			reach := imdp.Row{Target: iv(1, 1)}
			m, err := imdp.FromRows(labels, 2, []imdp.Row{loop, reach}, 1e-9)
			Expect(err).NotTo(HaveOccurred())
			return m
		}

		settles := func(pessimistic bool) {
			res, err := synthesizer(stay(), options(pessimistic)).InfiniteHorizon(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Status).To(Equal(synthesis.Converged))
			Expect(res.Value(0)).To(BeNumerically("~", 1, 1e-12))
			Expect(res.Action(0, 0)).To(Equal(1))
			Expect(res.Lower[0][0]).To(BeNumerically("~", 1, 1e-12))
			Expect(res.Upper[0][0]).To(BeNumerically("~", 1, 1e-12))
		}

		It("should keep the reaching input once values settle", func() {
			settles(true)
		})

		It("should keep the reaching input under optimistic resolution", func() {
			settles(false)
		})

		It("should still take the loop when it is the only choice", func() {
			labels := label.FromLabels([]label.Label{label.Normal, label.Target})
			loop := imdp.Row{}
			loop.Append(0, 1, 1)
			m, err := imdp.FromRows(labels, 1, []imdp.Row{loop}, 1e-9)
			Expect(err).NotTo(HaveOccurred())

			res, err := synthesizer(m, options(true)).InfiniteHorizon(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Value(0)).To(BeZero())
			Expect(res.Action(0, 0)).To(Equal(0))
		})
	})

	Context("when canceled", func() {
		It("should stop before the first step", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			res, err := synthesizer(walk(0), options(true)).FiniteHorizon(ctx, 5)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.Status).To(Equal(synthesis.Canceled))
			Expect(res.Iterations).To(BeZero())
			Expect(res.Stationary()).To(BeFalse())
			Expect(res.Action(1, 0)).To(Equal(synthesis.NoInput))
			Expect(res.Controller()).To(BeEmpty())
		})

		It("should keep the last completed step", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			opts := options(true)
			opts.Observers = []synthesis.Observer{synthesis.ObserverFunc(func(step int, residual float64) {
				if step == 2 {
					cancel()
				}
			})}

			res, err := synthesizer(walk(0), opts).FiniteHorizon(ctx, 10)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.Status).To(Equal(synthesis.Canceled))
			Expect(res.Horizon).To(Equal(2))
			Expect(res.Policy).To(HaveLen(2))
			Expect(res.Values).To(HaveLen(3))
			Expect(res.Value(2)).To(BeNumerically("~", 0.5, 1e-12))
			Expect(res.Value(1)).To(BeNumerically("~", 0.25, 1e-12))
		})

		It("should stop infinite-horizon iteration between steps", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			opts := options(true)
			opts.Observers = []synthesis.Observer{synthesis.ObserverFunc(func(step int, residual float64) {
				cancel()
			})}

			res, err := synthesizer(walk(0), opts).InfiniteHorizon(ctx)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.Iterations).To(Equal(1))
			Expect(res.Value(2)).To(BeNumerically("~", 0.5, 1e-12))
		})
	})

	It("should flatten the controller", func() {
		res, err := synthesizer(walk(0), options(true)).FiniteHorizon(ctx, 2)
		Expect(err).NotTo(HaveOccurred())

		entries := res.Controller()
		Expect(entries).To(HaveLen(2 * 4))
		Expect(entries[1]).To(Equal(synthesis.ControllerEntry{
			State: 1, Step: 0, Input: 0,
			Value: res.Value(1), Lower: res.Lower[0][1], Upper: res.Upper[0][1],
		}))
		Expect(entries[0].Input).To(Equal(synthesis.NoInput))
	})

	It("should reject bad options and horizons", func() {
		opts := options(true)
		opts.Tolerance = 0
		_, err := synthesis.New(walk(0), opts)
		Expect(err).To(HaveOccurred())

		_, err = synthesizer(walk(0), options(true)).FiniteHorizon(ctx, 0)
		Expect(err).To(HaveOccurred())
	})
})
