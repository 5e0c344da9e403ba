package synthesis_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/imdp/internal/imdp"
	"github.com/san-kum/imdp/internal/synthesis"
)

func row(dest []int, lower, upper []float64, target, avoid imdp.Interval) *imdp.Row {
	r := &imdp.Row{Target: target, Avoid: avoid}
	for i, d := range dest {
		r.Append(d, lower[i], upper[i])
	}
	return r
}

func iv(lo, hi float64) imdp.Interval { return imdp.Interval{Lower: lo, Upper: hi} }

var _ = Describe("Expect", func() {
	var (
		r      *imdp.Row
		values []float64
	)

	BeforeEach(func() {
		r = row([]int{0, 1}, []float64{0.2, 0.1}, []float64{0.5, 0.6}, iv(0.1, 0.3), iv(0, 0.4))
		values = []float64{0.2, 0.8}
	})

	It("should push mass to low values when pessimistic", func() {
		Expect(synthesis.Expect(r, values, synthesis.Pessimistic, nil)).To(BeNumerically("~", 0.26, 1e-12))

		cells, target, avoid := synthesis.Distribution(r, values, synthesis.Pessimistic)
		Expect(cells[0]).To(BeNumerically("~", 0.4, 1e-12))
		Expect(cells[1]).To(BeNumerically("~", 0.1, 1e-12))
		Expect(target).To(BeNumerically("~", 0.1, 1e-12))
		Expect(avoid).To(BeNumerically("~", 0.4, 1e-12))
	})

	It("should push mass to high values when optimistic", func() {
		Expect(synthesis.Expect(r, values, synthesis.Optimistic, nil)).To(BeNumerically("~", 0.74, 1e-12))

		cells, target, avoid := synthesis.Distribution(r, values, synthesis.Optimistic)
		Expect(cells).To(HaveLen(2))
		Expect(cells[1]).To(BeNumerically("~", 0.5, 1e-12))
		Expect(target).To(BeNumerically("~", 0.3, 1e-12))
		Expect(avoid).To(BeZero())
	})

	It("should reduce to the dot product for point intervals", func() {
		r := row([]int{0, 1}, []float64{0.25, 0.25}, []float64{0.25, 0.25}, iv(0.3, 0.3), iv(0.2, 0.2))
		want := 0.25*0.2 + 0.25*0.8 + 0.3
		Expect(synthesis.Expect(r, values, synthesis.Pessimistic, nil)).To(BeNumerically("~", want, 1e-12))
		Expect(synthesis.Expect(r, values, synthesis.Optimistic, nil)).To(BeNumerically("~", want, 1e-12))
	})

	It("should break ties by state index with aggregates last", func() {
		r := row([]int{0, 1}, []float64{0, 0}, []float64{1, 1}, iv(0, 1), iv(0, 0))
		values := []float64{1, 1}

		for _, res := range []synthesis.Resolution{synthesis.Pessimistic, synthesis.Optimistic} {
			cells, target, _ := synthesis.Distribution(r, values, res)
			Expect(cells).To(Equal([]float64{1, 0}))
			Expect(target).To(BeZero())
		}
	})

	It("should reuse scratch memory across rows", func() {
		var scratch synthesis.Scratch
		a := synthesis.Expect(r, values, synthesis.Pessimistic, &scratch)
		other := row([]int{1}, []float64{0.5}, []float64{0.5}, iv(0.5, 0.5), iv(0, 0))
		b := synthesis.Expect(other, values, synthesis.Pessimistic, &scratch)

		Expect(a).To(BeNumerically("~", 0.26, 1e-12))
		Expect(b).To(BeNumerically("~", 0.9, 1e-12))
	})

	It("should never rank pessimistic above optimistic", func() {
		rng := rand.New(rand.NewSource(7))
		for trial := 0; trial < 200; trial++ {
			n := 1 + rng.Intn(6)
			values := make([]float64, n)
			for i := range values {
				values[i] = rng.Float64()
			}

			// intervals around a random distribution over n cells and the aggregates
			p := make([]float64, n+2)
			total := 0.0
			for i := range p {
				p[i] = rng.Float64()
				total += p[i]
			}
			r := &imdp.Row{}
			lo := func(i int) float64 { return max(0, p[i]/total-0.1*rng.Float64()) }
			hi := func(i int) float64 { return min(1, p[i]/total+0.1*rng.Float64()) }
			for i := 0; i < n; i++ {
				r.Append(i, lo(i), hi(i))
			}
			r.Target = iv(lo(n), hi(n))
			r.Avoid = iv(lo(n+1), hi(n+1))

			pess := synthesis.Expect(r, values, synthesis.Pessimistic, nil)
			opt := synthesis.Expect(r, values, synthesis.Optimistic, nil)
			Expect(pess).To(BeNumerically("<=", opt+1e-12))
			Expect(pess).To(BeNumerically(">=", -1e-12))
			Expect(opt).To(BeNumerically("<=", 1+1e-12))
		}
	})
})

var _ = Describe("Resolution", func() {
	It("should name and flip resolutions", func() {
		Expect(synthesis.Pessimistic.String()).To(Equal("pessimistic"))
		Expect(synthesis.Optimistic.String()).To(Equal("optimistic"))
		Expect(synthesis.Pessimistic.Opposite()).To(Equal(synthesis.Optimistic))
		Expect(synthesis.Optimistic.Opposite()).To(Equal(synthesis.Pessimistic))
	})
})
