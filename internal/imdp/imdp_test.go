package imdp_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/grid"
	"github.com/san-kum/imdp/internal/imdp"
	"github.com/san-kum/imdp/internal/label"
)

func row(dest []int, lower, upper []float64, target, avoid imdp.Interval) imdp.Row {
	r := imdp.Row{Target: target, Avoid: avoid}
	for i, d := range dest {
		r.Append(d, lower[i], upper[i])
	}
	return r
}

var _ = Describe("Row", func() {
	It("should sum bounds over cells and aggregates", func() {
		r := row([]int{1, 3}, []float64{0.1, 0.2}, []float64{0.3, 0.4},
			imdp.Interval{Lower: 0.1, Upper: 0.2}, imdp.Interval{Lower: 0, Upper: 0.5})

		lo, hi := r.Sums()
		Expect(lo).To(BeNumerically("~", 0.4, 1e-12))
		Expect(hi).To(BeNumerically("~", 1.4, 1e-12))
	})

	It("should find listed and unlisted destinations", func() {
		r := row([]int{2, 5, 9}, []float64{0.1, 0.2, 0.3}, []float64{0.2, 0.3, 0.4}, imdp.Interval{}, imdp.Interval{})

		Expect(r.Find(5)).To(Equal(imdp.Interval{Lower: 0.2, Upper: 0.3}))
		Expect(r.Find(4)).To(Equal(imdp.Interval{}))
		Expect(r.Find(10)).To(Equal(imdp.Interval{}))
	})

	It("should clamp entries below the floor", func() {
		r := row([]int{0, 1, 2}, []float64{1e-12, 0.1, 0}, []float64{1e-11, 0.9, 0.5},
			imdp.Interval{Lower: 1e-13, Upper: 0.2}, imdp.Interval{Lower: 0, Upper: 1e-12})
		r.Floor(1e-10)

		Expect(r.Dest).To(Equal([]int{1, 2}))
		Expect(r.Target.Lower).To(BeZero())
		Expect(r.Target.Upper).To(Equal(0.2))
		Expect(r.Avoid).To(Equal(imdp.Interval{}))
	})

	DescribeTable("CheckRow",
		func(r imdp.Row, dest int, ok bool) {
			err := imdp.CheckRow(&r, 1e-9)
			if ok {
				Expect(err).To(BeNil())
				return
			}
			Expect(err).NotTo(BeNil())
			Expect(err.Dest).To(Equal(dest))
			Expect(errors.Is(err, dynamo.ErrInconsistentInterval)).To(BeTrue())
		},
		Entry("exact distribution", row([]int{0}, []float64{0.5}, []float64{0.5},
			imdp.Interval{Lower: 0.25, Upper: 0.25}, imdp.Interval{Lower: 0.25, Upper: 0.25}), 0, true),
		Entry("loose but realizable", row([]int{0, 1}, []float64{0, 0.2}, []float64{0.6, 0.6},
			imdp.Interval{}, imdp.Interval{Lower: 0, Upper: 0.3}), 0, true),
		Entry("upper sum below one", row([]int{0}, []float64{0.2}, []float64{0.4},
			imdp.Interval{Lower: 0, Upper: 0.1}, imdp.Interval{Lower: 0, Upper: 0.1}), dynamo.DestRow, false),
		Entry("lower sum above one", row([]int{0}, []float64{0.7}, []float64{0.8},
			imdp.Interval{Lower: 0.4, Upper: 0.5}, imdp.Interval{}), dynamo.DestRow, false),
		Entry("lower above upper", row([]int{4}, []float64{0.6}, []float64{0.5},
			imdp.Interval{}, imdp.Interval{Lower: 0.4, Upper: 0.5}), 4, false),
		Entry("target above one", row(nil, nil, nil,
			imdp.Interval{Lower: 0, Upper: 1.5}, imdp.Interval{}), dynamo.DestTarget, false),
		Entry("negative avoid", row(nil, nil, nil,
			imdp.Interval{Lower: 0, Upper: 1}, imdp.Interval{Lower: -0.1, Upper: 0.2}), dynamo.DestAvoid, false),
		Entry("unsorted destinations", row([]int{3, 1}, []float64{0, 0}, []float64{1, 1},
			imdp.Interval{}, imdp.Interval{}), 1, false),
		Entry("vacuous row", imdp.VacuousRow(), 0, true),
	)
})

var _ = Describe("Assemble", func() {
	var labels *label.Labeling

	BeforeEach(func() {
		// cells: 0 normal, 1 normal, 2 target
		labels = label.FromLabels([]label.Label{label.Normal, label.Normal, label.Target})
	})

	It("should mix weighted modes", func() {
		t := imdp.NewTable(labels, 1, []float64{0.7, 0.3}, imdp.CombineWeighted)
		r0, _ := t.Row(0, 0, 0)
		*r0 = row([]int{0}, []float64{1}, []float64{1}, imdp.Interval{}, imdp.Interval{})
		r1, _ := t.Row(0, 0, 1)
		*r1 = row([]int{1}, []float64{0.5}, []float64{0.5}, imdp.Interval{Lower: 0.5, Upper: 0.5}, imdp.Interval{})
		r2, _ := t.Row(1, 0, 0)
		*r2 = row(nil, nil, nil, imdp.Interval{Lower: 1, Upper: 1}, imdp.Interval{})
		r3, _ := t.Row(1, 0, 1)
		*r3 = row(nil, nil, nil, imdp.Interval{}, imdp.Interval{Lower: 1, Upper: 1})

		m, err := imdp.Assemble(t, imdp.DefaultAssembleOptions())
		Expect(err).NotTo(HaveOccurred())

		mixed, ok := m.Row(0, 0)
		Expect(ok).To(BeTrue())
		Expect(mixed.Dest).To(Equal([]int{0, 1}))
		Expect(mixed.Lower[0]).To(BeNumerically("~", 0.7, 1e-12))
		Expect(mixed.Upper[1]).To(BeNumerically("~", 0.15, 1e-12))
		Expect(mixed.Target.Lower).To(BeNumerically("~", 0.15, 1e-12))

		other, ok := m.Row(1, 0)
		Expect(ok).To(BeTrue())
		Expect(other.Target.Upper).To(BeNumerically("~", 0.7, 1e-12))
		Expect(other.Avoid.Upper).To(BeNumerically("~", 0.3, 1e-12))

		_, ok = m.Row(2, 0)
		Expect(ok).To(BeFalse())
	})

	It("should take the interval hull of disturbance modes", func() {
		t := imdp.NewTable(labels, 1, []float64{0.5, 0.5}, imdp.CombineHull)
		for _, s := range []int{0, 1} {
			a, _ := t.Row(s, 0, 0)
			*a = row([]int{0}, []float64{0.6}, []float64{0.8}, imdp.Interval{Lower: 0.2, Upper: 0.4}, imdp.Interval{})
			b, _ := t.Row(s, 0, 1)
			*b = row([]int{1}, []float64{0.5}, []float64{0.9}, imdp.Interval{Lower: 0.1, Upper: 0.5}, imdp.Interval{})
		}

		m, err := imdp.Assemble(t, imdp.DefaultAssembleOptions())
		Expect(err).NotTo(HaveOccurred())

		r, _ := m.Row(0, 0)
		Expect(r.Find(0)).To(Equal(imdp.Interval{Lower: 0, Upper: 0.8}))
		Expect(r.Find(1)).To(Equal(imdp.Interval{Lower: 0, Upper: 0.9}))
		Expect(r.Target).To(Equal(imdp.Interval{Lower: 0.1, Upper: 0.5}))
	})

	It("should refuse an unrealizable row", func() {
		t := imdp.NewTable(labels, 1, []float64{1}, imdp.CombineWeighted)
		r0, _ := t.Row(0, 0, 0)
		*r0 = row([]int{1}, []float64{0.1}, []float64{0.2}, imdp.Interval{}, imdp.Interval{})
		r1, _ := t.Row(1, 0, 0)
		*r1 = imdp.VacuousRow()

		m, err := imdp.Assemble(t, imdp.DefaultAssembleOptions())
		Expect(m).To(BeNil())

		var ie *dynamo.InconsistentIntervalError
		Expect(errors.As(err, &ie)).To(BeTrue())
		Expect(ie.State).To(Equal(0))
		Expect(ie.Mode).To(Equal(0))
	})

	It("should refuse weights that do not sum to one", func() {
		t := imdp.NewTable(labels, 1, []float64{0.5, 0.4}, imdp.CombineWeighted)
		for i := range t.Rows {
			t.Rows[i] = imdp.VacuousRow()
		}
		_, err := imdp.Assemble(t, imdp.DefaultAssembleOptions())
		Expect(err).To(MatchError(ContainSubstring("weights")))
	})

	It("should export every entry with aggregates", func() {
		t := imdp.NewTable(labels, 2, []float64{1}, imdp.CombineWeighted)
		for i := range t.Rows {
			t.Rows[i] = row([]int{0}, []float64{0.5}, []float64{0.5},
				imdp.Interval{Lower: 0.5, Upper: 0.5}, imdp.Interval{})
		}
		m, err := imdp.Assemble(t, imdp.DefaultAssembleOptions())
		Expect(err).NotTo(HaveOccurred())

		entries := m.ExportTransitions()
		Expect(entries).To(HaveLen(2 * 2 * 3))
		Expect(entries[1].Dest).To(Equal(dynamo.DestTarget))
		Expect(entries[2].Dest).To(Equal(dynamo.DestAvoid))
		Expect(t.Export()).To(HaveLen(len(entries)))
		Expect(m.Entries()).To(Equal(4))
	})
})

var _ = Describe("FromRows", func() {
	It("should report every inconsistent row", func() {
		labels := label.FromLabels([]label.Label{label.Normal, label.Normal})
		rows := []imdp.Row{
			row(nil, nil, nil, imdp.Interval{Lower: 0, Upper: 0.5}, imdp.Interval{}),
			row(nil, nil, nil, imdp.Interval{}, imdp.Interval{Lower: 0, Upper: 0.2}),
		}
		_, err := imdp.FromRows(labels, 1, rows, 1e-9)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("state 0"))
		Expect(err.Error()).To(ContainSubstring("state 1"))
	})
})

var _ = Describe("ExportGrid", func() {
	It("should list cells in index order", func() {
		g, err := grid.New("state", []grid.Bounds{{Lower: -1, Upper: 1, Step: 1}})
		Expect(err).NotTo(HaveOccurred())

		cells := imdp.ExportGrid(g, func(i int) string { return label.Label(i).String() })
		Expect(cells).To(HaveLen(2))
		Expect(cells[1].Center).To(Equal([]float64{0.5}))
		Expect(cells[1].Lower).To(Equal([]float64{0}))
		Expect(cells[1].Label).To(Equal("target"))
	})
})
