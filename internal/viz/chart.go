package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"
)

// ResidualChart plots log10 of the value-iteration residuals.
func ResidualChart(residuals []float64, width, height int) string {
	if len(residuals) == 0 {
		return ""
	}
	data := make([]float64, len(residuals))
	for i, r := range residuals {
		// zero residuals sit at the bottom of double precision
		data[i] = math.Log10(math.Max(r, 1e-16))
	}
	if len(data) == 1 {
		data = append(data, data[0])
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("log10 residual"),
	)
}

// ValueChart plots a value function over the state index.
func ValueChart(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if len(values) == 1 {
		values = []float64{values[0], values[0]}
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(1),
		asciigraph.Caption(caption),
	)
}
