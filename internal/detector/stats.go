package detector

import "sort"

// quantile returns the value at the q-th quantile (0 <= q <= 1) of the
// input, using the lower-nearest-rank convention so that roughly a q
// fraction of values falls strictly below the result.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(q * float64(len(sorted)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
