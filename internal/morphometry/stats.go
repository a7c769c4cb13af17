// Package morphometry computes distribution statistics over drawn tissue boundaries.
package morphometry

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Distribution summarizes a set of distances.
type Distribution struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// String renders the distribution the way it appears in measurement details.
func (d Distribution) String() string {
	return fmt.Sprintf("mean=%.2f; median=%.2f; min=%.2f; max=%.2f", d.Mean, d.Median, d.Min, d.Max)
}

// Summarize returns the mean, median, min and max of values.
// An empty input yields the zero Distribution.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	return Distribution{
		Mean:   stat.Mean(values, nil),
		Median: Median(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
}

// Median returns the middle value of values, averaging the two central values
// for even-length input. The input slice is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
