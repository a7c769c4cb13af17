package morphometry

import (
	"histo-analyzer/pkg/geometry"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ThicknessDistribution measures local layer thickness between two boundary curves.
//
// Both curves are resampled to samples points. For every point on line1 the
// distance to the nearest resampled point on line2 is taken, and the four
// summary statistics of those minima are returned. The measure is one-directional:
// line1 is the reference curve. A non-positive samples uses the default count.
func ThicknessDistribution(line1, line2 []geometry.Point2D, samples int) Distribution {
	if samples <= 0 {
		samples = geometry.DefaultResampleCount
	}
	p1 := geometry.ResamplePolyline(line1, samples)
	p2 := geometry.ResamplePolyline(line2, samples)
	if len(p1) == 0 || len(p2) == 0 {
		return Distribution{}
	}

	dists := DistanceMatrix(p1, p2)
	nearest := make([]float64, len(p1))
	for i := range nearest {
		nearest[i] = floats.Min(dists.RawRowView(i))
	}
	return Summarize(nearest)
}

// DistanceMatrix returns the len(a)×len(b) matrix of Euclidean distances
// between every point of a and every point of b.
func DistanceMatrix(a, b []geometry.Point2D) *mat.Dense {
	d := mat.NewDense(len(a), len(b), nil)
	for i, pa := range a {
		for j, pb := range b {
			d.Set(i, j, pa.Distance(pb))
		}
	}
	return d
}
