package geometry

import (
	"math"
	"sort"
)

// DefaultResampleCount is the number of points ResamplePolyline produces
// when callers have no better value.
const DefaultResampleCount = 200

// minSegment floors arc-length denominators so zero-length segments never divide by zero.
const minSegment = 1e-9

// PolylineLength returns the sum of Euclidean distances between consecutive points.
// Sequences with fewer than 2 points have length 0.
func PolylineLength(points []Point2D) float64 {
	if len(points) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(points); i++ {
		total += points[i-1].Distance(points[i])
	}
	return total
}

// PolygonArea computes the area of the implicitly closed ring using the shoelace
// formula. The result is orientation independent. Fewer than 3 points yield 0.
// Self-intersection is not detected.
func PolygonArea(points []Point2D) float64 {
	if len(points) < 3 {
		return 0
	}
	var sum float64
	n := len(points)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return 0.5 * math.Abs(sum)
}

// ResamplePolyline re-parameterizes a polyline by cumulative arc length into n
// evenly spaced points. Input with fewer than 2 points is returned as a copy,
// and a polyline whose points all coincide yields n copies of its first point.
func ResamplePolyline(points []Point2D, n int) []Point2D {
	if len(points) < 2 {
		out := make([]Point2D, len(points))
		copy(out, points)
		return out
	}
	if n <= 0 {
		return nil
	}

	seg := make([]float64, len(points)-1)
	cum := make([]float64, len(points))
	for i := range seg {
		seg[i] = points[i].Distance(points[i+1])
		cum[i+1] = cum[i] + seg[i]
	}
	total := cum[len(cum)-1]

	out := make([]Point2D, n)
	if total == 0 {
		for i := range out {
			out[i] = points[0]
		}
		return out
	}

	for i := range out {
		t := 0.0
		if n > 1 {
			t = total * float64(i) / float64(n-1)
		}
		// Last cumulative index not greater than t, clamped to a valid segment.
		idx := sort.Search(len(cum), func(k int) bool { return cum[k] > t }) - 1
		if idx < 0 {
			idx = 0
		}
		if idx > len(seg)-1 {
			idx = len(seg) - 1
		}
		local := (t - cum[idx]) / math.Max(seg[idx], minSegment)
		out[i] = points[idx].Add(points[idx+1].Sub(points[idx]).Scale(local))
	}
	return out
}
