// Package calibration derives pixel-to-micrometer scale factors from reference
// measurements and manages named calibration profiles.
package calibration

import (
	"crypto/sha256"
	"encoding/hex"
	"math"

	"gonum.org/v1/gonum/stat"
)

// minPixelDistance floors reference distances so a zero-length line gives a
// large finite scale instead of a division by zero.
const minPixelDistance = 1e-9

// LineScale returns the scale implied by a drawn line of pxDistance pixels
// whose real length is realUm micrometers.
func LineScale(pxDistance, realUm float64) float64 {
	return realUm / math.Max(pxDistance, minPixelDistance)
}

// UmPerPxFromDivisions returns the scale for one stage micrometer trial in which
// nDivisions divisions of umPerDivision micrometers span pxDistance pixels.
func UmPerPxFromDivisions(pxDistance float64, nDivisions int, umPerDivision float64) float64 {
	return float64(nDivisions) * umPerDivision / math.Max(pxDistance, minPixelDistance)
}

// Stats aggregates repeated calibration trials.
type Stats struct {
	UmPerPx  float64
	SD       float64
	NRepeats int
	PerTrial []float64
}

// CalibrationStats converts every trial distance into a scale and returns their
// mean and population standard deviation. No trials yield zero Stats.
func CalibrationStats(pxDistances []float64, nDivisions int, umPerDivision float64) Stats {
	if len(pxDistances) == 0 {
		return Stats{}
	}
	per := make([]float64, len(pxDistances))
	for i, d := range pxDistances {
		per[i] = UmPerPxFromDivisions(d, nDivisions, umPerDivision)
	}
	mean, sd := stat.PopMeanStdDev(per, nil)
	return Stats{UmPerPx: mean, SD: sd, NRepeats: len(per), PerTrial: per}
}

// SourceHash fingerprints a raw pixel buffer: the first 16 hex characters of
// its SHA-256 digest.
func SourceHash(pix []byte) string {
	sum := sha256.Sum256(pix)
	return hex.EncodeToString(sum[:])[:16]
}
