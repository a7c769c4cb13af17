// Package tissue reports tissue-level ratios from binary segmentation masks
// produced by the enhancement and segmentation collaborators.
package tissue

import (
	"fmt"

	"histo-analyzer/internal/measure"

	"gocv.io/x/gocv"
)

// Summary describes how much of the image a mask marks as tissue.
type Summary struct {
	TotalPx       int
	TissuePx      int
	Coverage      float64  // TissuePx / TotalPx
	TissueAreaUm2 *float64 // nil without calibration
	AreaUnits     string
}

// LoadMask reads a mask image as grayscale and binarizes it so every non-zero
// pixel becomes 255. The caller must Close the returned Mat.
func LoadMask(path string) (gocv.Mat, error) {
	gray := gocv.IMRead(path, gocv.IMReadGrayScale)
	if gray.Empty() {
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("failed to read mask %s", path)
	}
	defer gray.Close()

	binary := gocv.NewMat()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary)
	return binary, nil
}

// Summarize counts tissue pixels of a single-channel mask and converts the
// tissue area with umPerPx through the measurement conversion policy, naming
// physical units with labels.
func Summarize(mask gocv.Mat, umPerPx *float64, labels measure.UnitLabels) Summary {
	s := Summary{TotalPx: mask.Rows() * mask.Cols()}
	if s.TotalPx == 0 {
		_, s.AreaUnits = measure.ConvertWith(labels, 0, measure.KindArea, umPerPx)
		return s
	}
	s.TissuePx = gocv.CountNonZero(mask)
	s.Coverage = float64(s.TissuePx) / float64(s.TotalPx)
	s.TissueAreaUm2, s.AreaUnits = measure.ConvertWith(labels, float64(s.TissuePx), measure.KindArea, umPerPx)
	return s
}

// AreaFraction returns the share of tissue covered by measured areas, or 0
// when the mask holds no tissue.
func AreaFraction(measuredAreaPx float64, tissuePx int) float64 {
	if tissuePx <= 0 {
		return 0
	}
	return measuredAreaPx / float64(tissuePx)
}
