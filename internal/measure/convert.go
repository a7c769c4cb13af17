// Package measure holds the measurement ledger and the unit conversion policy
// that turns pixel-space values into physical units.
package measure

import "math"

// Kind identifies what a measurement quantifies. The named constants cover the
// drawing tools; any other value is accepted and treated as length-like.
type Kind string

const (
	KindLine      Kind = "line"
	KindPolyline  Kind = "polyline"
	KindArea      Kind = "area"
	KindThickness Kind = "thickness"
)

// IsArea reports whether values of this kind are areas (px², µm²).
func (k Kind) IsArea() bool {
	return k == KindArea
}

// UnitLabels names the units written next to converted values.
type UnitLabels struct {
	Length string
	Area   string
}

// Pixel unit labels, used whenever no calibration is active.
const (
	PixelLength = "px"
	PixelArea   = "px²"
)

var (
	// CyrillicLabels is the default label set.
	CyrillicLabels = UnitLabels{Length: "мкм", Area: "мкм²"}
	// GreekLabels uses the SI micro sign.
	GreekLabels = UnitLabels{Length: "μm", Area: "μm²"}
)

// LabelsByName resolves a configured label set name, falling back to CyrillicLabels.
func LabelsByName(name string) UnitLabels {
	if name == "greek" {
		return GreekLabels
	}
	return CyrillicLabels
}

// Convert applies ConvertWith using CyrillicLabels.
func Convert(valuePx float64, kind Kind, umPerPx *float64) (*float64, string) {
	return ConvertWith(CyrillicLabels, valuePx, kind, umPerPx)
}

// ConvertWith maps a pixel-space value to physical units.
//
// A nil scale yields a nil value and the pixel label. Areas scale with the
// square of umPerPx, every other kind linearly. This is the only conversion
// routine: measurement creation and bulk re-conversion both go through it.
func ConvertWith(labels UnitLabels, valuePx float64, kind Kind, umPerPx *float64) (*float64, string) {
	if umPerPx == nil {
		if kind.IsArea() {
			return nil, PixelArea
		}
		return nil, PixelLength
	}
	s := *umPerPx
	if kind.IsArea() {
		v := valuePx * s * s
		return &v, labels.Area
	}
	v := valuePx * s
	return &v, labels.Length
}

// Round rounds v to 6 decimal places. Values are only rounded when they are
// persisted or displayed, never between conversions.
func Round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// Float returns a pointer to v, for building optional scale values.
func Float(v float64) *float64 {
	return &v
}
