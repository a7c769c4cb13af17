package calibration

import "fmt"

// Mode records how the active scale was established.
type Mode string

const (
	ModeNone       Mode = "none"
	ModeLine       Mode = "line"
	ModeMicrometer Mode = "micrometer"
	ModeProfile    Mode = "profile"
)

// ParseMode maps a persisted mode string to a Mode, defaulting to ModeNone.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeLine, ModeMicrometer, ModeProfile:
		return Mode(s)
	default:
		return ModeNone
	}
}

// ActiveScale is the calibration applied to one document's measurements.
// The zero value means no calibration.
type ActiveScale struct {
	UmPerPx     *float64
	Mode        Mode
	ProfileName string
}

// ScaleFactor returns the active micrometers per pixel, or nil.
func (a *ActiveScale) ScaleFactor() *float64 {
	return a.UmPerPx
}

// IsSet reports whether a scale is active.
func (a *ActiveScale) IsSet() bool {
	return a.UmPerPx != nil
}

// Set applies a scale that is not tied to a profile.
func (a *ActiveScale) Set(umPerPx float64, mode Mode) error {
	if !ValidScale(umPerPx) {
		return fmt.Errorf("%w: %v", ErrInvalidScale, umPerPx)
	}
	v := umPerPx
	a.UmPerPx = &v
	a.Mode = mode
	a.ProfileName = ""
	return nil
}

// Select makes p the active calibration.
func (a *ActiveScale) Select(p Profile) {
	v := p.UmPerPx
	a.UmPerPx = &v
	a.Mode = ModeProfile
	a.ProfileName = p.Name
}

// Clear resets to no calibration.
func (a *ActiveScale) Clear() {
	*a = ActiveScale{Mode: ModeNone}
}

// String describes the scale for logs and reports.
func (a *ActiveScale) String() string {
	if a.UmPerPx == nil {
		return "none"
	}
	if a.ProfileName != "" {
		return fmt.Sprintf("%.6f um/px (%s, profile %q)", *a.UmPerPx, a.Mode, a.ProfileName)
	}
	return fmt.Sprintf("%.6f um/px (%s)", *a.UmPerPx, a.Mode)
}
