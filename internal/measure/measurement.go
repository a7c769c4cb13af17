package measure

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"histo-analyzer/internal/morphometry"
)

// Measurement is a single recorded quantity. ValuePx is fixed at creation;
// ValueUm and Units are derived from it and the active calibration.
type Measurement struct {
	ID        string    `json:"id,omitempty"`
	Kind      Kind      `json:"type"`
	ValuePx   float64   `json:"value_px"`
	ValueUm   *float64  `json:"value_um"`
	Units     string    `json:"units"`
	Details   Details   `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// Details is the structured payload attached to a measurement.
type Details struct {
	PointCount   *int                      `json:"point_count,omitempty"`
	Distribution *morphometry.Distribution `json:"distribution,omitempty"`
	Note         string                    `json:"note,omitempty"`
}

// PointCountDetails records how many vertices a drawn path had.
func PointCountDetails(n int) Details {
	return Details{PointCount: &n}
}

// DistributionDetails records a distance distribution summary.
func DistributionDetails(d morphometry.Distribution) Details {
	return Details{Distribution: &d}
}

// NoteDetails records free text.
func NoteDetails(note string) Details {
	return Details{Note: note}
}

// String renders details for CSV cells and reports.
func (d Details) String() string {
	var parts []string
	if d.PointCount != nil {
		parts = append(parts, fmt.Sprintf("n=%d", *d.PointCount))
	}
	if d.Distribution != nil {
		parts = append(parts, d.Distribution.String())
	}
	if d.Note != "" {
		parts = append(parts, d.Note)
	}
	return strings.Join(parts, "; ")
}

// UnmarshalJSON accepts the structured object as well as a plain string,
// which older project files stored as free text.
func (d *Details) UnmarshalJSON(data []byte) error {
	var note string
	if err := json.Unmarshal(data, &note); err == nil {
		*d = Details{Note: note}
		return nil
	}
	type plain Details
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("measurement details: %w", err)
	}
	*d = Details(p)
	return nil
}
