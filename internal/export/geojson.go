package export

import (
	"encoding/json"
	"io"
	"time"

	"histo-analyzer/internal/measure"
	"histo-analyzer/internal/project"
	"histo-analyzer/pkg/geometry"
)

// Generator is written into exported metadata.
const Generator = "HistoAnalyzer"

// FeatureCollection is a GeoJSON document in pixel coordinates.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
	Meta     Meta      `json:"meta"`
}

// Meta describes the export itself.
type Meta struct {
	ExportedAt string `json:"exported_at"`
	Generator  string `json:"generator"`
}

// Feature is a GeoJSON feature. Measurements carry no geometry.
type Feature struct {
	Type       string                 `json:"type"`
	BBox       []float64              `json:"bbox,omitempty"`
	Geometry   *Geometry              `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry is a GeoJSON LineString.
type Geometry struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// Collection builds the feature collection for annotations and measurements.
// Annotations without points are skipped.
func Collection(annotations []project.Annotation, records []measure.Measurement, now time.Time) FeatureCollection {
	fc := FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]Feature, 0, len(annotations)+len(records)),
		Meta:     Meta{ExportedAt: now.Format(time.RFC3339), Generator: Generator},
	}
	for _, a := range annotations {
		if len(a.Points) == 0 {
			continue
		}
		coords := make([][2]float64, len(a.Points))
		for i, p := range a.Points {
			coords[i] = [2]float64{p.X, p.Y}
		}
		kind := a.Type
		if kind == "" {
			kind = "annotation"
		}
		box := geometry.BoundingBox(a.Points)
		br := box.BottomRight()
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			BBox:       []float64{box.X, box.Y, br.X, br.Y},
			Geometry:   &Geometry{Type: "LineString", Coordinates: coords},
			Properties: map[string]interface{}{"kind": kind},
		})
	}
	for _, m := range records {
		var um interface{}
		if m.ValueUm != nil {
			um = measure.Round(*m.ValueUm)
		}
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Properties: map[string]interface{}{
				"kind":     "measurement",
				"type":     string(m.Kind),
				"value_px": measure.Round(m.ValuePx),
				"value_um": um,
				"units":    m.Units,
				"details":  m.Details.String(),
			},
		})
	}
	return fc
}

// WriteGeoJSON writes the feature collection as indented JSON.
func WriteGeoJSON(w io.Writer, annotations []project.Annotation, records []measure.Measurement, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Collection(annotations, records, now))
}
