package measure

import "histo-analyzer/internal/morphometry"

// Summary is a read-only aggregate of the ledger for display.
type Summary struct {
	Count int

	TotalAreaPx float64
	TotalAreaUm *float64

	ThicknessCount    int
	ThicknessMeanPx   float64
	ThicknessMedianPx float64
	ThicknessMeanUm   *float64
	ThicknessMedianUm *float64
}

// Summary aggregates the ledger at its current scale.
func (l *Ledger) Summary() Summary {
	return Summarize(l.records, l.currentScale())
}

// Summarize totals area records and averages thickness records.
// Physical values are nil when umPerPx is nil.
func Summarize(records []Measurement, umPerPx *float64) Summary {
	s := Summary{Count: len(records)}
	var thickness []float64
	for _, m := range records {
		switch m.Kind {
		case KindArea:
			s.TotalAreaPx += m.ValuePx
		case KindThickness:
			thickness = append(thickness, m.ValuePx)
		}
	}

	if len(thickness) > 0 {
		d := morphometry.Summarize(thickness)
		s.ThicknessCount = len(thickness)
		s.ThicknessMeanPx = d.Mean
		s.ThicknessMedianPx = d.Median
	}

	s.TotalAreaUm, _ = Convert(s.TotalAreaPx, KindArea, umPerPx)
	if s.ThicknessCount > 0 {
		s.ThicknessMeanUm, _ = Convert(s.ThicknessMeanPx, KindThickness, umPerPx)
		s.ThicknessMedianUm, _ = Convert(s.ThicknessMedianPx, KindThickness, umPerPx)
	}
	return s
}
