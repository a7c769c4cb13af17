// Package export writes the measurement ledger to CSV, GeoJSON and plain-text
// reports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"histo-analyzer/internal/measure"
)

// csvHeader is the column order of measurement CSV files.
var csvHeader = []string{"type", "value_px", "value_um", "details"}

// WriteCSV writes one row per measurement. A missing physical value is an
// empty cell.
func WriteCSV(w io.Writer, records []measure.Measurement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, m := range records {
		row := []string{
			string(m.Kind),
			formatValue(m.ValuePx),
			formatOptional(m.ValueUm),
			m.Details.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(measure.Round(v), 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatValue(*v)
}
