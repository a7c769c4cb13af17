package export

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"histo-analyzer/internal/calibration"
	"histo-analyzer/internal/measure"
)

const none = "-"

// WriteReport writes a plain-text report: the calibration block as key-value
// lines, the measurement table and the ledger summary. profile is the active
// profile, or nil.
func WriteReport(w io.Writer, scale calibration.ActiveScale, profile *calibration.Profile, records []measure.Measurement, summary measure.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s Report\n\n", Generator)
	fmt.Fprintln(tw, "Calibration")
	for _, kv := range calibrationBlock(scale, profile) {
		fmt.Fprintf(tw, "  %s:\t%s\n", kv[0], kv[1])
	}

	fmt.Fprintf(tw, "\nMeasurements (%d)\n", len(records))
	fmt.Fprintln(tw, "  #\ttype\tvalue_px\tvalue_um\tunits\tdetails")
	for i, m := range records {
		um := formatOptional(m.ValueUm)
		if um == "" {
			um = none
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\t%s\n", i+1, m.Kind, formatValue(m.ValuePx), um, m.Units, m.Details.String())
	}

	fmt.Fprintln(tw, "\nSummary")
	fmt.Fprintf(tw, "  count:\t%d\n", summary.Count)
	fmt.Fprintf(tw, "  total_area_px:\t%s\n", formatValue(summary.TotalAreaPx))
	fmt.Fprintf(tw, "  total_area_um:\t%s\n", orNone(summary.TotalAreaUm))
	if summary.ThicknessCount > 0 {
		fmt.Fprintf(tw, "  thickness_count:\t%d\n", summary.ThicknessCount)
		fmt.Fprintf(tw, "  thickness_mean_px:\t%s\n", formatValue(summary.ThicknessMeanPx))
		fmt.Fprintf(tw, "  thickness_median_px:\t%s\n", formatValue(summary.ThicknessMedianPx))
		fmt.Fprintf(tw, "  thickness_mean_um:\t%s\n", orNone(summary.ThicknessMeanUm))
		fmt.Fprintf(tw, "  thickness_median_um:\t%s\n", orNone(summary.ThicknessMedianUm))
	}
	return tw.Flush()
}

// calibrationBlock lists method, um_per_px, profile, date and sd.
func calibrationBlock(scale calibration.ActiveScale, profile *calibration.Profile) [][2]string {
	method := string(scale.Mode)
	if method == "" {
		method = string(calibration.ModeNone)
	}
	umPerPx, name, date, sd := none, none, none, none
	if v := scale.ScaleFactor(); v != nil {
		umPerPx = fmt.Sprintf("%.6f", *v)
	}
	if profile != nil {
		method = string(profile.Method)
		name = profile.Name
		if !profile.Date.IsZero() {
			date = profile.Date.Format(time.RFC3339)
		}
		sd = fmt.Sprintf("%.6f", profile.SD)
	} else if scale.IsSet() {
		sd = fmt.Sprintf("%.6f", 0.0)
	}
	return [][2]string{
		{"method", method},
		{"um_per_px", umPerPx},
		{"profile", name},
		{"date", date},
		{"sd", sd},
	}
}

func orNone(v *float64) string {
	if v == nil {
		return none
	}
	return formatValue(*v)
}
