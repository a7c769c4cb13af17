package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"histo-analyzer/internal/app"
	"histo-analyzer/internal/measure"
	"histo-analyzer/pkg/geometry"

	"github.com/spf13/cobra"
)

// scaleFlags select the scale a command measures with.
type scaleFlags struct {
	umPerPx float64
	profile string
}

func (f *scaleFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.umPerPx, "um-per-px", 0, "micrometers per pixel")
	cmd.Flags().StringVar(&f.profile, "profile", "", "calibration profile to select")
}

// apply sets the session scale when a flag was given. A profile wins over a
// manual value.
func (f *scaleFlags) apply(s *app.State) error {
	if f.profile != "" {
		return s.SelectProfile(f.profile)
	}
	if f.umPerPx != 0 {
		return s.ApplyScale(f.umPerPx)
	}
	return nil
}

func (e *env) measureCommand() *cobra.Command {
	var (
		kind        string
		points      string
		projectPath string
		scale       scaleFlags
	)
	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Measure a line, polyline or area stroke",
		Example: `  histomorph measure --kind line --points "0,0 30,40" --um-per-px 0.5
  histomorph measure --kind area --points "0,0 10,0 10,10 0,10" --project slide.histo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pts, err := parsePoints(points)
			if err != nil {
				return err
			}
			s, err := e.session(projectPath)
			if err != nil {
				return err
			}
			if err := scale.apply(s); err != nil {
				return err
			}
			res, err := s.HandleStroke(app.Stroke{Kind: app.StrokeKind(kind), Points: pts})
			if err != nil {
				return err
			}
			switch {
			case res.Measurement != nil:
				printMeasurement(cmd.OutOrStdout(), *res.Measurement)
			case res.ScalePx != nil:
				fmt.Fprintf(cmd.OutOrStdout(), "scale line: %s px\n", formatFloat(*res.ScalePx))
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%s stored\n", kind)
			}
			if projectPath != "" {
				return s.SaveProject(projectPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(app.StrokeLine), "stroke kind: line, polyline, area, thickness_1, thickness_2, scale_line")
	cmd.Flags().StringVar(&points, "points", "", `points as "x,y x,y ..."`)
	cmd.Flags().StringVar(&projectPath, "project", "", "project file to record into")
	scale.register(cmd)
	_ = cmd.MarkFlagRequired("points")
	return cmd
}

func (e *env) thicknessCommand() *cobra.Command {
	var (
		curveA, curveB string
		projectPath    string
		scale          scaleFlags
	)
	cmd := &cobra.Command{
		Use:   "thickness",
		Short: "Measure layer thickness between two boundary curves",
		Long:  "Measures the thickness distribution between --a and --b. Without curves, the latest thickness_1 and thickness_2 annotations of --project are paired.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.session(projectPath)
			if err != nil {
				return err
			}
			if err := scale.apply(s); err != nil {
				return err
			}

			var m measure.Measurement
			if curveA != "" || curveB != "" {
				a, err := parsePoints(curveA)
				if err != nil {
					return fmt.Errorf("--a: %w", err)
				}
				b, err := parsePoints(curveB)
				if err != nil {
					return fmt.Errorf("--b: %w", err)
				}
				m = s.MeasureThickness(a, b)
			} else if m, err = s.ComputeThickness(); err != nil {
				return err
			}
			printMeasurement(cmd.OutOrStdout(), m)
			if projectPath != "" {
				return s.SaveProject(projectPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&curveA, "a", "", "first boundary curve")
	cmd.Flags().StringVar(&curveB, "b", "", "second boundary curve")
	cmd.Flags().StringVar(&projectPath, "project", "", "project file to record into")
	scale.register(cmd)
	return cmd
}

// parsePoints reads "x,y x,y ..." into points. Pairs may also be separated
// by semicolons.
func parsePoints(s string) ([]geometry.Point2D, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ';' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("no points given")
	}
	pts := make([]geometry.Point2D, 0, len(fields))
	for _, f := range fields {
		xy := strings.Split(f, ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("invalid point %q: want x,y", f)
		}
		x, err := strconv.ParseFloat(xy[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", f, err)
		}
		y, err := strconv.ParseFloat(xy[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", f, err)
		}
		pts = append(pts, geometry.NewPoint2D(x, y))
	}
	return pts, nil
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(measure.Round(v), 'f', -1, 64)
}

func printMeasurement(w io.Writer, m measure.Measurement) {
	phys := "-"
	if m.ValueUm != nil {
		phys = formatFloat(*m.ValueUm)
	}
	fmt.Fprintf(w, "%s: %s px, %s %s", m.Kind, formatFloat(m.ValuePx), phys, m.Units)
	if d := m.Details.String(); d != "" {
		fmt.Fprintf(w, " (%s)", d)
	}
	fmt.Fprintln(w)
}
