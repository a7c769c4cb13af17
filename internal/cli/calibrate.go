package cli

import (
	"fmt"

	"histo-analyzer/internal/app"
	"histo-analyzer/internal/calibration"
	"histo-analyzer/pkg/geometry"

	"github.com/spf13/cobra"
)

func (e *env) calibrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Derive a micrometers-per-pixel scale",
	}
	cmd.AddCommand(e.calibrateLineCommand(), e.calibrateMicrometerCommand())
	return cmd
}

func (e *env) calibrateLineCommand() *cobra.Command {
	var (
		pxDistance  float64
		points      string
		realUm      float64
		name        string
		objective   string
		projectPath string
	)
	cmd := &cobra.Command{
		Use:   "line",
		Short: "Calibrate from a drawn line of known length",
		Example: `  histomorph calibrate line --px 200 --um 100
  histomorph calibrate line --points "10,10 210,10" --um 100 --name 4x --project slide.histo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if points == "" && pxDistance <= 0 {
				return fmt.Errorf("pass --px or --points")
			}
			s, err := e.session(projectPath)
			if err != nil {
				return err
			}

			line := []geometry.Point2D{{}, {X: pxDistance}}
			if points != "" {
				if line, err = parsePoints(points); err != nil {
					return err
				}
			}
			if _, err := s.HandleStroke(app.Stroke{Kind: app.StrokeScaleLine, Points: line}); err != nil {
				return err
			}

			v, err := s.ApplyLineCalibration(realUm)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "um_per_px: %.6f\n", v)

			if name != "" {
				p, err := s.SaveLineProfile(name, objective, realUm)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved profile %q\n", p.Name)
			}
			if projectPath != "" {
				return s.SaveProject(projectPath)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&pxDistance, "px", 0, "line length in pixels")
	cmd.Flags().StringVar(&points, "points", "", "line endpoints instead of --px")
	cmd.Flags().Float64Var(&realUm, "um", 0, "real line length in micrometers")
	cmd.Flags().StringVar(&name, "name", "", "also save the result as a named profile")
	cmd.Flags().StringVar(&objective, "objective", "", "objective label for the saved profile")
	cmd.Flags().StringVar(&projectPath, "project", "", "project whose scale is set")
	_ = cmd.MarkFlagRequired("um")
	return cmd
}

func (e *env) calibrateMicrometerCommand() *cobra.Command {
	var (
		name        string
		m           calibration.Micrometer
		distances   string
		imagePath   string
		projectPath string
	)
	cmd := &cobra.Command{
		Use:     "micrometer",
		Short:   "Calibrate from repeated stage micrometer trials",
		Example: `  histomorph calibrate micrometer --name 10x --objective 10x --um-per-div 10 --divisions 10 --px 199.5,200.2,200.8 --image stage.tif`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if m.PxDistances, err = parseFloats(distances); err != nil {
				return err
			}
			if len(m.PxDistances) == 0 {
				return fmt.Errorf("--px: at least one trial distance is required")
			}

			if imagePath != "" && projectPath != "" {
				return fmt.Errorf("--image and --project are exclusive; the project image is fingerprinted")
			}
			s, err := e.session(projectPath)
			if err != nil {
				return err
			}
			if imagePath != "" {
				s.NewDocument(imagePath)
			}

			p, err := s.CalibrateMicrometer(name, m)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "profile:   %s\n", p.Name)
			fmt.Fprintf(out, "um_per_px: %.6f\n", p.UmPerPx)
			fmt.Fprintf(out, "sd:        %.6f\n", p.SD)
			fmt.Fprintf(out, "n_repeats: %d\n", p.NRepeats)
			if p.SourceHash != "" {
				fmt.Fprintf(out, "source:    %s\n", p.SourceHash)
			}
			if projectPath != "" {
				return s.SaveProject(projectPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "profile name")
	cmd.Flags().StringVar(&m.Objective, "objective", "", "objective label, e.g. 10x")
	cmd.Flags().Float64Var(&m.UmPerDivision, "um-per-div", 10, "micrometers per micrometer division")
	cmd.Flags().IntVar(&m.NDivisions, "divisions", 1, "divisions spanned by each trial")
	cmd.Flags().StringVar(&distances, "px", "", "comma separated pixel distance per trial")
	cmd.Flags().StringVar(&imagePath, "image", "", "micrometer image to fingerprint")
	cmd.Flags().StringVar(&projectPath, "project", "", "project that selects the new profile")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("px")
	return cmd
}
