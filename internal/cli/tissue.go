package cli

import (
	"fmt"

	"histo-analyzer/internal/app"
	"histo-analyzer/internal/calibration"
	"histo-analyzer/internal/tissue"
	"histo-analyzer/internal/version"

	"github.com/spf13/cobra"
)

func (e *env) tissueCommand() *cobra.Command {
	var (
		maskPath    string
		projectPath string
		scale       scaleFlags
	)
	cmd := &cobra.Command{
		Use:   "tissue",
		Short: "Report tissue coverage of a segmentation mask",
		Long:  "Counts tissue pixels of a binary mask. With --project, the project's mask and scale are used and measured areas are related to the tissue area.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.session(projectPath)
			if err != nil {
				return err
			}
			if err := scale.apply(s); err != nil {
				return err
			}
			if maskPath == "" {
				maskPath = s.MaskPath
			}
			if maskPath == "" {
				return fmt.Errorf("no mask: pass --mask or a project with a mask")
			}

			mask, err := tissue.LoadMask(maskPath)
			if err != nil {
				return err
			}
			defer mask.Close()

			sum := tissue.Summarize(mask, s.Scale.ScaleFactor(), s.Ledger.Labels())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pixels:   %d\n", sum.TotalPx)
			fmt.Fprintf(out, "tissue:   %d px (%.2f%%)\n", sum.TissuePx, sum.Coverage*100)
			if sum.TissueAreaUm2 != nil {
				fmt.Fprintf(out, "area:     %s %s\n", formatFloat(*sum.TissueAreaUm2), sum.AreaUnits)
			}
			if summary := s.Summary(); summary.TotalAreaPx > 0 {
				fmt.Fprintf(out, "measured: %.2f%% of tissue\n", tissue.AreaFraction(summary.TotalAreaPx, sum.TissuePx)*100)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&maskPath, "mask", "", "binary mask image")
	cmd.Flags().StringVar(&projectPath, "project", "", "project to read mask, scale and areas from")
	scale.register(cmd)
	return cmd
}

// activeProfile returns the profile behind the session scale, or nil.
func activeProfile(s *app.State) *calibration.Profile {
	if s.Scale.ProfileName == "" {
		return nil
	}
	p, ok := s.Library.Get(s.Scale.ProfileName)
	if !ok {
		return nil
	}
	return &p
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "histomorph %s (commit %s, built %s)\n",
				version.Version, version.GitCommit, version.BuildTime)
			return nil
		},
	}
}
