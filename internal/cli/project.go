package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"histo-analyzer/internal/export"
	"histo-analyzer/internal/image"

	"github.com/spf13/cobra"
)

func (e *env) projectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create and inspect project files",
	}

	var imagePath, maskPath string
	newCmd := &cobra.Command{
		Use:   "new <project>",
		Short: "Create a project for an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil {
				return fmt.Errorf("project %s already exists", args[0])
			}
			if !image.IsSupportedFormat(imagePath) {
				return fmt.Errorf("unsupported image format %s (supported: %s)",
					imagePath, strings.Join(image.SupportedFormats(), ", "))
			}
			s, err := e.session("")
			if err != nil {
				return err
			}
			s.NewDocument(imagePath)
			s.MaskPath = maskPath
			if src := s.Image; src != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "image: %dx%d, hash %s\n", src.Width(), src.Height(), src.Hash)
				if hint, ok := src.UmPerPxHint(); ok {
					fmt.Fprintf(cmd.OutOrStdout(), "file resolution suggests %.6f um/px\n", hint)
				}
			}
			return s.SaveProject(args[0])
		},
	}
	newCmd.Flags().StringVar(&imagePath, "image", "", "source image")
	newCmd.Flags().StringVar(&maskPath, "mask", "", "segmentation mask")
	_ = newCmd.MarkFlagRequired("image")

	showCmd := &cobra.Command{
		Use:   "show <project>",
		Short: "Print a project's calibration, measurements and summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.session(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Image: %s\nAnnotations: %d\n\n", s.ImagePath, len(s.Annotations))
			return export.WriteReport(cmd.OutOrStdout(), s.Scale, activeProfile(s), s.Ledger.Records(), s.Summary())
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete-measurements <project> <index>...",
		Short: "Delete measurements by their 1-based report index",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.session(args[0])
			if err != nil {
				return err
			}
			indices := make([]int, 0, len(args)-1)
			for _, a := range args[1:] {
				var i int
				if _, err := fmt.Sscanf(a, "%d", &i); err != nil {
					return fmt.Errorf("invalid index %q", a)
				}
				indices = append(indices, i-1)
			}
			n := s.DeleteMeasurements(indices...)
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d measurement(s)\n", n)
			return s.SaveProject(args[0])
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear-measurements <project>",
		Short: "Remove every measurement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.session(args[0])
			if err != nil {
				return err
			}
			s.ClearMeasurements()
			return s.SaveProject(args[0])
		},
	}

	cmd.AddCommand(newCmd, showCmd, deleteCmd, clearCmd)
	return cmd
}

// exportCommand writes a project's ledger in one of the export formats.
func (e *env) exportCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:       "export <csv|geojson|report> <project>",
		Short:     "Export measurements",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"csv", "geojson", "report"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format, projectPath := args[0], args[1]
			s, err := e.session(projectPath)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			records := s.Ledger.Records()
			switch format {
			case "csv":
				err = export.WriteCSV(w, records)
			case "geojson":
				err = export.WriteGeoJSON(w, s.Annotations, records, time.Now())
			case "report":
				err = export.WriteReport(w, s.Scale, activeProfile(s), records, s.Summary())
			default:
				return fmt.Errorf("unknown export format %q", format)
			}
			if err != nil {
				return fmt.Errorf("export %s: %w", format, err)
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
