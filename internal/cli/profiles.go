package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (e *env) profilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile"},
		Short:   "Manage calibration profiles",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved profiles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				lib, err := e.openLibrary()
				if err != nil {
					return err
				}
				profiles := lib.List()
				if len(profiles) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no calibration profiles")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tOBJECTIVE\tUM_PER_PX\tMETHOD\tN\tSD\tDATE")
				for _, p := range profiles {
					date := "-"
					if !p.Date.IsZero() {
						date = p.Date.Format(time.DateOnly)
					}
					fmt.Fprintf(tw, "%s\t%s\t%.6f\t%s\t%d\t%.6f\t%s\n",
						p.Name, p.Objective, p.UmPerPx, p.Method, p.NRepeats, p.SD, date)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a saved profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				lib, err := e.openLibrary()
				if err != nil {
					return err
				}
				if err := lib.Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted profile %q\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "select <project> <name>",
			Short: "Make a profile the active scale of a project",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := e.session(args[0])
				if err != nil {
					return err
				}
				if err := s.SelectProfile(args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scale: %s\n", s.Scale.String())
				return s.SaveProject(args[0])
			},
		},
		&cobra.Command{
			Use:   "clear <project>",
			Short: "Remove the active calibration of a project",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := e.session(args[0])
				if err != nil {
					return err
				}
				s.ClearProfile()
				fmt.Fprintln(cmd.OutOrStdout(), "scale: none")
				return s.SaveProject(args[0])
			},
		},
	)
	return cmd
}
