package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"plate-scanner/internal/calibration"
	pimage "plate-scanner/internal/image"
	"plate-scanner/internal/overlay"
	"plate-scanner/internal/report"
	"plate-scanner/internal/sampler"
	"plate-scanner/pkg/colorutil"

	"github.com/spf13/cobra"
)

func newCalibrateCmd() *cobra.Command {
	var (
		points         []string
		concentrations string
		reps           int
		name           string
		channel        string
		top            int
		display        bool
		overlayPath    string
		plotPath       string
	)

	cmd := &cobra.Command{
		Use:   "calibrate IMAGE",
		Short: "Fit a calibration curve from standard wells",
		Long: `Sample the standard wells given with --point and fit a line per color
channel against the known concentrations. Points are picked in target order:
every replicate of the first concentration, then the next concentration.

The best channel by R² is saved under --name unless --channel picks another.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := calibration.ParseConcentrations(concentrations)
			if err != nil {
				return err
			}
			targets, err := calibration.ExpandTargets(base, reps)
			if err != nil {
				return err
			}
			pts, err := parsePoints(points)
			if err != nil {
				return err
			}
			if len(pts) != len(targets) {
				return fmt.Errorf("%d points picked for %d targets (%d concentrations x %d replicates)",
					len(pts), len(targets), len(base), reps)
			}

			s, err := newSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			if err := addPoints(s, pts, display); err != nil {
				return err
			}

			fit, err := s.Calibrate(targets)
			var mismatch *calibration.MismatchError
			if errors.As(err, &mismatch) {
				return fmt.Errorf("%w (points too close to the image border?)", err)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tCHANNEL\tK\tB\tR²")
			for i, m := range fit.Top(top) {
				fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\t%.4f\n", i+1, m.Channel, m.K, m.B, m.R2)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, ex := range fit.Excluded {
				fmt.Fprintf(out, "excluded %s: %v\n", ex.Channel, ex.Reason)
			}

			model, _ := s.Model()
			if channel != "" {
				ch, err := sampler.ParseChannel(channel)
				if err != nil {
					return err
				}
				if model, err = s.SelectChannel(ch); err != nil {
					return err
				}
			}

			if overlayPath != "" {
				frame, _, _ := s.Image()
				if buf, ok := frame.(*pimage.Buffer); ok {
					if err := overlay.Render(buf, overlayPath,
						overlay.Points(s.Points(), colorutil.Yellow)); err != nil {
						return err
					}
				}
			}

			if plotPath != "" {
				if err := writePlot(plotPath, fit, model); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s\n", plotPath)
			}

			if name == "" {
				fmt.Fprintf(out, "active: %s (not saved, use --name)\n", model)
				return nil
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.Put(name, model); err != nil {
				return err
			}
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Fprintf(out, "saved %q: %s\n", name, model)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&points, "point", "p", nil, "calibration well center x,y (repeatable, in target order)")
	f.StringVarP(&concentrations, "concentrations", "c", "", "comma separated standard concentrations")
	f.IntVarP(&reps, "reps", "r", 1, "replicate wells per concentration")
	f.StringVarP(&name, "name", "n", "", "save the curve under this name")
	f.StringVar(&channel, "channel", "", "save this channel's fit instead of the best one (R, G, B, H, S, V, Gray)")
	f.IntVar(&top, "top", 5, "number of ranked channels to print")
	f.BoolVar(&display, "display", false, "points are display coordinates (see --display-width)")
	f.StringVar(&overlayPath, "overlay", "", "write the image with the picked points marked")
	f.StringVar(&plotPath, "plot", "", "write a PNG plot of the standards and the saved curve")
	_ = cmd.MarkFlagRequired("point")
	_ = cmd.MarkFlagRequired("concentrations")
	return cmd
}

func writePlot(path string, fit *calibration.FitResult, model calibration.Model) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := report.WriteCalibrationPlot(f, fit, model); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
