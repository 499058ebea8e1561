package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"plate-scanner/internal/app"
	"plate-scanner/internal/calibration"
	"plate-scanner/internal/grid"
	pimage "plate-scanner/internal/image"
	"plate-scanner/internal/overlay"
	"plate-scanner/internal/report"
	"plate-scanner/internal/scan"
	"plate-scanner/pkg/colorutil"

	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	var (
		anchors     []string
		curve       string
		display     bool
		csvPath     string
		reportPath  string
		overlayPath string
		threshold   float64
		highlight   string
	)

	cmd := &cobra.Command{
		Use:   "scan IMAGE",
		Short: "Read concentrations of every well on a plate",
		Long: `Infer every well center from three anchors (A1, the last well of row A,
the last well of column 1) and convert the sampled color to a concentration
with a saved calibration curve.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pts, err := parsePoints(anchors)
			if err != nil {
				return err
			}
			a, err := lastAnchors(pts)
			if err != nil {
				return err
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			model, err := store.Get(curve)
			if err != nil {
				return err
			}

			s, err := newSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			s.SetLayout(plateLayout())
			s.SetMode(app.ModeScan)
			s.UseModel(model)
			if display {
				vp := s.Viewport()
				a = grid.Anchors{A1: vp.ToReal(a.A1), RowEnd: vp.ToReal(a.RowEnd), ColumnEnd: vp.ToReal(a.ColumnEnd)}
			}
			if _, err := s.SetAnchors(a); err != nil {
				return err
			}

			m, err := s.Scan()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "curve %q: %s\n", curve, model)
			switch csvPath {
			case "":
				if err := m.WriteTable(out); err != nil {
					return err
				}
			case "-":
				if err := m.WriteCSV(out); err != nil {
					return err
				}
			default:
				if err := writeCSV(m, csvPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s\n", csvPath)
			}

			if missing := m.Unsampled(); len(missing) > 0 {
				fmt.Fprintf(out, "not sampled (outside image): %s\n", strings.Join(missing, " "))
			}
			if high := m.Exceeds(threshold); len(high) > 0 {
				wells := make([]string, len(high))
				for i, c := range high {
					wells[i] = fmt.Sprintf("%s=%.2f", c.Well, c.Concentration)
				}
				fmt.Fprintf(out, ">= %.2f: %s\n", threshold, strings.Join(wells, " "))
			}

			frame, imagePath, hash := s.Image()
			lat := s.Lattice()

			if reportPath != "" {
				if abs, err := filepath.Abs(imagePath); err == nil {
					imagePath = abs
				}
				if err := report.New(m, curve, lat.Anchors, imagePath, hash).Save(reportPath); err != nil {
					return fmt.Errorf("failed to save report: %w", err)
				}
				fmt.Fprintf(out, "wrote %s\n", reportPath)
			}

			if overlayPath != "" {
				col, err := colorutil.ParseHex(highlight)
				if err != nil {
					return err
				}
				if buf, ok := frame.(*pimage.Buffer); ok {
					groups := overlay.Matrix(m, threshold)
					groups[1].Color = col
					layers := append([]*overlay.Overlay{overlay.Anchors(lat.Layout, lat.Anchors)}, groups...)
					if err := overlay.Render(buf, overlayPath, layers...); err != nil {
						return err
					}
					fmt.Fprintf(out, "wrote %s\n", overlayPath)
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&anchors, "anchor", "a", nil, "anchor well center x,y: A1, end of row A, H1 (only the last three are used)")
	f.StringVar(&curve, "curve", calibration.DemoName, "saved calibration curve to apply")
	f.BoolVar(&display, "display", false, "anchors are display coordinates (see --display-width)")
	f.StringVar(&csvPath, "csv", "", "write the concentration matrix as CSV (- for stdout)")
	f.StringVar(&reportPath, "report", "", "save a JSON scan report")
	f.StringVar(&overlayPath, "overlay", "", "write the image with wells marked")
	f.Float64Var(&threshold, "threshold", 1.0, "list and highlight wells at or above this concentration")
	f.StringVar(&highlight, "highlight-color", "#ff0000", "overlay color of wells at or above --threshold")
	_ = cmd.MarkFlagRequired("anchor")
	return cmd
}

func writeCSV(m *scan.Matrix, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := m.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
