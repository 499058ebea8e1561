package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"plate-scanner/internal/grid"
	"plate-scanner/internal/viewport"

	"github.com/spf13/cobra"
)

func newLatticeCmd() *cobra.Command {
	var (
		anchors    []string
		display    bool
		realWidth  int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "lattice",
		Short: "Print the well centers inferred from three anchors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pts, err := parsePoints(anchors)
			if err != nil {
				return err
			}
			if len(pts) != 3 {
				return fmt.Errorf("need exactly three anchors, got %d", len(pts))
			}
			if display {
				if realWidth <= 0 {
					return fmt.Errorf("--display needs --image-width")
				}
				// Only the width sets the scale of a width-fitted display.
				vp, err := viewport.New(realWidth, realWidth, cfg.DisplayWidth)
				if err != nil {
					return err
				}
				pts = vp.AllToReal(pts)
			}

			lat, err := grid.BuildLattice(plateLayout(), grid.Anchors{A1: pts[0], RowEnd: pts[1], ColumnEnd: pts[2]})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				type well struct {
					Well string  `json:"well"`
					X    float64 `json:"x"`
					Y    float64 `json:"y"`
				}
				wells := make([]well, 0, len(lat.Points))
				for r, row := range lat.Rows() {
					for c, p := range row {
						wells = append(wells, well{Well: lat.Layout.WellName(r, c), X: p.X, Y: p.Y})
					}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(wells)
			}

			fmt.Fprintf(out, "%s plate, column step (%.2f, %.2f), row step (%.2f, %.2f)\n",
				lat.Layout, lat.ColStep.X, lat.ColStep.Y, lat.RowStep.X, lat.RowStep.Y)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WELL\tX\tY")
			for r, row := range lat.Rows() {
				for c, p := range row {
					fmt.Fprintf(tw, "%s\t%.2f\t%.2f\n", lat.Layout.WellName(r, c), p.X, p.Y)
				}
			}
			return tw.Flush()
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&anchors, "anchor", "a", nil, "anchor x,y: A1, end of row A, H1")
	f.BoolVar(&display, "display", false, "anchors are display coordinates")
	f.IntVar(&realWidth, "image-width", 0, "real image width, needed with --display")
	f.BoolVar(&jsonOutput, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("anchor")
	return cmd
}
