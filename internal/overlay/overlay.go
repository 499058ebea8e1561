// Package overlay draws picked points and inferred wells onto a copy of a
// photograph for visual checking.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"plate-scanner/internal/grid"
	pimage "plate-scanner/internal/image"
	"plate-scanner/internal/scan"
	"plate-scanner/pkg/colorutil"
	"plate-scanner/pkg/geometry"

	"gocv.io/x/gocv"
)

// Shape selects how a marker is drawn.
type Shape int

const (
	ShapeCircle Shape = iota // Outline circle of Radius
	ShapeCross               // Crosshairs through the center
	ShapeSquare              // Outline of the sampled region
)

// Marker is one annotation at a real-image coordinate.
type Marker struct {
	Center geometry.Point2D
	Label  string // Optional, drawn to the right of the marker
	Shape  Shape
}

// Overlay is a group of markers sharing a color and size.
type Overlay struct {
	Markers   []Marker
	Color     color.RGBA
	Radius    int
	Thickness int
}

// Points builds an overlay with one circle per point, labeled by order.
func Points(points []geometry.Point2D, col color.RGBA) *Overlay {
	ov := &Overlay{Color: col, Radius: 6, Thickness: 2}
	for i, p := range points {
		ov.Markers = append(ov.Markers, Marker{Center: p, Label: fmt.Sprint(i + 1), Shape: ShapeCircle})
	}
	return ov
}

// Anchors marks the three anchor wells with crosshairs and their well names.
func Anchors(layout grid.Layout, a grid.Anchors) *Overlay {
	return &Overlay{
		Color:     colorutil.Red,
		Radius:    10,
		Thickness: 2,
		Markers: []Marker{
			{Center: a.A1, Label: layout.WellName(0, 0), Shape: ShapeCross},
			{Center: a.RowEnd, Label: layout.RowEndName(), Shape: ShapeCross},
			{Center: a.ColumnEnd, Label: layout.ColumnEndName(), Shape: ShapeCross},
		},
	}
}

// Lattice outlines the sampling square of every inferred well.
func Lattice(l *grid.Lattice, radius int) *Overlay {
	ov := &Overlay{Color: colorutil.Green, Radius: radius, Thickness: 1}
	for _, p := range l.Points {
		ov.Markers = append(ov.Markers, Marker{Center: p, Shape: ShapeSquare})
	}
	return ov
}

// Matrix splits a scan result into three overlays: wells at or above
// threshold, wells below it, and wells that could not be sampled.
func Matrix(m *scan.Matrix, threshold float64) []*Overlay {
	high := &Overlay{Color: colorutil.Red, Radius: m.Radius, Thickness: 2}
	low := &Overlay{Color: colorutil.Green, Radius: m.Radius, Thickness: 1}
	missing := &Overlay{Color: colorutil.Yellow, Radius: max(m.Radius, 3), Thickness: 1}

	for _, row := range m.Cells {
		for _, c := range row {
			switch {
			case !c.Sampled:
				missing.Markers = append(missing.Markers, Marker{Center: c.Point, Shape: ShapeCross})
			case c.Concentration >= threshold:
				high.Markers = append(high.Markers, Marker{
					Center: c.Point,
					Label:  fmt.Sprintf("%.2f", c.Concentration),
					Shape:  ShapeSquare,
				})
			default:
				low.Markers = append(low.Markers, Marker{Center: c.Point, Shape: ShapeSquare})
			}
		}
	}
	return []*Overlay{low, high, missing}
}

// Draw renders overlays onto dst (BGR). Markers whose center is not finite
// are skipped.
func Draw(dst *gocv.Mat, overlays ...*Overlay) {
	for _, ov := range overlays {
		if ov == nil {
			continue
		}
		col := ov.Color
		thickness := max(ov.Thickness, 1)
		for _, m := range ov.Markers {
			if !m.Center.IsFinite() {
				continue
			}
			c := image.Pt(int(math.RoundToEven(m.Center.X)), int(math.RoundToEven(m.Center.Y)))
			r := max(ov.Radius, 1)

			switch m.Shape {
			case ShapeCross:
				gocv.Line(dst, image.Pt(c.X-r, c.Y), image.Pt(c.X+r, c.Y), col, thickness)
				gocv.Line(dst, image.Pt(c.X, c.Y-r), image.Pt(c.X, c.Y+r), col, thickness)
			case ShapeSquare:
				// Same half-open square the sampler averages.
				gocv.Rectangle(dst, image.Rect(c.X-r, c.Y-r, c.X+r-1, c.Y+r-1), col, thickness)
			default:
				gocv.Circle(dst, c, r, col, thickness)
			}

			if m.Label != "" {
				gocv.PutText(dst, m.Label, image.Pt(c.X+r+2, c.Y+4),
					gocv.FontHersheySimplex, 0.4, col, 1)
			}
		}
	}
}

// Render draws overlays onto a copy of the buffer's BGR view and writes it to
// path. The format follows the file extension.
func Render(buf *pimage.Buffer, path string, overlays ...*Overlay) error {
	img := buf.CloneView(pimage.ViewBGR)
	defer img.Close()

	Draw(&img, overlays...)

	if !gocv.IMWrite(path, img) {
		return fmt.Errorf("failed to write overlay %s", path)
	}
	return nil
}
