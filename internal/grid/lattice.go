// Package grid infers the well lattice of a plate from three anchor wells.
package grid

import (
	"errors"
	"fmt"
	"math"

	"plate-scanner/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateAnchors is returned when the anchors cannot span a lattice:
// a coincident or collinear triple, or non-finite coordinates.
var ErrDegenerateAnchors = errors.New("degenerate anchor points")

// degenerateTolerance bounds |sin| of the angle between the column and row
// step vectors below which the anchors are treated as collinear.
const degenerateTolerance = 1e-9

// Layout describes the well arrangement of a plate.
type Layout struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Plate layouts. Both have rows A-H; anchors are A1, the last well of row A
// and H1.
var (
	Layout128 = Layout{Rows: 8, Cols: 16}
	Layout96  = Layout{Rows: 8, Cols: 12}
)

// LayoutForWells returns the layout with the given number of wells.
func LayoutForWells(wells int) (Layout, error) {
	switch wells {
	case 128:
		return Layout128, nil
	case 96:
		return Layout96, nil
	default:
		return Layout{}, fmt.Errorf("unsupported plate layout: %d wells", wells)
	}
}

// Wells returns the number of wells.
func (l Layout) Wells() int {
	return l.Rows * l.Cols
}

// RowLabel returns the letter of row r (0 = "A").
func (l Layout) RowLabel(r int) string {
	return string(rune('A' + r))
}

// WellName returns the conventional name of a well, e.g. "C6".
func (l Layout) WellName(r, c int) string {
	return fmt.Sprintf("%s%d", l.RowLabel(r), c+1)
}

// RowEndName returns the name of the anchor closing row A.
func (l Layout) RowEndName() string {
	return l.WellName(0, l.Cols-1)
}

// ColumnEndName returns the name of the anchor closing column 1.
func (l Layout) ColumnEndName() string {
	return l.WellName(l.Rows-1, 0)
}

func (l Layout) String() string {
	return fmt.Sprintf("%d-well (%dx%d)", l.Wells(), l.Rows, l.Cols)
}

// Anchors are the real-image centers of three user-picked wells.
type Anchors struct {
	A1        geometry.Point2D `json:"a1"`         // first well
	RowEnd    geometry.Point2D `json:"row_end"`    // last well of row A (A16 on 128-well plates)
	ColumnEnd geometry.Point2D `json:"column_end"` // last well of column 1 (H1)
}

// Lattice is the ordered set of inferred well centers for one anchor triple.
// It is never modified after BuildLattice returns.
type Lattice struct {
	Layout  Layout
	Anchors Anchors
	ColStep geometry.Point2D   // offset between adjacent columns
	RowStep geometry.Point2D   // offset between adjacent rows
	Points  []geometry.Point2D // row-major: A1, A2, ..., B1, ...
}

// BuildLattice interpolates every well center from the anchors with a
// parallelogram model: well(r, c) = A1 + c*ColStep + r*RowStep. No lens or
// higher-order skew correction is attempted.
func BuildLattice(layout Layout, anchors Anchors) (*Lattice, error) {
	if layout.Rows < 2 || layout.Cols < 2 {
		return nil, fmt.Errorf("invalid layout %dx%d", layout.Rows, layout.Cols)
	}
	if err := checkAnchors(anchors); err != nil {
		return nil, err
	}

	colSpan := float64(layout.Cols - 1)
	rowSpan := float64(layout.Rows - 1)

	lat := &Lattice{
		Layout:  layout,
		Anchors: anchors,
		ColStep: anchors.RowEnd.Sub(anchors.A1).Scale(1 / colSpan),
		RowStep: anchors.ColumnEnd.Sub(anchors.A1).Scale(1 / rowSpan),
		Points:  make([]geometry.Point2D, 0, layout.Wells()),
	}

	// Barycentric form of A1 + c*ColStep + r*RowStep so the anchor wells come
	// out bit-identical to the anchors.
	for r := 0; r < layout.Rows; r++ {
		v := float64(r) / rowSpan
		for c := 0; c < layout.Cols; c++ {
			u := float64(c) / colSpan
			w := 1 - u - v
			lat.Points = append(lat.Points, geometry.Point2D{
				X: w*anchors.A1.X + u*anchors.RowEnd.X + v*anchors.ColumnEnd.X,
				Y: w*anchors.A1.Y + u*anchors.RowEnd.Y + v*anchors.ColumnEnd.Y,
			})
		}
	}

	return lat, nil
}

// checkAnchors rejects triples that would produce NaN, zero or collinear
// step vectors.
func checkAnchors(a Anchors) error {
	if !a.A1.IsFinite() || !a.RowEnd.IsFinite() || !a.ColumnEnd.IsFinite() {
		return fmt.Errorf("%w: non-finite coordinate", ErrDegenerateAnchors)
	}

	col := a.RowEnd.Sub(a.A1)
	row := a.ColumnEnd.Sub(a.A1)
	colLen, rowLen := col.Norm(), row.Norm()
	if colLen == 0 || rowLen == 0 {
		return fmt.Errorf("%w: coincident anchors", ErrDegenerateAnchors)
	}

	basis := mat.NewDense(2, 2, []float64{
		col.X, row.X,
		col.Y, row.Y,
	})
	if math.Abs(mat.Det(basis)) < degenerateTolerance*colLen*rowLen {
		return fmt.Errorf("%w: anchors are collinear", ErrDegenerateAnchors)
	}
	return nil
}

// At returns the center of the well at row r, column c (both 0-based).
func (l *Lattice) At(r, c int) geometry.Point2D {
	return l.Points[r*l.Layout.Cols+c]
}

// Rows returns a copy of the lattice as Rows slices of Cols points.
func (l *Lattice) Rows() [][]geometry.Point2D {
	rows := make([][]geometry.Point2D, l.Layout.Rows)
	for r := range rows {
		rows[r] = append([]geometry.Point2D(nil), l.Points[r*l.Layout.Cols:(r+1)*l.Layout.Cols]...)
	}
	return rows
}

// Transform returns the affine map from (column, row) indices to image pixels.
func (l *Lattice) Transform() geometry.AffineTransform {
	return geometry.AffineTransform{
		A: l.ColStep.X, B: l.RowStep.X, TX: l.Anchors.A1.X,
		C: l.ColStep.Y, D: l.RowStep.Y, TY: l.Anchors.A1.Y,
	}
}

// Locate returns the well nearest to a real-image point. ok is false when the
// point lies more than half a step outside the plate.
func (l *Lattice) Locate(p geometry.Point2D) (row, col int, ok bool) {
	inv, invertible := l.Transform().Inverse()
	if !invertible {
		return 0, 0, false
	}
	idx := inv.Apply(p)
	col = int(math.Round(idx.X))
	row = int(math.Round(idx.Y))
	if row < 0 || row >= l.Layout.Rows || col < 0 || col >= l.Layout.Cols {
		return 0, 0, false
	}
	return row, col, true
}
